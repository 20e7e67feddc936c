package config

const (
	defaultStorageDir           = "~/.local/share/multivox/uploads"
	defaultDataDir              = "~/.local/share/multivox"
	defaultAPIBind              = "127.0.0.1:5000"
	defaultMaxUploadMB          = 100
	defaultYtDlpBinary          = "yt-dlp"
	defaultYtDlpFormat          = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	defaultFetchTimeoutSeconds  = 600
	defaultFFmpegBinary         = "ffmpeg"
	defaultWhisperXCommand      = "uvx"
	defaultWhisperXModel        = "base"
	defaultVADMethod            = "silero"
	defaultTranscriptionTimeout = 3600
	defaultTranslateBaseURL     = "https://translate.googleapis.com/translate_a/single"
	defaultChunkSize            = 5000
	defaultTranslateWorkers     = 4
	defaultTranslateTimeout     = 15
	defaultTranslateRetries     = 3
	defaultSweepIntervalMinutes = 30
	defaultHistoryDBName        = "translator.db"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// DefaultAllowedExtensions lists the media container extensions accepted for upload.
var DefaultAllowedExtensions = []string{"mp4", "webm", "mov", "avi", "mkv", "wav", "mp3", "m4a"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageDir: defaultStorageDir,
			DataDir:    defaultDataDir,
			APIBind:    defaultAPIBind,
		},
		Acquire: Acquire{
			MaxUploadMB:         defaultMaxUploadMB,
			AllowedExtensions:   append([]string(nil), DefaultAllowedExtensions...),
			YtDlpBinary:         defaultYtDlpBinary,
			YtDlpFormat:         defaultYtDlpFormat,
			FetchTimeoutSeconds: defaultFetchTimeoutSeconds,
		},
		Transcription: Transcription{
			FFmpegBinary:   defaultFFmpegBinary,
			Command:        defaultWhisperXCommand,
			Model:          defaultWhisperXModel,
			VADMethod:      defaultVADMethod,
			TimeoutSeconds: defaultTranscriptionTimeout,
		},
		Translation: Translation{
			BaseURL:        defaultTranslateBaseURL,
			ChunkSize:      defaultChunkSize,
			Workers:        defaultTranslateWorkers,
			TimeoutSeconds: defaultTranslateTimeout,
			RetryAttempts:  defaultTranslateRetries,
		},
		Retention: Retention{
			SweepIntervalMinutes: defaultSweepIntervalMinutes,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
