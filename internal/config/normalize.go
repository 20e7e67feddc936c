package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAcquire()
	c.normalizeTranscription()
	c.normalizeTranslation()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StorageDir) == "" {
		c.Paths.StorageDir = defaultStorageDir
	}
	if c.Paths.StorageDir, err = expandPath(c.Paths.StorageDir); err != nil {
		return fmt.Errorf("paths.storage_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("MULTIVOX_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeAcquire() {
	if c.Acquire.MaxUploadMB == 0 {
		c.Acquire.MaxUploadMB = defaultMaxUploadMB
	}
	if len(c.Acquire.AllowedExtensions) == 0 {
		c.Acquire.AllowedExtensions = append([]string(nil), DefaultAllowedExtensions...)
	} else {
		exts := make([]string, 0, len(c.Acquire.AllowedExtensions))
		seen := make(map[string]struct{}, len(c.Acquire.AllowedExtensions))
		for _, ext := range c.Acquire.AllowedExtensions {
			normalized := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
			if normalized == "" {
				continue
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			exts = append(exts, normalized)
		}
		c.Acquire.AllowedExtensions = exts
	}
	c.Acquire.YtDlpBinary = strings.TrimSpace(c.Acquire.YtDlpBinary)
	if c.Acquire.YtDlpBinary == "" {
		c.Acquire.YtDlpBinary = defaultYtDlpBinary
	}
	c.Acquire.YtDlpFormat = strings.TrimSpace(c.Acquire.YtDlpFormat)
	if c.Acquire.YtDlpFormat == "" {
		c.Acquire.YtDlpFormat = defaultYtDlpFormat
	}
	if c.Acquire.FetchTimeoutSeconds == 0 {
		c.Acquire.FetchTimeoutSeconds = defaultFetchTimeoutSeconds
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.FFmpegBinary = strings.TrimSpace(c.Transcription.FFmpegBinary)
	if c.Transcription.FFmpegBinary == "" {
		if value, ok := os.LookupEnv("FFMPEG_PATH"); ok && strings.TrimSpace(value) != "" {
			c.Transcription.FFmpegBinary = strings.TrimSpace(value)
		} else {
			c.Transcription.FFmpegBinary = defaultFFmpegBinary
		}
	}
	c.Transcription.Command = strings.TrimSpace(c.Transcription.Command)
	if c.Transcription.Command == "" {
		c.Transcription.Command = defaultWhisperXCommand
	}
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultWhisperXModel
	}
	c.Transcription.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.VADMethod))
	if c.Transcription.VADMethod == "" {
		c.Transcription.VADMethod = defaultVADMethod
	}
	c.Transcription.HFToken = strings.TrimSpace(c.Transcription.HFToken)
	if c.Transcription.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		}
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	if c.Transcription.TimeoutSeconds == 0 {
		c.Transcription.TimeoutSeconds = defaultTranscriptionTimeout
	}
}

func (c *Config) normalizeTranslation() {
	c.Translation.BaseURL = strings.TrimSpace(c.Translation.BaseURL)
	if c.Translation.BaseURL == "" {
		c.Translation.BaseURL = defaultTranslateBaseURL
	}
	c.Translation.APIKey = strings.TrimSpace(c.Translation.APIKey)
	if c.Translation.APIKey == "" {
		if value, ok := os.LookupEnv("TRANSLATE_API_KEY"); ok {
			c.Translation.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Translation.ChunkSize == 0 {
		c.Translation.ChunkSize = defaultChunkSize
	}
	if c.Translation.Workers == 0 {
		c.Translation.Workers = defaultTranslateWorkers
	}
	if c.Translation.TimeoutSeconds == 0 {
		c.Translation.TimeoutSeconds = defaultTranslateTimeout
	}
	if c.Translation.RetryAttempts == 0 {
		c.Translation.RetryAttempts = defaultTranslateRetries
	}
}

func (c *Config) normalizeHistory() error {
	var err error
	if strings.TrimSpace(c.History.DBPath) == "" {
		c.History.DBPath = filepath.Join(c.Paths.DataDir, defaultHistoryDBName)
	}
	if c.History.DBPath, err = expandPath(c.History.DBPath); err != nil {
		return fmt.Errorf("history.db_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
