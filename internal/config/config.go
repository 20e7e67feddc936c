package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StorageDir string `toml:"storage_dir"`
	DataDir    string `toml:"data_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Acquire contains configuration for obtaining media from uploads and URLs.
type Acquire struct {
	MaxUploadMB         int      `toml:"max_upload_mb"`
	AllowedExtensions   []string `toml:"allowed_extensions"`
	YtDlpBinary         string   `toml:"ytdlp_binary"`
	YtDlpFormat         string   `toml:"ytdlp_format"`
	FetchTimeoutSeconds int      `toml:"fetch_timeout_seconds"`
}

// Transcription contains configuration for the WhisperX speech-to-text engine.
type Transcription struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	Command        string `toml:"whisperx_command"`
	Model          string `toml:"model"`
	CUDAEnabled    bool   `toml:"cuda_enabled"`
	VADMethod      string `toml:"vad_method"`
	HFToken        string `toml:"hf_token"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Translation contains configuration for the hosted translation endpoint.
type Translation struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	ChunkSize      int    `toml:"chunk_size"`
	Workers        int    `toml:"workers"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryAttempts  int    `toml:"retry_attempts"`
}

// Retention controls eviction of stored media assets. A zero MaxAgeHours keeps
// files forever.
type Retention struct {
	MaxAgeHours          int `toml:"max_age_hours"`
	SweepIntervalMinutes int `toml:"sweep_interval_minutes"`
}

// History contains configuration for the translation history database.
type History struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Multivox.
//
// Configuration sections by subsystem:
//   - Paths: storage/data directories and API bind address
//   - Acquire: upload limits, extension allowlist, yt-dlp settings
//   - Transcription: ffmpeg + WhisperX engine settings
//   - Translation: hosted translation endpoint, chunking, worker pool
//   - Retention: stored media eviction policy
//   - History: translation history database
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Acquire       Acquire       `toml:"acquire"`
	Transcription Transcription `toml:"transcription"`
	Translation   Translation   `toml:"translation"`
	Retention     Retention     `toml:"retention"`
	History       History       `toml:"history"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/multivox/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	if err := loadEnvFile(); err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadEnvFile populates the process environment from MULTIVOX_ENV_FILE or ./.env.
// Variables already set in the environment win.
func loadEnvFile() error {
	path := strings.TrimSpace(os.Getenv("MULTIVOX_ENV_FILE"))
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("multivox.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the storage and data directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StorageDir, c.Paths.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.History.Enabled {
		if err := os.MkdirAll(filepath.Dir(c.History.DBPath), 0o755); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
	}
	return nil
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Acquire.MaxUploadMB) * 1024 * 1024
}

// FetchTimeout returns the deadline applied to a single yt-dlp download.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Acquire.FetchTimeoutSeconds) * time.Second
}

// TranscriptionTimeout returns the deadline applied to a single transcription.
func (c *Config) TranscriptionTimeout() time.Duration {
	return time.Duration(c.Transcription.TimeoutSeconds) * time.Second
}

// RetentionMaxAge returns how long stored media is kept. Zero disables eviction.
func (c *Config) RetentionMaxAge() time.Duration {
	return time.Duration(c.Retention.MaxAgeHours) * time.Hour
}

// RetentionSweepInterval returns how often the storage directory is swept.
func (c *Config) RetentionSweepInterval() time.Duration {
	return time.Duration(c.Retention.SweepIntervalMinutes) * time.Minute
}

// LockPath returns the flock path guarding the storage directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "multivox.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
