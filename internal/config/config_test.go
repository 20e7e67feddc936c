package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"multivox/internal/config"
	"multivox/internal/services"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())
	t.Setenv("TRANSLATE_API_KEY", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStorage := filepath.Join(tempHome, ".local", "share", "multivox", "uploads")
	if cfg.Paths.StorageDir != wantStorage {
		t.Fatalf("unexpected storage dir: got %q want %q", cfg.Paths.StorageDir, wantStorage)
	}
	wantDB := filepath.Join(tempHome, ".local", "share", "multivox", "translator.db")
	if cfg.History.DBPath != wantDB {
		t.Fatalf("unexpected history db path: got %q want %q", cfg.History.DBPath, wantDB)
	}
	if cfg.MaxUploadBytes() != 100*1024*1024 {
		t.Fatalf("unexpected upload ceiling: %d", cfg.MaxUploadBytes())
	}
	if cfg.Translation.ChunkSize != 5000 {
		t.Fatalf("unexpected chunk size: %d", cfg.Translation.ChunkSize)
	}
	if len(cfg.Acquire.AllowedExtensions) != len(config.DefaultAllowedExtensions) {
		t.Fatalf("unexpected allowed extensions: %v", cfg.Acquire.AllowedExtensions)
	}
	if cfg.RetentionMaxAge() != 0 {
		t.Fatalf("expected retention disabled by default, got %s", cfg.RetentionMaxAge())
	}
}

func TestLoadReadsTOMLAndNormalizesExtensions(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "multivox.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"storage_dir": "~/media",
		},
		"acquire": map[string]any{
			"max_upload_mb":      5,
			"allowed_extensions": []string{".MP4", "wav", "mp4", " "},
		},
		"translation": map[string]any{
			"workers": 8,
		},
		"logging": map[string]any{
			"format": "JSON",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal toml: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q to exist, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Paths.StorageDir != filepath.Join(tempHome, "media") {
		t.Fatalf("unexpected storage dir: %q", cfg.Paths.StorageDir)
	}
	if got := strings.Join(cfg.Acquire.AllowedExtensions, ","); got != "mp4,wav" {
		t.Fatalf("unexpected extensions: %q", got)
	}
	if cfg.MaxUploadBytes() != 5*1024*1024 {
		t.Fatalf("unexpected upload ceiling: %d", cfg.MaxUploadBytes())
	}
	if cfg.Translation.Workers != 8 {
		t.Fatalf("unexpected worker count: %d", cfg.Translation.Workers)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	envPath := filepath.Join(t.TempDir(), "multivox.env")
	if err := os.WriteFile(envPath, []byte("TRANSLATE_API_KEY=from-env-file\nMULTIVOX_API_TOKEN=secret\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("MULTIVOX_ENV_FILE", envPath)
	// godotenv never overrides existing variables, so make sure they start unset.
	t.Setenv("TRANSLATE_API_KEY", "")
	os.Unsetenv("TRANSLATE_API_KEY")
	t.Setenv("MULTIVOX_API_TOKEN", "")
	os.Unsetenv("MULTIVOX_API_TOKEN")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Translation.APIKey != "from-env-file" {
		t.Fatalf("expected api key from env file, got %q", cfg.Translation.APIKey)
	}
	if cfg.Paths.APIToken != "secret" {
		t.Fatalf("expected api token from env file, got %q", cfg.Paths.APIToken)
	}
}

func TestLoadMissingExplicitEnvFileFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MULTIVOX_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	if _, _, _, err := config.Load(""); err == nil {
		t.Fatal("expected error for missing explicit env file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"vad", func(c *config.Config) { c.Transcription.VADMethod = "webrtc" }, "vad_method"},
		{"pyannote token", func(c *config.Config) { c.Transcription.VADMethod = "pyannote" }, "hf_token"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"retention", func(c *config.Config) { c.Retention.MaxAgeHours = -1 }, "max_age_hours"},
		{"extensions", func(c *config.Config) { c.Acquire.AllowedExtensions = nil }, "allowed_extensions"},
		{"workers", func(c *config.Config) { c.Translation.Workers = -2 }, "workers"},
	}
	for _, tc := range cases {
		cfg := config.Default()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("%s: expected configuration marker, got %v", tc.name, err)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected %q in %q", tc.name, tc.want, err.Error())
		}
	}
}

func TestEnsureDirectoriesCreatesStorageAndData(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StorageDir = filepath.Join(base, "uploads")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.History.DBPath = filepath.Join(base, "db", "history.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StorageDir, cfg.Paths.DataDir, filepath.Join(base, "db")} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}
