package config

import (
	"fmt"

	"multivox/internal/services"
)

// Validate ensures the configuration is usable. Failures are tagged with
// services.ErrConfiguration.
func (c *Config) Validate() error {
	if err := c.validateAcquire(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAcquire() error {
	if c.Acquire.MaxUploadMB < 0 {
		return invalid("acquire.max_upload_mb must be positive")
	}
	if len(c.Acquire.AllowedExtensions) == 0 {
		return invalid("acquire.allowed_extensions must list at least one extension")
	}
	if c.Acquire.FetchTimeoutSeconds < 0 {
		return invalid("acquire.fetch_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.VADMethod {
	case "silero", "pyannote":
	default:
		return invalid(fmt.Sprintf("transcription.vad_method: unsupported value %q", c.Transcription.VADMethod))
	}
	if c.Transcription.VADMethod == "pyannote" && c.Transcription.HFToken == "" {
		return invalid("transcription.hf_token is required when vad_method is pyannote")
	}
	if c.Transcription.TimeoutSeconds < 0 {
		return invalid("transcription.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if c.Translation.ChunkSize < 0 {
		return invalid("translation.chunk_size must be positive")
	}
	if c.Translation.Workers < 0 {
		return invalid("translation.workers must be positive")
	}
	if c.Translation.TimeoutSeconds < 0 {
		return invalid("translation.timeout_seconds must be positive")
	}
	if c.Translation.RetryAttempts < 0 {
		return invalid("translation.retry_attempts must be positive")
	}
	return nil
}

func (c *Config) validateRetention() error {
	if c.Retention.MaxAgeHours < 0 {
		return invalid("retention.max_age_hours must not be negative")
	}
	if c.Retention.SweepIntervalMinutes <= 0 {
		return invalid("retention.sweep_interval_minutes must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return invalid(fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid(fmt.Sprintf("logging.level: unsupported value %q", c.Logging.Level))
	}
	return nil
}

func invalid(message string) error {
	return services.Wrap(services.ErrConfiguration, "config", "validate", message, nil)
}
