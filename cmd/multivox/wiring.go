package main

import (
	"log/slog"

	"multivox/internal/config"
	"multivox/internal/media"
	"multivox/internal/pipeline"
	"multivox/internal/transcription"
	"multivox/internal/translation"
)

// appStack holds the collaborators shared by serve and the one-shot commands.
type appStack struct {
	engine     *transcription.Engine
	acquirer   *media.Acquirer
	translator *translation.Client
	pipeline   *pipeline.Pipeline
}

func newTranslationClient(cfg *config.Config) *translation.Client {
	return translation.NewClient(translation.Config{
		BaseURL:        cfg.Translation.BaseURL,
		APIKey:         cfg.Translation.APIKey,
		TimeoutSeconds: cfg.Translation.TimeoutSeconds,
	}, translation.WithRetryMaxAttempts(cfg.Translation.RetryAttempts))
}

func buildStack(cfg *config.Config, logger *slog.Logger) *appStack {
	engine := transcription.New(transcription.Config{
		FFmpegBinary: cfg.Transcription.FFmpegBinary,
		Command:      cfg.Transcription.Command,
		Model:        cfg.Transcription.Model,
		CUDAEnabled:  cfg.Transcription.CUDAEnabled,
		VADMethod:    cfg.Transcription.VADMethod,
		HFToken:      cfg.Transcription.HFToken,
		Language:     cfg.Transcription.Language,
		Timeout:      cfg.TranscriptionTimeout(),
	}, logger)
	acquirer := media.NewAcquirer(media.Config{
		StorageDir:        cfg.Paths.StorageDir,
		MaxBytes:          cfg.MaxUploadBytes(),
		AllowedExtensions: cfg.Acquire.AllowedExtensions,
		YtDlpBinary:       cfg.Acquire.YtDlpBinary,
		YtDlpFormat:       cfg.Acquire.YtDlpFormat,
		FetchTimeout:      cfg.FetchTimeout(),
	}, logger)
	translator := newTranslationClient(cfg)
	p := pipeline.New(acquirer, engine, translator, pipeline.Options{
		Translation: translation.Options{
			ChunkSize: cfg.Translation.ChunkSize,
			Workers:   cfg.Translation.Workers,
		},
		Logger: logger,
	})
	return &appStack{engine: engine, acquirer: acquirer, translator: translator, pipeline: p}
}

// init resolves every external binary, failing fast with a configuration error.
func (s *appStack) init() error {
	if err := s.engine.Init(); err != nil {
		return err
	}
	return s.acquirer.Init()
}
