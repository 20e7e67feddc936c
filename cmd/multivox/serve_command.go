package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"multivox/internal/config"
	"multivox/internal/history"
	"multivox/internal/logging"
	"multivox/internal/preflight"
	"multivox/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bindFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the subtitle and translation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if bindFlag != "" {
				cfg.Paths.APIBind = bindFlag
			}
			return runServer(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&bindFlag, "bind", "", "Override paths.api_bind (host:port)")
	return cmd
}

// translationAllowance covers segment translation on top of fetch and transcription.
const translationAllowance = 10 * time.Minute

func runServer(cmdCtx context.Context, cfg *config.Config) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another multivox server instance is already running")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release server lock", logging.Error(err))
		}
	}()

	checks := preflight.RunAll(signalCtx, cfg, preflight.Options{})
	for _, check := range checks {
		if check.Passed {
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
			logging.Bool("optional", check.Optional),
		)
	}
	if failed := preflight.Failed(checks); len(failed) > 0 {
		return fmt.Errorf("preflight failed: %s: %s", failed[0].Name, failed[0].Detail)
	}

	stack := buildStack(cfg, logger)
	if err := stack.init(); err != nil {
		return fmt.Errorf("initialize collaborators: %w", err)
	}

	opts := server.Options{
		Bind:                   cfg.Paths.APIBind,
		Token:                  cfg.Paths.APIToken,
		StorageDir:             cfg.Paths.StorageDir,
		MaxUploadBytes:         cfg.MaxUploadBytes(),
		ChunkSize:              cfg.Translation.ChunkSize,
		RequestTimeout:         cfg.FetchTimeout() + cfg.TranscriptionTimeout() + translationAllowance,
		RetentionMaxAge:        cfg.RetentionMaxAge(),
		RetentionSweepInterval: cfg.RetentionSweepInterval(),
		Requirements:           preflight.Requirements(cfg),
		Pipeline:               stack.pipeline,
		Uploads:                stack.acquirer,
		Transcriber:            stack.engine,
		Translator:             stack.translator,
		Logger:                 logger,
	}
	if cfg.History.Enabled {
		store, err := history.Open(signalCtx, cfg.History.DBPath)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		defer store.Close()
		opts.History = store
	}

	srv, err := server.New(opts)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	if err := srv.Start(signalCtx); err != nil {
		return err
	}
	logger.Info("multivox server started",
		logging.String("address", srv.Addr()),
		logging.String("storage_dir", cfg.Paths.StorageDir),
		logging.String("lock", cfg.LockPath()),
	)

	<-signalCtx.Done()
	logger.Info("multivox server shutting down")
	srv.Stop()
	return nil
}
