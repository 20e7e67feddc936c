package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"multivox/internal/config"
	"multivox/internal/deps"
	"multivox/internal/history"
	"multivox/internal/translation"
)

// CheckTranslation verifies that the translation endpoint answers a short request.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckTranslation(ctx context.Context, cfg *config.Config) Result {
	const name = "Translation endpoint"

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := translation.NewClient(translation.Config{
		BaseURL:        cfg.Translation.BaseURL,
		APIKey:         cfg.Translation.APIKey,
		TimeoutSeconds: cfg.Translation.TimeoutSeconds,
	}, translation.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Optional: true, Detail: summarizeNetworkError(err)}
	}
	return Result{Name: name, Passed: true, Optional: true, Detail: "API reachable"}
}

// CheckHistoryDB opens the history database and counts its rows.
func CheckHistoryDB(ctx context.Context, path string) Result {
	const name = "History database"

	store, err := history.Open(ctx, path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()

	count, err := store.Count(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d translations)", path, count)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// Requirements lists the external binaries the configuration depends on.
// The server's /health handler and the CLI status command share this list.
func Requirements(cfg *config.Config) []deps.Requirement {
	return []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Transcription.FFmpegBinary,
			Description: "Required to extract audio for transcription",
		},
		{
			Name:        "WhisperX launcher",
			Command:     cfg.Transcription.Command,
			Description: "Required for WhisperX-driven transcription",
		},
		{
			Name:        "yt-dlp",
			Command:     cfg.Acquire.YtDlpBinary,
			Description: "Required to download media from videoUrl",
		},
	}
}

// CheckSystemDeps evaluates all system-level dependencies for the given config.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(Requirements(cfg))
}

// summarizeNetworkError produces a human-readable summary for endpoint health check failures.
func summarizeNetworkError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (translation API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (translation API unreachable)"
	}
	return err.Error()
}
