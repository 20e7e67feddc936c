package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"multivox/internal/deps"
	"multivox/internal/fileutil"
	"multivox/internal/logging"
	"multivox/internal/services"
)

const stageName = "acquiring"

// Asset is a persisted media file plus its generated storage filename.
type Asset struct {
	Filename     string
	Path         string
	Size         int64
	BLAKE3       string
	Source       string
	OriginalName string
}

// Asset sources.
const (
	SourceUpload = "upload"
	SourceURL    = "url"
	SourceFile   = "file"
)

// Config controls where and how media is acquired.
type Config struct {
	StorageDir        string
	MaxBytes          int64
	AllowedExtensions []string
	YtDlpBinary       string
	YtDlpFormat       string
	FetchTimeout      time.Duration
}

// CommandRunner executes an external command and returns its failure, if any.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Acquirer persists uploads and remote media into the storage directory.
type Acquirer struct {
	cfg           Config
	allowed       map[string]struct{}
	logger        *slog.Logger
	ytdlp         string
	commandRunner CommandRunner
	newID         func() string
}

// NewAcquirer builds an Acquirer. Extensions are matched case-insensitively
// without the leading dot.
func NewAcquirer(cfg Config, logger *slog.Logger) *Acquirer {
	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext != "" {
			allowed[ext] = struct{}{}
		}
	}
	if strings.TrimSpace(cfg.YtDlpBinary) == "" {
		cfg.YtDlpBinary = "yt-dlp"
	}
	return &Acquirer{
		cfg:     cfg,
		allowed: allowed,
		logger:  logging.NewComponentLogger(logger, "media"),
		newID:   func() string { return uuid.NewString() },
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (a *Acquirer) WithCommandRunner(runner CommandRunner) {
	a.commandRunner = runner
}

// Init resolves the yt-dlp binary so URL acquisition fails at startup rather
// than on the first request.
func (a *Acquirer) Init() error {
	resolved, err := deps.ResolveBinary("yt-dlp", a.cfg.YtDlpBinary)
	if err != nil {
		return err
	}
	a.ytdlp = resolved
	return nil
}

// StorageDir returns the directory assets are written to.
func (a *Acquirer) StorageDir() string {
	return a.cfg.StorageDir
}

// CheckExtension returns the lowercase extension of name when it is allowed.
func (a *Acquirer) CheckExtension(name string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(strings.TrimSpace(name))), ".")
	if ext == "" {
		return "", services.Wrap(services.ErrUnsupportedFormat, stageName, "check extension", fmt.Sprintf("file %q has no extension", name), nil)
	}
	if _, ok := a.allowed[ext]; !ok {
		return "", services.Wrap(services.ErrUnsupportedFormat, stageName, "check extension", fmt.Sprintf("extension %q is not allowed", ext), nil)
	}
	return ext, nil
}

// CheckDeclaredSize rejects a payload whose declared length already exceeds the ceiling.
func (a *Acquirer) CheckDeclaredSize(size int64) error {
	if a.cfg.MaxBytes > 0 && size > a.cfg.MaxBytes {
		return a.tooLarge()
	}
	return nil
}

func (a *Acquirer) tooLarge() error {
	return services.Wrap(services.ErrPayloadTooLarge, stageName, "store upload",
		fmt.Sprintf("file too large (limit %dMB)", a.cfg.MaxBytes/(1<<20)), nil)
}

// FromUpload validates and streams an uploaded file into storage. The extension
// check happens before anything touches disk. declaredSize may be -1 when unknown.
func (a *Acquirer) FromUpload(ctx context.Context, originalName string, declaredSize int64, r io.Reader) (Asset, error) {
	ext, err := a.CheckExtension(originalName)
	if err != nil {
		return Asset{}, err
	}
	if err := a.CheckDeclaredSize(declaredSize); err != nil {
		return Asset{}, err
	}
	if err := ctx.Err(); err != nil {
		return Asset{}, services.Wrap(services.ErrAcquisition, stageName, "store upload", "request cancelled", err)
	}
	return a.store(ctx, SourceUpload, originalName, ext, func(dst string) (fileutil.Written, error) {
		return fileutil.WriteLimited(dst, r, a.cfg.MaxBytes)
	})
}

// FromFile copies a local file into storage under the same rules as an upload.
func (a *Acquirer) FromFile(ctx context.Context, path string) (Asset, error) {
	ext, err := a.CheckExtension(path)
	if err != nil {
		return Asset{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Asset{}, services.Wrap(services.ErrBadRequest, stageName, "store file", "stat source", err)
	}
	if err := a.CheckDeclaredSize(info.Size()); err != nil {
		return Asset{}, err
	}
	return a.store(ctx, SourceFile, filepath.Base(path), ext, func(dst string) (fileutil.Written, error) {
		return fileutil.CopyFile(path, dst, a.cfg.MaxBytes)
	})
}

func (a *Acquirer) store(ctx context.Context, source, originalName, ext string, write func(dst string) (fileutil.Written, error)) (Asset, error) {
	if err := os.MkdirAll(a.cfg.StorageDir, 0o755); err != nil {
		return Asset{}, services.Wrap(services.ErrAcquisition, stageName, "store "+source, "ensure storage dir", err)
	}
	filename := a.newID() + "." + ext
	dst := filepath.Join(a.cfg.StorageDir, filename)
	written, err := write(dst)
	if err != nil {
		if errors.Is(err, fileutil.ErrLimitExceeded) {
			return Asset{}, a.tooLarge()
		}
		return Asset{}, services.Wrap(services.ErrAcquisition, stageName, "store "+source, "write file", err)
	}
	asset := Asset{
		Filename:     filename,
		Path:         dst,
		Size:         written.Bytes,
		BLAKE3:       written.BLAKE3,
		Source:       source,
		OriginalName: originalName,
	}
	a.logAcquired(ctx, asset)
	return asset, nil
}

// FromURL downloads remote media with yt-dlp into storage as {uuid}.mp4.
func (a *Acquirer) FromURL(ctx context.Context, rawURL string) (Asset, error) {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return Asset{}, services.Wrap(services.ErrBadRequest, stageName, "fetch url", fmt.Sprintf("invalid media url %q", rawURL), err)
	}
	if a.ytdlp == "" && a.commandRunner == nil {
		return Asset{}, services.Wrap(services.ErrConfiguration, stageName, "fetch url", "yt-dlp not initialized", nil)
	}
	if err := os.MkdirAll(a.cfg.StorageDir, 0o755); err != nil {
		return Asset{}, services.Wrap(services.ErrAcquisition, stageName, "fetch url", "ensure storage dir", err)
	}

	id := a.newID()
	filename := id + ".mp4"
	dst := filepath.Join(a.cfg.StorageDir, filename)

	fetchCtx := ctx
	if a.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, a.cfg.FetchTimeout)
		defer cancel()
	}

	logging.WithContext(ctx, a.logger).Info("downloading media", logging.String("url", rawURL))
	if err := a.run(fetchCtx, a.binary(), a.ytdlpArgs(rawURL, dst)...); err != nil {
		a.removePartials(id)
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			return Asset{}, services.Wrap(services.ErrTimeout, stageName, "fetch url", fmt.Sprintf("download exceeded %s", a.cfg.FetchTimeout), err)
		}
		return Asset{}, services.Wrap(services.ErrAcquisition, stageName, "fetch url", "yt-dlp failed", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		a.removePartials(id)
		return Asset{}, services.Wrap(services.ErrAcquisition, stageName, "fetch url", "downloaded file missing", err)
	}
	hash, err := fileutil.HashFile(dst)
	if err != nil {
		a.removePartials(id)
		return Asset{}, services.Wrap(services.ErrAcquisition, stageName, "fetch url", "hash download", err)
	}
	asset := Asset{
		Filename:     filename,
		Path:         dst,
		Size:         info.Size(),
		BLAKE3:       hash,
		Source:       SourceURL,
		OriginalName: rawURL,
	}
	a.logAcquired(ctx, asset)
	return asset, nil
}

func (a *Acquirer) binary() string {
	if a.ytdlp != "" {
		return a.ytdlp
	}
	return a.cfg.YtDlpBinary
}

func (a *Acquirer) ytdlpArgs(rawURL, dst string) []string {
	args := []string{
		"--no-playlist",
		"--quiet",
		"--no-progress",
		"--no-part",
		"--merge-output-format", "mp4",
		"-o", dst,
	}
	if format := strings.TrimSpace(a.cfg.YtDlpFormat); format != "" {
		args = append(args, "-f", format)
	}
	return append(args, "--", rawURL)
}

// removePartials deletes every file yt-dlp may have left behind for id,
// including intermediate per-stream downloads.
func (a *Acquirer) removePartials(id string) {
	matches, err := filepath.Glob(filepath.Join(a.cfg.StorageDir, id+"*"))
	if err != nil {
		return
	}
	for _, match := range matches {
		if rmErr := os.Remove(match); rmErr != nil && !os.IsNotExist(rmErr) {
			a.logger.Warn("remove partial download failed",
				logging.String("path", match),
				logging.Error(rmErr),
			)
		}
	}
}

func (a *Acquirer) run(ctx context.Context, name string, args ...string) error {
	if a.commandRunner != nil {
		return a.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (a *Acquirer) logAcquired(ctx context.Context, asset Asset) {
	logging.WithContext(ctx, a.logger).Info("media stored",
		logging.String("filename", asset.Filename),
		logging.String("source", asset.Source),
		logging.Int64("bytes", asset.Size),
		logging.String("blake3", asset.BLAKE3),
	)
}
