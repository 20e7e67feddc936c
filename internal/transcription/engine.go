package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"multivox/internal/deps"
	"multivox/internal/language"
	"multivox/internal/logging"
	"multivox/internal/services"
	"multivox/internal/subtitles"
)

const stageName = "transcribing"

// CommandRunner executes an external command and returns its failure, if any.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Engine provides WhisperX transcription.
type Engine struct {
	cfg           Config
	logger        *slog.Logger
	ffmpegBinary  string
	launcher      string
	commandRunner CommandRunner
	ready         atomic.Bool
}

// New creates an engine. Call Init before Transcribe.
func New(cfg Config, logger *slog.Logger) *Engine {
	if strings.TrimSpace(cfg.FFmpegBinary) == "" {
		cfg.FFmpegBinary = FFmpegCommand
	}
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = UVXCommand
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if strings.TrimSpace(cfg.VADMethod) == "" {
		cfg.VADMethod = VADMethodSilero
	}
	return &Engine{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "transcription"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Engine) WithCommandRunner(runner CommandRunner) {
	e.commandRunner = runner
}

// Init resolves the external binaries and marks the engine ready.
func (e *Engine) Init() error {
	ffmpegPath, err := deps.ResolveBinary("ffmpeg", e.cfg.FFmpegBinary)
	if err != nil {
		return err
	}
	launcher, err := deps.ResolveBinary("whisperx launcher", e.cfg.Command)
	if err != nil {
		return err
	}
	e.ffmpegBinary = ffmpegPath
	e.launcher = launcher
	e.ready.Store(true)
	e.logger.Info("transcription engine ready",
		logging.String("model", e.cfg.Model),
		logging.Bool("cuda", e.cfg.CUDAEnabled),
		logging.String("vad_method", e.cfg.VADMethod),
		logging.String("ffmpeg", ffmpegPath),
	)
	return nil
}

// Ready reports whether Init succeeded.
func (e *Engine) Ready() bool {
	return e != nil && e.ready.Load()
}

// Model returns the configured model name for logging.
func (e *Engine) Model() string {
	return e.cfg.Model
}

// CUDAEnabled returns whether CUDA is enabled.
func (e *Engine) CUDAEnabled() bool {
	return e.cfg.CUDAEnabled
}

// Transcribe extracts audio from mediaPath and returns the ordered segments
// WhisperX produced.
func (e *Engine) Transcribe(ctx context.Context, mediaPath string) ([]subtitles.Segment, error) {
	if !e.Ready() {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "transcribe", "engine not initialized", nil)
	}
	if strings.TrimSpace(mediaPath) == "" {
		return nil, services.Wrap(services.ErrTranscription, stageName, "transcribe", "media path required", nil)
	}
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	workDir, err := os.MkdirTemp("", "multivox-transcribe-*")
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, stageName, "transcribe", "create work dir", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			e.logger.Warn("remove transcription work dir failed",
				logging.String("path", workDir),
				logging.Error(rmErr),
			)
		}
	}()

	started := time.Now()
	audioPath := filepath.Join(workDir, "audio.wav")
	if err := e.run(ctx, e.ffmpegBinary, buildFFmpegExtractArgs(mediaPath, audioPath)...); err != nil {
		return nil, e.classify(ctx, "extract audio", err)
	}
	if err := e.run(ctx, e.launcher, e.buildArgs(audioPath, workDir)...); err != nil {
		return nil, e.classify(ctx, "whisperx", err)
	}

	raw, err := LoadSegments(filepath.Join(workDir, "audio.json"))
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, stageName, "load segments", "read whisperx output", err)
	}
	segs := make([]subtitles.Segment, 0, len(raw))
	for _, seg := range raw {
		segs = append(segs, subtitles.Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	logging.WithContext(ctx, e.logger).Info("transcription completed",
		logging.Int("segments", len(segs)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return segs, nil
}

func (e *Engine) classify(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stageName, op, fmt.Sprintf("exceeded %s", e.cfg.Timeout), err)
	}
	return services.Wrap(services.ErrTranscription, stageName, op, "command failed", err)
}

// run executes a command, using the custom runner if set.
func (e *Engine) run(ctx context.Context, name string, args ...string) error {
	if e.commandRunner != nil {
		return e.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, strings.TrimSpace(string(output)))
	}
	return nil
}

func buildFFmpegExtractArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}

// buildArgs constructs the launcher arguments for WhisperX.
func (e *Engine) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 40)

	if e.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", e.cfg.Model,
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--temperature", Temperature,
		"--vad_method", e.cfg.VADMethod,
	)
	if e.cfg.VADMethod == VADMethodPyannote && e.cfg.HFToken != "" {
		args = append(args, "--hf_token", e.cfg.HFToken)
	}

	if lang := language.Normalize(e.cfg.Language); lang != "" && lang != language.Same {
		args = append(args, "--language", lang)
	}

	if e.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperXPayload struct {
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from a WhisperX JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload.Segments, nil
}
