package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"multivox/internal/language"
	"multivox/internal/logging"
	"multivox/internal/media"
	"multivox/internal/services"
	"multivox/internal/subtitles"
	"multivox/internal/translation"
)

// Stage names a pipeline state.
type Stage string

const (
	StageReceived     Stage = "received"
	StageAcquiring    Stage = "acquiring"
	StageTranscribing Stage = "transcribing"
	StageTranslating  Stage = "translating"
	StageAssembling   Stage = "assembling"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// NoticeBurnUnsupported is attached when a caller asks for burned-in subtitles.
const NoticeBurnUnsupported = "burnSubtitles is not supported; subtitles are returned as SRT only"

// StageError reports which stage ended the run and why.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Acquirer persists request media into storage.
type Acquirer interface {
	FromUpload(ctx context.Context, originalName string, declaredSize int64, r io.Reader) (media.Asset, error)
	FromURL(ctx context.Context, rawURL string) (media.Asset, error)
	FromFile(ctx context.Context, path string) (media.Asset, error)
}

// Transcriber turns a stored media file into ordered segments.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string) ([]subtitles.Segment, error)
}

// Upload is a multipart file part.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// Request describes one subtitle job. Exactly one of VideoURL, Upload, or
// LocalPath must be set.
type Request struct {
	Language      string
	VideoURL      string
	Upload        *Upload
	LocalPath     string
	BurnSubtitles bool
}

// Result is the Done payload.
type Result struct {
	Subtitles             []subtitles.Segment `json:"subtitles"`
	SRT                   string              `json:"srt"`
	Language              string              `json:"language"`
	OriginalMediaFilename string              `json:"originalMediaFilename"`
	Notices               []string            `json:"notices,omitempty"`
}

// Options configures a Pipeline.
type Options struct {
	Translation translation.Options
	Logger      *slog.Logger
	// Observer, when set, is called on every stage transition.
	Observer func(Stage)
}

// Pipeline wires the acquirer, transcriber, and translator together.
type Pipeline struct {
	acquirer    Acquirer
	transcriber Transcriber
	translator  translation.Translator
	opts        Options
	logger      *slog.Logger
}

// New constructs a Pipeline.
func New(acquirer Acquirer, transcriber Transcriber, translator translation.Translator, opts Options) *Pipeline {
	return &Pipeline{
		acquirer:    acquirer,
		transcriber: transcriber,
		translator:  translator,
		opts:        opts,
		logger:      logging.NewComponentLogger(opts.Logger, "pipeline"),
	}
}

// Run executes the request. On failure the returned error is a *StageError.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	started := time.Now()

	p.enter(ctx, StageReceived)
	targetLang, err := validate(req)
	if err != nil {
		return Result{}, p.fail(ctx, StageReceived, err)
	}
	ctx = services.WithTarget(ctx, targetLang)

	acquireCtx := p.enter(ctx, StageAcquiring)
	asset, err := p.acquire(acquireCtx, req)
	if err != nil {
		return Result{}, p.fail(acquireCtx, StageAcquiring, err)
	}

	transcribeCtx := p.enter(ctx, StageTranscribing)
	segs, err := p.transcriber.Transcribe(transcribeCtx, asset.Path)
	if err != nil {
		if !errors.Is(err, services.ErrTimeout) && !errors.Is(err, services.ErrConfiguration) && !errors.Is(err, services.ErrTranscription) {
			err = services.Wrap(services.ErrTranscription, string(StageTranscribing), "transcribe", "engine failed", err)
		}
		return Result{}, p.fail(transcribeCtx, StageTranscribing, err)
	}

	var notices []string
	translateCtx := p.enter(ctx, StageTranslating)
	var translated []subtitles.Segment
	if targetLang != language.Same {
		opts := p.opts.Translation
		if opts.Logger == nil {
			opts.Logger = p.logger
		}
		var failed int
		translated, failed = translation.TranslateSegments(translateCtx, segs, targetLang, p.translator, opts)
		if failed > 0 {
			notices = append(notices, fmt.Sprintf("%d of %d segments could not be translated and are marked [Error]", failed, len(segs)))
		}
	} else {
		translated = subtitles.Clone(segs)
	}

	p.enter(ctx, StageAssembling)
	srt := subtitles.ToSRT(translated)

	if req.BurnSubtitles {
		notices = append(notices, NoticeBurnUnsupported)
	}
	if translated == nil {
		translated = []subtitles.Segment{}
	}

	doneCtx := p.enter(ctx, StageDone)
	logging.WithContext(doneCtx, p.logger).Info("subtitles generated",
		logging.String("media", asset.Filename),
		logging.String("language", targetLang),
		logging.Int("segments", len(translated)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return Result{
		Subtitles:             translated,
		SRT:                   srt,
		Language:              targetLang,
		OriginalMediaFilename: asset.Filename,
		Notices:               notices,
	}, nil
}

func validate(req Request) (string, error) {
	sources := 0
	if strings.TrimSpace(req.VideoURL) != "" {
		sources++
	}
	if req.Upload != nil {
		sources++
	}
	if strings.TrimSpace(req.LocalPath) != "" {
		sources++
	}
	switch sources {
	case 0:
		return "", services.Wrap(services.ErrBadRequest, string(StageReceived), "validate", "no valid video or file provided", nil)
	case 1:
	default:
		return "", services.Wrap(services.ErrBadRequest, string(StageReceived), "validate", "provide exactly one of videoUrl or file", nil)
	}
	return language.Validate(req.Language)
}

func (p *Pipeline) acquire(ctx context.Context, req Request) (media.Asset, error) {
	switch {
	case req.Upload != nil:
		if req.Upload.Body == nil {
			return media.Asset{}, services.Wrap(services.ErrBadRequest, string(StageAcquiring), "store upload", "empty upload", nil)
		}
		return p.acquirer.FromUpload(ctx, req.Upload.Filename, req.Upload.Size, req.Upload.Body)
	case strings.TrimSpace(req.VideoURL) != "":
		return p.acquirer.FromURL(ctx, req.VideoURL)
	default:
		return p.acquirer.FromFile(ctx, req.LocalPath)
	}
}

func (p *Pipeline) enter(ctx context.Context, stage Stage) context.Context {
	if p.opts.Observer != nil {
		p.opts.Observer(stage)
	}
	ctx = services.WithStage(ctx, string(stage))
	logging.WithContext(ctx, p.logger).Debug("stage entered")
	return ctx
}

func (p *Pipeline) fail(ctx context.Context, stage Stage, err error) error {
	p.enter(ctx, StageFailed)
	logging.ErrorWithContext(logging.WithContext(ctx, p.logger), "subtitle request failed", "pipeline_failed",
		logging.String("failed_stage", string(stage)),
		logging.Error(err),
	)
	return &StageError{Stage: stage, Err: err}
}
