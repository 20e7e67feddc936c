package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"multivox/internal/api"
	"multivox/internal/deps"
	"multivox/internal/history"
	"multivox/internal/logging"
	"multivox/internal/media"
	"multivox/internal/pipeline"
	"multivox/internal/translation"
)

const (
	// multipartOverhead is the allowance for form boundaries and text fields
	// on top of the media size ceiling.
	multipartOverhead = 1 << 20
	// maxFieldBytes caps a single non-file form field.
	maxFieldBytes = 64 << 10
	// maxJSONBody caps JSON request bodies.
	maxJSONBody = 1 << 20

	shutdownTimeout = 5 * time.Second
)

// SubtitleRunner executes one subtitle generation request.
type SubtitleRunner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// ReadinessChecker reports whether the transcription engine can accept work.
type ReadinessChecker interface {
	Ready() bool
	Model() string
	CUDAEnabled() bool
}

// UploadChecker vets an upload's filename before any of its bytes are read.
type UploadChecker interface {
	CheckExtension(name string) (string, error)
}

// HistoryStore persists translations made through the API.
type HistoryStore interface {
	Save(ctx context.Context, entry history.Entry) (history.Entry, error)
	Get(ctx context.Context, id string) (history.Entry, error)
	ListByOwner(ctx context.Context, owner string, limit int) ([]history.Entry, error)
}

// Options configures a Server.
type Options struct {
	Bind       string
	Token      string
	StorageDir string
	// MaxUploadBytes is the media size ceiling; requests declaring a larger
	// body are rejected before any of it is read.
	MaxUploadBytes int64
	ChunkSize      int
	// RequestTimeout bounds how long a subtitle request may hold the connection.
	RequestTimeout time.Duration

	RetentionMaxAge        time.Duration
	RetentionSweepInterval time.Duration

	Requirements []deps.Requirement

	Pipeline SubtitleRunner
	// Uploads, when set, rejects disallowed file parts before they are spooled.
	Uploads     UploadChecker
	Transcriber ReadinessChecker
	Translator  translation.SourceTranslator
	// History is optional; nil disables the history endpoints.
	History HistoryStore
	Logger  *slog.Logger
}

// Server is the Multivox HTTP API.
type Server struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	cancel   context.CancelFunc
	done     chan struct{}
}

// New validates opts and builds the server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Pipeline == nil {
		return nil, errors.New("server requires a subtitle pipeline")
	}
	if opts.Translator == nil {
		return nil, errors.New("server requires a translator")
	}
	if strings.TrimSpace(opts.StorageDir) == "" {
		return nil, errors.New("server requires a storage directory")
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = translation.DefaultChunkSize
	}
	s := &Server{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "api"),
	}

	writeTimeout := opts.RequestTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Minute
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Minute,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler with request-id and auth middleware applied.
func (s *Server) Handler() http.Handler {
	token := strings.TrimSpace(s.opts.Token)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/files/", authMiddleware(token, s.handleFile))
	mux.HandleFunc("/api/generate-subtitles", authMiddleware(token, s.handleGenerate))
	mux.HandleFunc("/api/languages", authMiddleware(token, s.handleLanguages))
	mux.HandleFunc("/api/translate", authMiddleware(token, s.handleTranslate))
	mux.HandleFunc("/api/history", authMiddleware(token, s.handleHistory))
	mux.HandleFunc("/api/history/", authMiddleware(token, s.handleHistoryItem))
	return requestIDMiddleware(s.logger, mux)
}

// Start listens on the configured bind address and serves until ctx ends or
// Stop is called. The retention sweeper runs alongside when enabled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("server already running")
	}
	listener, err := net.Listen("tcp", s.opts.Bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_serve_failed", logging.Error(err))
		}
	}()

	go func() {
		defer close(s.done)
		s.sweepLoop(runCtx)
	}()

	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth", strings.TrimSpace(s.opts.Token) != ""),
		logging.String(logging.FieldEventType, "api_started"),
	)
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down and waits for the sweeper to exit.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.done != nil {
		<-s.done
		s.done = nil
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *Server) sweepLoop(ctx context.Context) {
	if s.opts.RetentionMaxAge <= 0 {
		return
	}
	interval := s.opts.RetentionSweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	s.sweepOnce(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Server) sweepOnce(ctx context.Context) media.SweepResult {
	result := media.Sweep(ctx, s.opts.StorageDir, s.opts.RetentionMaxAge, s.logger)
	if len(result.Removed) > 0 || len(result.Errors) > 0 {
		s.logger.Info("retention sweep finished",
			logging.Int("removed", len(result.Removed)),
			logging.Int64("freed_bytes", result.Freed),
			logging.Int("errors", len(result.Errors)),
			logging.String(logging.FieldEventType, "retention_sweep_summary"),
		)
	}
	return result
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("api response encode failed", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
