package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"multivox/internal/api"
	"multivox/internal/deps"
	"multivox/internal/history"
	"multivox/internal/language"
	"multivox/internal/logging"
	"multivox/internal/media"
	"multivox/internal/pipeline"
	"multivox/internal/services"
	"multivox/internal/translation"
)

func (s *Server) maxRequestBytes() int64 {
	if s.opts.MaxUploadBytes <= 0 {
		return 0
	}
	return s.opts.MaxUploadBytes + multipartOverhead
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := s.maxRequestBytes()
	if limit > 0 {
		if r.ContentLength > limit {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("payload too large: request exceeds %d bytes", s.opts.MaxUploadBytes))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	req, cleanup, err := s.parseGenerateRequest(r)
	defer cleanup()
	if err != nil {
		s.writeError(w, services.HTTPStatus(err), err.Error())
		return
	}

	result, err := s.opts.Pipeline.Run(r.Context(), req)
	if err != nil {
		s.writeError(w, services.HTTPStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// parseGenerateRequest accepts multipart or urlencoded forms. The returned
// cleanup removes any spooled upload and must always be called.
func (s *Server) parseGenerateRequest(r *http.Request) (pipeline.Request, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		return s.parseMultipart(r)
	}

	var req pipeline.Request
	cleanup := func() {}
	if err := r.ParseForm(); err != nil {
		return req, cleanup, classifyBodyError(err)
	}
	applyFormFields(&req, r.PostForm)
	return req, cleanup, nil
}

// parseMultipart walks the parts in order. The file part's name is checked
// first, then the part is spooled to a temp file capped at the upload ceiling.
func (s *Server) parseMultipart(r *http.Request) (pipeline.Request, func(), error) {
	var req pipeline.Request
	var spool *os.File
	cleanup := func() {
		if spool != nil {
			_ = spool.Close()
			_ = os.Remove(spool.Name())
		}
	}

	reader, err := r.MultipartReader()
	if err != nil {
		return req, cleanup, classifyBodyError(err)
	}
	fields := url.Values{}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return req, cleanup, classifyBodyError(err)
		}

		if part.FileName() == "" {
			data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
			_ = part.Close()
			if err != nil {
				return req, cleanup, classifyBodyError(err)
			}
			if len(data) > maxFieldBytes {
				return req, cleanup, services.Wrap(services.ErrBadRequest, "received", "read form", fmt.Sprintf("field %q is too long", part.FormName()), nil)
			}
			fields.Add(part.FormName(), string(data))
			continue
		}

		if part.FormName() != "file" || spool != nil {
			_, _ = io.Copy(io.Discard, part)
			_ = part.Close()
			continue
		}
		filename := part.FileName()
		if s.opts.Uploads != nil {
			if _, err := s.opts.Uploads.CheckExtension(filename); err != nil {
				_ = part.Close()
				return req, cleanup, err
			}
		}
		spool, err = os.CreateTemp("", "multivox-upload-*")
		if err != nil {
			_ = part.Close()
			return req, cleanup, services.Wrap(services.ErrAcquisition, "received", "spool upload", "create temp file", err)
		}
		size, err := s.copyUpload(spool, part)
		_ = part.Close()
		if err != nil {
			return req, cleanup, err
		}
		if _, err := spool.Seek(0, io.SeekStart); err != nil {
			return req, cleanup, services.Wrap(services.ErrAcquisition, "received", "spool upload", "rewind temp file", err)
		}
		req.Upload = &pipeline.Upload{Filename: filename, Size: size, Body: spool}
	}
	applyFormFields(&req, fields)
	return req, cleanup, nil
}

func (s *Server) copyUpload(dst io.Writer, src io.Reader) (int64, error) {
	limit := s.opts.MaxUploadBytes
	if limit <= 0 {
		n, err := io.Copy(dst, src)
		if err != nil {
			return n, classifyBodyError(err)
		}
		return n, nil
	}
	n, err := io.Copy(dst, io.LimitReader(src, limit+1))
	if err != nil {
		return n, classifyBodyError(err)
	}
	if n > limit {
		return n, services.Wrap(services.ErrPayloadTooLarge, "received", "spool upload",
			fmt.Sprintf("file too large (limit %dMB)", limit/(1<<20)), nil)
	}
	return n, nil
}

func applyFormFields(req *pipeline.Request, fields url.Values) {
	req.Language = fields.Get("language")
	req.VideoURL = strings.TrimSpace(fields.Get("videoUrl"))
	req.BurnSubtitles = strings.EqualFold(strings.TrimSpace(fields.Get("burnSubtitles")), "true")
}

func classifyBodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return services.Wrap(services.ErrPayloadTooLarge, "received", "read body", fmt.Sprintf("request exceeds %d bytes", maxErr.Limit), nil)
	}
	return services.Wrap(services.ErrBadRequest, "received", "read body", "malformed form data", err)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/files/")
	file, info, err := media.Open(s.opts.StorageDir, name)
	if err != nil {
		status := services.HTTPStatus(err)
		if status == http.StatusInternalServerError {
			logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "stored media unreadable", "media_open_failed",
				logging.String("filename", name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check storage_dir permissions"),
			)
		}
		s.writeError(w, status, err.Error())
		return
	}
	defer file.Close()
	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	statuses := deps.CheckBinaries(s.opts.Requirements)
	payload := api.HealthResponse{
		Status:         api.HealthOK,
		Dependencies:   api.FromDependencyStatuses(statuses),
		HistoryEnabled: s.opts.History != nil,
	}
	if t := s.opts.Transcriber; t != nil {
		payload.Transcriber = api.TranscriberStatus{Ready: t.Ready(), Model: t.Model(), CUDA: t.CUDAEnabled()}
	}
	status := http.StatusOK
	if !payload.Transcriber.Ready || len(deps.MissingRequired(statuses)) > 0 {
		payload.Status = api.HealthDegraded
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, payload)
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, api.LanguagesResponse{
		Default:   language.Default,
		Languages: api.FromLanguages(language.Supported()),
	})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body api.TranslateRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := decoder.Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, classifyBodyError(err).Error())
		return
	}
	text := body.Text
	if strings.TrimSpace(text) == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	target := language.Normalize(body.TargetLang)
	if target == "" || target == language.Same || !language.IsSupported(target) {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported target_lang %q", body.TargetLang))
		return
	}
	source := strings.TrimSpace(body.SourceLang)
	if source != "" && !strings.EqualFold(source, "auto") {
		if source = language.Normalize(source); source == "" {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unrecognized source_lang %q", body.SourceLang))
			return
		}
	}

	ctx := r.Context()
	result, err := translation.TranslateDocument(ctx, s.opts.Translator, text, source, target, s.opts.ChunkSize)
	if err != nil {
		wrapped := services.Wrap(services.ErrExternalTool, "translating", "translate text", "translation endpoint failed", err)
		logging.ErrorWithContext(logging.WithContext(ctx, s.logger), "text translation failed", "translate_failed",
			logging.String("target_lang", target),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check translation.base_url and network access"),
		)
		s.writeError(w, services.HTTPStatus(wrapped), wrapped.Error())
		return
	}

	resp := api.TranslateResponse{
		TranslatedText:     result.Text,
		DetectedSourceLang: result.SourceLang,
	}
	if owner := strings.TrimSpace(body.Owner); owner != "" && s.opts.History != nil {
		entry, err := s.opts.History.Save(ctx, history.Entry{
			Owner:          owner,
			SourceText:     text,
			SourceLang:     result.SourceLang,
			TargetLang:     target,
			TranslatedText: resp.TranslatedText,
		})
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, s.logger), "translation history save failed", "history_save_failed",
				logging.String("owner", owner),
				logging.Error(err),
				logging.String(logging.FieldImpact, "translation returned without history id"),
				logging.String(logging.FieldErrorHint, "check history.db_path"),
			)
		} else {
			resp.TranslationID = entry.ID
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.opts.History == nil {
		s.writeError(w, http.StatusNotFound, "translation history is disabled")
		return
	}
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	entries, err := s.opts.History.ListByOwner(r.Context(), owner, limit)
	if err != nil {
		s.writeError(w, services.HTTPStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.HistoryListResponse{Owner: owner, Entries: api.FromHistoryEntries(entries)})
}

func (s *Server) handleHistoryItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.opts.History == nil {
		s.writeError(w, http.StatusNotFound, "translation history is disabled")
		return
	}
	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/api/history/"))
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "translation not found")
		return
	}
	entry, err := s.opts.History.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, services.HTTPStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromHistoryEntry(entry))
}
