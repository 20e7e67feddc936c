package api

import (
	"time"

	"multivox/internal/deps"
	"multivox/internal/history"
	"multivox/internal/language"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// TranscriberStatus mirrors readiness of the speech-to-text engine.
type TranscriberStatus struct {
	Ready bool   `json:"ready"`
	Model string `json:"model,omitempty"`
	CUDA  bool   `json:"cuda"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status         string             `json:"status"`
	Transcriber    TranscriberStatus  `json:"transcriber"`
	Dependencies   []DependencyStatus `json:"dependencies"`
	HistoryEnabled bool               `json:"historyEnabled"`
}

// Health statuses.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// Language is one entry of the target language catalog.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// LanguagesResponse is returned by GET /api/languages.
type LanguagesResponse struct {
	Default   string     `json:"default"`
	Languages []Language `json:"languages"`
}

// TranslateRequest is the body of POST /api/translate.
type TranslateRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"target_lang"`
	SourceLang string `json:"source_lang,omitempty"`
	Owner      string `json:"owner,omitempty"`
}

// TranslateResponse is returned by POST /api/translate.
type TranslateResponse struct {
	TranslatedText     string `json:"translated_text"`
	DetectedSourceLang string `json:"detected_source_lang"`
	TranslationID      string `json:"translation_id,omitempty"`
}

// HistoryEntry is a persisted translation in transport form.
type HistoryEntry struct {
	ID             string `json:"id"`
	Owner          string `json:"owner"`
	SourceText     string `json:"source_text"`
	SourceLang     string `json:"source_lang"`
	TargetLang     string `json:"target_lang"`
	TranslatedText string `json:"translated_text"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// HistoryListResponse wraps a collection of history entries.
type HistoryListResponse struct {
	Owner   string         `json:"owner"`
	Entries []HistoryEntry `json:"entries"`
}

// FromDependencyStatuses converts dependency checks to their API form.
func FromDependencyStatuses(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}

// FromLanguages converts the language catalog.
func FromLanguages(infos []language.Info) []Language {
	out := make([]Language, len(infos))
	for i, info := range infos {
		out[i] = Language{Code: info.Code, Name: info.Name}
	}
	return out
}

// FromHistoryEntry converts a stored translation.
func FromHistoryEntry(entry history.Entry) HistoryEntry {
	return HistoryEntry{
		ID:             entry.ID,
		Owner:          entry.Owner,
		SourceText:     entry.SourceText,
		SourceLang:     entry.SourceLang,
		TargetLang:     entry.TargetLang,
		TranslatedText: entry.TranslatedText,
		CreatedAt:      formatTime(entry.CreatedAt),
	}
}

// FromHistoryEntries converts a slice, never returning nil.
func FromHistoryEntries(entries []history.Entry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromHistoryEntry(entry))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
