// Package api defines wire-format types and converters for the HTTP API
// layer. It translates internal models (dependency checks, the language
// catalog, translation history rows) into transport-friendly DTOs so handlers
// and the CLI render the same shapes without coupling to internal types.
//
// The subtitle generation response is pipeline.Result itself; its field names
// are already the public contract (subtitles, srt, language,
// originalMediaFilename).
//
// Translation payloads use snake_case keys to stay compatible with existing
// translator clients. Timestamps use RFC3339 with milliseconds.
package api
