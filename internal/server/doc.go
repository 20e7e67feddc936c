// Package server exposes the Multivox HTTP API.
//
// Routes:
//
//	POST /api/generate-subtitles  multipart (language, videoUrl, file, burnSubtitles)
//	GET  /files/{filename}        stored media by generated filename
//	GET  /health                  transcriber readiness and binary checks
//	GET  /api/languages           target language catalog
//	POST /api/translate           JSON text translation, optional history save
//	GET  /api/history?owner=      an owner's saved translations, newest first
//	GET  /api/history/{id}        one saved translation
//
// Every route except /health sits behind optional bearer-token auth. Each
// request carries an X-Request-ID that flows into log lines as correlation_id.
//
// Requests declaring a body larger than the upload ceiling are refused before
// the body is read. Errors are returned as {"error": "..."} with the status
// chosen by services.HTTPStatus.
//
// When retention is configured, Start also runs a sweeper that evicts stored
// media older than the configured age.
package server
