// Package language holds the catalog of subtitle target languages and the
// normalization rules shared by the HTTP API, the CLI, and the translation
// client.
//
// Codes are parsed with golang.org/x/text/language so callers may pass ISO
// 639-1, ISO 639-2, BCP 47 tags, or English word forms. Validate keeps script
// and region (zh-TW, pt-BR) for subtitle targets outside the catalog; the
// translate endpoint folds to a catalog code. The reserved value "same" means
// "keep the transcription language".
package language
