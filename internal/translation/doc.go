// Package translation turns transcribed segments into a target language.
//
// Client talks to the hosted translate_a/single endpoint with retry and
// backoff. TranslateSegments fans segment work out over a bounded worker pool;
// each segment's outcome lands in its own slot, so a failed call only replaces
// that segment's text with visible sentinel text and never aborts the request.
package translation
