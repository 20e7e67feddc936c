package translation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"multivox/internal/language"
	"multivox/internal/logging"
	"multivox/internal/subtitles"
)

const (
	// DefaultChunkSize caps the characters sent per translation call.
	DefaultChunkSize = 5000
	// DefaultWorkers bounds concurrent segment translations.
	DefaultWorkers = 4

	sentinelPrefix  = "[Error] "
	sentinelSuffix  = "..."
	sentinelExcerpt = 100
)

// Translator translates one chunk of text into targetLang.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// TranslatorFunc adapts a function to the Translator interface.
type TranslatorFunc func(ctx context.Context, text, targetLang string) (string, error)

// Translate calls f.
func (f TranslatorFunc) Translate(ctx context.Context, text, targetLang string) (string, error) {
	return f(ctx, text, targetLang)
}

// Options tunes segment translation.
type Options struct {
	ChunkSize int
	Workers   int
	Logger    *slog.Logger
}

// SegmentResult is the outcome for one input segment. Segment always carries
// the original timing; its Text is the translation when Err is nil.
type SegmentResult struct {
	Index   int
	Segment subtitles.Segment
	Err     error
}

// Failed reports whether the segment translation failed.
func (r SegmentResult) Failed() bool { return r.Err != nil }

// SentinelText is the visible replacement for a segment whose translation
// failed: the first 100 characters of the original followed by an ellipsis.
func SentinelText(original string) string {
	runes := []rune(original)
	if len(runes) > sentinelExcerpt {
		runes = runes[:sentinelExcerpt]
	}
	return sentinelPrefix + string(runes) + sentinelSuffix
}

// SplitChunks splits text into consecutive pieces of at most size characters.
// Concatenating the pieces reproduces text exactly.
func SplitChunks(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// TranslateText translates text chunk by chunk, in order, and concatenates the
// results. The first failing chunk aborts the text.
func TranslateText(ctx context.Context, tr Translator, text, targetLang string, chunkSize int) (string, error) {
	chunks := SplitChunks(text, chunkSize)
	var b strings.Builder
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		translated, err := tr.Translate(ctx, chunk, targetLang)
		if err != nil {
			return "", err
		}
		b.WriteString(translated)
	}
	return b.String(), nil
}

// SourceTranslator translates one chunk with an explicit or detected source language.
type SourceTranslator interface {
	TranslateFrom(ctx context.Context, text, sourceLang, targetLang string) (Result, error)
}

// TranslateDocument is TranslateText for callers that pin or report the source
// language. The detected language of the first chunk is returned; an empty or
// "auto" sourceLang asks the endpoint to detect it.
func TranslateDocument(ctx context.Context, tr SourceTranslator, text, sourceLang, targetLang string, chunkSize int) (Result, error) {
	var b strings.Builder
	detected := sourceLang
	for i, chunk := range SplitChunks(text, chunkSize) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		result, err := tr.TranslateFrom(ctx, chunk, sourceLang, targetLang)
		if err != nil {
			return Result{}, fmt.Errorf("chunk %d: %w", i+1, err)
		}
		if i == 0 && result.SourceLang != "" {
			detected = result.SourceLang
		}
		b.WriteString(result.Text)
	}
	return Result{Text: b.String(), SourceLang: detected}, nil
}

// Segments translates every segment and returns one result per input, in input
// order. "same" and blank text pass through untouched.
func Segments(ctx context.Context, segs []subtitles.Segment, targetLang string, tr Translator, opts Options) []SegmentResult {
	results := make([]SegmentResult, len(segs))
	for i, seg := range segs {
		results[i] = SegmentResult{Index: i, Segment: seg}
	}
	if targetLang == language.Same || len(segs) == 0 {
		return results
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	workers = min(workers, len(segs))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				seg := segs[i]
				translated, err := TranslateText(ctx, tr, seg.Text, targetLang, chunkSize)
				if err != nil {
					results[i].Err = err
					continue
				}
				results[i].Segment.Text = translated
			}
		}()
	}
	for i, seg := range segs {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

// Apply folds results into the final segment list. Failed segments keep their
// timing and carry SentinelText of the original text instead of a translation.
func Apply(results []SegmentResult) []subtitles.Segment {
	out := make([]subtitles.Segment, len(results))
	for i, result := range results {
		seg := result.Segment
		if result.Err != nil {
			seg.Text = SentinelText(seg.Text)
		}
		out[i] = seg
	}
	return out
}

// TranslateSegments translates segs into targetLang and reports how many
// segments failed. The output always has the same length and timing as the
// input; per-segment failures become sentinel text and are logged, never returned.
func TranslateSegments(ctx context.Context, segs []subtitles.Segment, targetLang string, tr Translator, opts Options) ([]subtitles.Segment, int) {
	results := Segments(ctx, segs, targetLang, tr, opts)
	logger := logging.WithContext(ctx, opts.Logger)
	failed := 0
	for _, result := range results {
		if !result.Failed() {
			continue
		}
		failed++
		logging.WarnWithContext(logger, "segment translation failed", "translation_segment_failed",
			logging.Int("segment", result.Index),
			logging.String("target_lang", targetLang),
			logging.Error(result.Err),
			logging.String(logging.FieldImpact, "segment replaced with error marker"),
			logging.String(logging.FieldErrorHint, "check translation endpoint reachability and rate limits"),
		)
	}
	return Apply(results), failed
}
