package media

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"multivox/internal/services"
)

func newTestAcquirer(t *testing.T, maxBytes int64) (*Acquirer, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "uploads")
	acq := NewAcquirer(Config{
		StorageDir:        dir,
		MaxBytes:          maxBytes,
		AllowedExtensions: []string{"mp4", "MP3", ".wav"},
		YtDlpFormat:       "best",
	}, nil)
	acq.newID = func() string { return "fixed-id" }
	return acq, dir
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestFromUploadStoresFile(t *testing.T) {
	acq, dir := newTestAcquirer(t, 1024)
	asset, err := acq.FromUpload(context.Background(), "Holiday.MP4", 5, strings.NewReader("video"))
	if err != nil {
		t.Fatalf("FromUpload: %v", err)
	}
	if asset.Filename != "fixed-id.mp4" {
		t.Fatalf("filename = %q", asset.Filename)
	}
	if asset.Size != 5 || asset.Source != SourceUpload || asset.OriginalName != "Holiday.MP4" {
		t.Fatalf("unexpected asset %#v", asset)
	}
	if asset.BLAKE3 == "" {
		t.Fatal("expected content hash")
	}
	got, err := os.ReadFile(filepath.Join(dir, "fixed-id.mp4"))
	if err != nil || string(got) != "video" {
		t.Fatalf("stored content = %q, %v", got, err)
	}
}

func TestFromUploadRejectsExeBeforeWriting(t *testing.T) {
	acq, dir := newTestAcquirer(t, 1024)
	reader := &countingReader{r: strings.NewReader("MZ")}
	_, err := acq.FromUpload(context.Background(), "setup.exe", 2, reader)
	if !errors.Is(err, services.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if reader.reads != 0 {
		t.Fatal("upload body must not be read for a rejected extension")
	}
	if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
		t.Fatalf("storage dir must not be created, stat err %v (entries %v)", statErr, dirEntries(t, dir))
	}
}

func TestFromUploadRejectsMissingExtension(t *testing.T) {
	acq, _ := newTestAcquirer(t, 1024)
	if _, err := acq.FromUpload(context.Background(), "README", 1, strings.NewReader("x")); !errors.Is(err, services.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestFromUploadDeclaredSizeTooLarge(t *testing.T) {
	acq, dir := newTestAcquirer(t, 8)
	_, err := acq.FromUpload(context.Background(), "clip.wav", 9, strings.NewReader("123456789"))
	if !errors.Is(err, services.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if names := dirEntries(t, dir); len(names) != 0 {
		t.Fatalf("expected nothing stored, found %v", names)
	}
}

func TestFromUploadStreamTooLargeRemovesPartial(t *testing.T) {
	acq, dir := newTestAcquirer(t, 8)
	_, err := acq.FromUpload(context.Background(), "clip.mp3", -1, bytes.NewReader(make([]byte, 32)))
	if !errors.Is(err, services.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if names := dirEntries(t, dir); len(names) != 0 {
		t.Fatalf("expected partial removed, found %v", names)
	}
}

func TestFromFileCopiesIntoStorage(t *testing.T) {
	acq, dir := newTestAcquirer(t, 0)
	src := filepath.Join(t.TempDir(), "talk.wav")
	if err := os.WriteFile(src, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	asset, err := acq.FromFile(context.Background(), src)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if asset.Filename != "fixed-id.wav" || asset.Source != SourceFile {
		t.Fatalf("unexpected asset %#v", asset)
	}
	if _, err := os.Stat(filepath.Join(dir, "fixed-id.wav")); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
}

func TestFromURLDownloadsWithYtDlp(t *testing.T) {
	acq, dir := newTestAcquirer(t, 0)
	var gotArgs []string
	acq.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		gotArgs = args
		out := args[slices.Index(args, "-o")+1]
		return os.WriteFile(out, []byte("mp4 data"), 0o644)
	})

	asset, err := acq.FromURL(context.Background(), "https://example.com/watch?v=abc")
	if err != nil {
		t.Fatalf("FromURL: %v", err)
	}
	if asset.Filename != "fixed-id.mp4" || asset.Source != SourceURL || asset.Size != 8 {
		t.Fatalf("unexpected asset %#v", asset)
	}
	if gotArgs[len(gotArgs)-1] != "https://example.com/watch?v=abc" {
		t.Fatalf("url must be last argument, got %v", gotArgs)
	}
	if idx := slices.Index(gotArgs, "-f"); idx < 0 || gotArgs[idx+1] != "best" {
		t.Fatalf("expected format flag, got %v", gotArgs)
	}
	if names := dirEntries(t, dir); len(names) != 1 {
		t.Fatalf("expected one stored file, got %v", names)
	}
}

func TestFromURLFailureRemovesPartials(t *testing.T) {
	acq, dir := newTestAcquirer(t, 0)
	acq.WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
		out := args[slices.Index(args, "-o")+1]
		_ = os.WriteFile(out+".f137.mp4", []byte("partial"), 0o644)
		return errors.New("HTTP Error 403")
	})

	_, err := acq.FromURL(context.Background(), "https://example.com/video")
	if !errors.Is(err, services.ErrAcquisition) {
		t.Fatalf("expected ErrAcquisition, got %v", err)
	}
	if names := dirEntries(t, dir); len(names) != 0 {
		t.Fatalf("expected partials removed, found %v", names)
	}
}

func TestFromURLTimeout(t *testing.T) {
	acq, _ := newTestAcquirer(t, 0)
	acq.cfg.FetchTimeout = 20 * time.Millisecond
	acq.WithCommandRunner(func(ctx context.Context, _ string, _ ...string) error {
		<-ctx.Done()
		return ctx.Err()
	})
	_, err := acq.FromURL(context.Background(), "https://example.com/slow")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestFromURLRejectsBadURL(t *testing.T) {
	acq, _ := newTestAcquirer(t, 0)
	for _, raw := range []string{"", "ftp://example.com/x", "not a url", "https://"} {
		if _, err := acq.FromURL(context.Background(), raw); !errors.Is(err, services.ErrBadRequest) {
			t.Fatalf("FromURL(%q) error = %v, want ErrBadRequest", raw, err)
		}
	}
}

func TestInitMissingYtDlp(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	acq, _ := newTestAcquirer(t, 0)
	if err := acq.Init(); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

type countingReader struct {
	r     *strings.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	return c.r.Read(p)
}
