package services_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"multivox/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "acquiring", "yt-dlp", "download failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"acquiring", "yt-dlp", "download failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"bad request", services.Wrap(services.ErrBadRequest, "received", "", "missing source", nil), http.StatusBadRequest},
		{"too large", services.Wrap(services.ErrPayloadTooLarge, "received", "", "", nil), http.StatusBadRequest},
		{"format", services.Wrap(services.ErrUnsupportedFormat, "acquiring", "", ".exe", nil), http.StatusBadRequest},
		{"not found", services.Wrap(services.ErrNotFound, "files", "", "", nil), http.StatusNotFound},
		{"acquisition", services.Wrap(services.ErrAcquisition, "acquiring", "", "", errors.New("io")), http.StatusInternalServerError},
		{"transcription", services.Wrap(services.ErrTranscription, "transcribing", "", "", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := services.HTTPStatus(tc.err); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}
