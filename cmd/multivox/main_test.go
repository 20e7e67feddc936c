package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"multivox/internal/api"
	"multivox/internal/history"
)

type cliTestEnv struct {
	configPath string
	storageDir string
	dbPath     string
}

const stubTranscript = `{"segments":[{"start":1.5,"end":3.25,"text":" hi "}]}`

func setupCLITestEnv(t *testing.T, translateURL string) cliTestEnv {
	t.Helper()
	base := t.TempDir()
	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	writeStub(t, binDir, "ffmpeg", `for last; do :; done
: > "$last"
`)
	writeStub(t, binDir, "uvx", `out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--output_dir" ]; then out="$2"; fi
  shift
done
printf '%s' '`+stubTranscript+`' > "$out/audio.json"
`)
	writeStub(t, binDir, "yt-dlp", "exit 1\n")
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("FFMPEG_PATH", "")

	if translateURL == "" {
		translateURL = "http://127.0.0.1:1"
	}
	env := cliTestEnv{
		configPath: filepath.Join(base, "config.toml"),
		storageDir: filepath.Join(base, "uploads"),
		dbPath:     filepath.Join(base, "data", "translator.db"),
	}
	content := fmt.Sprintf(`[paths]
storage_dir = %q
data_dir = %q

[transcription]
ffmpeg_binary = "ffmpeg"
whisperx_command = "uvx"

[acquire]
ytdlp_binary = "yt-dlp"

[translation]
base_url = %q
retry_attempts = 1

[history]
enabled = true
db_path = %q

[logging]
level = "error"
`, env.storageDir, filepath.Join(base, "data"), translateURL, env.dbPath)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func writeStub(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q\noutput:\n%s", substr, output)
	}
}

func translateServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		tl := r.URL.Query().Get("tl")
		payload := []any{
			[]any{[]any{tl + ":" + strings.TrimSpace(r.PostForm.Get("q")), r.PostForm.Get("q"), nil, nil, 1}},
			nil,
			"en",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	env := setupCLITestEnv(t, "")
	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"xml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, path); err == nil {
		t.Fatal("expected validation error for unknown log format")
	}
}

func TestLanguagesCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"languages"}, "")
	if err != nil {
		t.Fatalf("languages: %v", err)
	}
	requireContains(t, out, "Code\tLanguage")
	requireContains(t, out, "es\tSpanish")
	requireContains(t, out, "same\tOriginal language")

	out, _, err = runCLI(t, []string{"languages", "--json"}, "")
	if err != nil {
		t.Fatalf("languages --json: %v", err)
	}
	var resp api.LanguagesResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode languages: %v\n%s", err, out)
	}
	if resp.Default != "en" || len(resp.Languages) != 19 {
		t.Fatalf("unexpected catalog: default=%q count=%d", resp.Default, len(resp.Languages))
	}
}

func TestHistoryCommands(t *testing.T) {
	env := setupCLITestEnv(t, "")
	ctx := context.Background()

	store, err := history.Open(ctx, env.dbPath)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	saved, err := store.Save(ctx, history.Entry{
		Owner:          "ana",
		SourceText:     "good morning",
		SourceLang:     "en",
		TargetLang:     "es",
		TranslatedText: "buenos días",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	out, _, err := runCLI(t, []string{"history", "--owner", "ana"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, saved.ID)
	requireContains(t, out, "en -> es")
	requireContains(t, out, "buenos días")

	out, _, err = runCLI(t, []string{"history", "--owner", "bob"}, env.configPath)
	if err != nil {
		t.Fatalf("history other owner: %v", err)
	}
	requireContains(t, out, "No translations saved for bob")

	out, _, err = runCLI(t, []string{"history", "show", saved.ID}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	var entry api.HistoryEntry
	if err := json.Unmarshal([]byte(out), &entry); err != nil {
		t.Fatalf("decode entry: %v\n%s", err, out)
	}
	if entry.Owner != "ana" || entry.TranslatedText != "buenos días" {
		t.Fatalf("unexpected entry %+v", entry)
	}

	if _, _, err := runCLI(t, []string{"history", "show", "missing-id"}, env.configPath); err == nil {
		t.Fatal("expected error for missing entry")
	}
	if _, _, err := runCLI(t, []string{"history"}, env.configPath); err == nil {
		t.Fatal("expected error without --owner")
	}
}

func TestStatusOffline(t *testing.T) {
	env := setupCLITestEnv(t, "")
	out, _, err := runCLI(t, []string{"status", "--offline"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Config: "+env.configPath)
	requireContains(t, out, "FFmpeg\tok")
	requireContains(t, out, "History database\tok")
	if strings.Contains(out, "Translation endpoint") {
		t.Fatalf("offline status should skip the translation probe:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"status", "--offline", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	for _, check := range report.Checks {
		if !check.Passed {
			t.Fatalf("unexpected failing check %+v", check)
		}
	}
}

func TestSubtitlesCommandWritesSRT(t *testing.T) {
	env := setupCLITestEnv(t, "")
	media := filepath.Join(t.TempDir(), "talk.mp4")
	if err := os.WriteFile(media, []byte("fake video"), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}

	out, _, err := runCLI(t, []string{"subtitles", media, "--lang", "same"}, env.configPath)
	if err != nil {
		t.Fatalf("subtitles: %v", err)
	}
	requireContains(t, out, "1\n00:00:01,500 --> 00:00:03,250\nhi\n")

	srtPath := filepath.Join(t.TempDir(), "talk.srt")
	out, _, err = runCLI(t, []string{"subtitles", media, "--lang", "same", "--out", srtPath}, env.configPath)
	if err != nil {
		t.Fatalf("subtitles --out: %v", err)
	}
	requireContains(t, out, "Wrote 1 cues")
	data, err := os.ReadFile(srtPath)
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	requireContains(t, string(data), "00:00:01,500 --> 00:00:03,250")
}

func TestSubtitlesCommandTranslates(t *testing.T) {
	srv := translateServer(t)
	env := setupCLITestEnv(t, srv.URL)
	media := filepath.Join(t.TempDir(), "talk.mp4")
	if err := os.WriteFile(media, []byte("fake video"), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}

	out, _, err := runCLI(t, []string{"subtitles", media, "--lang", "es", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("subtitles: %v", err)
	}
	var result struct {
		SRT      string `json:"srt"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode result: %v\n%s", err, out)
	}
	if result.Language != "es" {
		t.Fatalf("language = %q, want es", result.Language)
	}
	requireContains(t, result.SRT, "es:hi")
}

func TestSubtitlesCommandRejectsMissingSource(t *testing.T) {
	env := setupCLITestEnv(t, "")
	_, _, err := runCLI(t, []string{"subtitles", filepath.Join(t.TempDir(), "nope.mp4")}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"subtitles"}, env.configPath); err == nil {
		t.Fatal("expected error without a source")
	}
}

func TestTranslateCommand(t *testing.T) {
	srv := translateServer(t)
	env := setupCLITestEnv(t, srv.URL)

	out, _, err := runCLI(t, []string{"translate", "--to", "fr", "good", "morning"}, env.configPath)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if strings.TrimSpace(out) != "fr:good morning" {
		t.Fatalf("unexpected translation %q", out)
	}

	out, _, err = runCLI(t, []string{"translate", "--to", "de", "--owner", "ana", "--json", "hello"}, env.configPath)
	if err != nil {
		t.Fatalf("translate --owner: %v", err)
	}
	var resp api.TranslateResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode translate: %v\n%s", err, out)
	}
	if resp.TranslatedText != "de:hello" || resp.DetectedSourceLang != "en" || resp.TranslationID == "" {
		t.Fatalf("unexpected response %+v", resp)
	}

	store, err := history.Open(context.Background(), env.dbPath)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()
	entry, err := store.Get(context.Background(), resp.TranslationID)
	if err != nil {
		t.Fatalf("get saved translation: %v", err)
	}
	if entry.Owner != "ana" || entry.TargetLang != "de" {
		t.Fatalf("unexpected saved entry %+v", entry)
	}

	if _, _, err := runCLI(t, []string{"translate", "--to", "same", "hello"}, env.configPath); err == nil {
		t.Fatal("expected error for target same")
	}
	if _, _, err := runCLI(t, []string{"translate", "--to", "xx-nope", "hello"}, env.configPath); err == nil {
		t.Fatal("expected error for unsupported target")
	}
}

func TestFilesListAndClean(t *testing.T) {
	env := setupCLITestEnv(t, "")
	if err := os.MkdirAll(env.storageDir, 0o755); err != nil {
		t.Fatalf("mkdir storage: %v", err)
	}
	oldPath := filepath.Join(env.storageDir, "old.mp4")
	newPath := filepath.Join(env.storageDir, "new.mp4")
	for _, path := range []string{oldPath, newPath} {
		if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	past := time.Now().Add(-96 * time.Hour)
	if err := os.Chtimes(oldPath, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	out, _, err := runCLI(t, []string{"files", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("files list: %v", err)
	}
	requireContains(t, out, "new.mp4")
	requireContains(t, out, "old.mp4\t4d")
	requireContains(t, out, "Total: 2 files")

	out, _, err = runCLI(t, []string{"files", "clean"}, env.configPath)
	if err != nil {
		t.Fatalf("files clean without retention: %v", err)
	}
	requireContains(t, out, "Retention disabled")

	out, _, err = runCLI(t, []string{"files", "clean", "--max-age", "72h"}, env.configPath)
	if err != nil {
		t.Fatalf("files clean: %v", err)
	}
	requireContains(t, out, "Removed 1 files")
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected old media removed, stat err=%v", err)
	}
	if _, err := os.Stat(newPath); err != nil {
		t.Fatalf("expected new media kept: %v", err)
	}
}

func TestPrintJSONKeepsSubtitleMarkup(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, api.TranslateResponse{TranslatedText: "<i>salt & pepper</i>"}); err != nil {
		t.Fatalf("printJSON: %v", err)
	}
	requireContains(t, buf.String(), `"<i>salt & pepper</i>"`)
	if !strings.HasSuffix(buf.String(), "}\n") {
		t.Fatalf("expected trailing newline, got %q", buf.String())
	}
}
