package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"multivox/internal/services"
)

// Entry is one persisted translation.
type Entry struct {
	ID             string    `json:"id"`
	Owner          string    `json:"owner"`
	SourceText     string    `json:"source_text"`
	SourceLang     string    `json:"source_lang"`
	TargetLang     string    `json:"target_lang"`
	TranslatedText string    `json:"translated_text"`
	CreatedAt      time.Time `json:"created_at"`
}

// timestampLayout is fixed-width so created_at sorts lexicographically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// DefaultListLimit caps ListByOwner when the caller passes no limit.
const DefaultListLimit = 50

// Store manages translation history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "history", "open", "db_path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Save records a translation and returns it with ID and CreatedAt populated.
func (s *Store) Save(ctx context.Context, entry Entry) (Entry, error) {
	entry.Owner = strings.TrimSpace(entry.Owner)
	if entry.Owner == "" {
		return Entry{}, services.Wrap(services.ErrBadRequest, "history", "save", "owner required", nil)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()

	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO translations (
                id, owner, source_text, source_lang, target_lang, translated_text, created_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.ID,
			entry.Owner,
			entry.SourceText,
			entry.SourceLang,
			entry.TargetLang,
			entry.TranslatedText,
			entry.CreatedAt.Format(timestampLayout),
		)
		return execErr
	})
	if err != nil {
		return Entry{}, fmt.Errorf("insert translation: %w", err)
	}
	return entry, nil
}

const selectColumns = `id, owner, source_text, source_lang, target_lang, translated_text, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry     Entry
		createdAt string
	)
	if err := row.Scan(
		&entry.ID,
		&entry.Owner,
		&entry.SourceText,
		&entry.SourceLang,
		&entry.TargetLang,
		&entry.TranslatedText,
		&createdAt,
	); err != nil {
		return Entry{}, err
	}
	if ts, err := time.Parse(timestampLayout, createdAt); err == nil {
		entry.CreatedAt = ts
	}
	return entry, nil
}

// Get returns the translation with id.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM translations WHERE id = ?", strings.TrimSpace(id))
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, services.Wrap(services.ErrNotFound, "history", "get", fmt.Sprintf("translation %q not found", id), nil)
		}
		return Entry{}, fmt.Errorf("get translation: %w", err)
	}
	return entry, nil
}

// ListByOwner returns the owner's translations, newest first.
func (s *Store) ListByOwner(ctx context.Context, owner string, limit int) ([]Entry, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, services.Wrap(services.ErrBadRequest, "history", "list", "owner required", nil)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM translations WHERE owner = ? ORDER BY created_at DESC, id LIMIT ?",
		owner, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list translations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %w", err)
	}
	return entries, nil
}

// Count returns the total number of stored translations.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM translations").Scan(&count); err != nil {
		return 0, fmt.Errorf("count translations: %w", err)
	}
	return count, nil
}
