// Package store persists quiz entries in SQLite.
//
// The url column is UNIQUE: the natural-key invariant is enforced at the
// storage layer because the orchestrator's read-then-write sequence is
// not atomic. Concurrent first-time creates for the same URL merge via
// ON CONFLICT instead of erroring or duplicating rows.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wikiquiz/quizgen/pkg/quiz"
)

// ErrNotFound indicates no entry matches the lookup.
var ErrNotFound = errors.New("quiz entry not found")

// Repository is the durable quiz store. A single-writer connection keeps
// SQLite happy under concurrent request flows; reads go through a
// separate read-only connection.
type Repository struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

// Open opens (and if needed creates) the SQLite database at dbPath.
func Open(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	r := &Repository{readDB: readDB, writeDB: writeDB}
	if err := r.init(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) init() error {
	_, err := r.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS quiz_entries (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			url            TEXT NOT NULL UNIQUE,
			title          TEXT NOT NULL DEFAULT '',
			summary        TEXT NOT NULL DEFAULT '',
			key_entities   TEXT NOT NULL DEFAULT '{}',
			sections       TEXT NOT NULL DEFAULT '[]',
			quiz           TEXT NOT NULL DEFAULT '[]',
			related_topics TEXT NOT NULL DEFAULT '[]',
			created_at     DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_quiz_entries_created ON quiz_entries(created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// Close closes both database handles.
func (r *Repository) Close() error {
	var firstErr error
	for _, db := range []*sql.DB{r.readDB, r.writeDB} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

const selectColumns = "id, url, title, summary, key_entities, sections, quiz, related_topics, created_at"

// FindByURL returns the entry whose natural key matches url, or ErrNotFound.
func (r *Repository) FindByURL(ctx context.Context, url string) (*quiz.Entry, error) {
	row := r.readDB.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM quiz_entries WHERE url = ?", url)
	return scanEntry(row)
}

// FindByID returns the entry with the given surrogate id, or ErrNotFound.
func (r *Repository) FindByID(ctx context.Context, id int64) (*quiz.Entry, error) {
	row := r.readDB.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM quiz_entries WHERE id = ?", id)
	return scanEntry(row)
}

// List returns all entries ordered by creation time, newest first.
func (r *Repository) List(ctx context.Context) ([]*quiz.Entry, error) {
	rows, err := r.readDB.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM quiz_entries ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("listing quiz entries: %w", err)
	}
	defer rows.Close()

	var entries []*quiz.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Create persists a new entry. When a concurrent flow already created a
// row for the same URL, the conflicting insert merges into that row and
// its identity is kept.
func (r *Repository) Create(ctx context.Context, data quiz.EntryData) (*quiz.Entry, error) {
	cols, err := marshalColumns(data)
	if err != nil {
		return nil, err
	}

	_, err = r.writeDB.ExecContext(ctx, `
		INSERT INTO quiz_entries (url, title, summary, key_entities, sections, quiz, related_topics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			key_entities = excluded.key_entities,
			sections = excluded.sections,
			quiz = excluded.quiz,
			related_topics = excluded.related_topics
	`, data.URL, data.Title, data.Summary, cols.keyEntities, cols.sections, cols.quiz, cols.relatedTopics,
		time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("creating quiz entry: %w", err)
	}

	return r.FindByURL(ctx, data.URL)
}

// Update overwrites an existing entry's content in place, keeping its id
// and natural key.
func (r *Repository) Update(ctx context.Context, existing *quiz.Entry, data quiz.EntryData) (*quiz.Entry, error) {
	cols, err := marshalColumns(data)
	if err != nil {
		return nil, err
	}

	res, err := r.writeDB.ExecContext(ctx, `
		UPDATE quiz_entries SET
			title = ?,
			summary = ?,
			key_entities = ?,
			sections = ?,
			quiz = ?,
			related_topics = ?
		WHERE id = ?
	`, data.Title, data.Summary, cols.keyEntities, cols.sections, cols.quiz, cols.relatedTopics, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("updating quiz entry %d: %w", existing.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	return r.FindByID(ctx, existing.ID)
}

type jsonColumns struct {
	keyEntities   string
	sections      string
	quiz          string
	relatedTopics string
}

func marshalColumns(data quiz.EntryData) (jsonColumns, error) {
	var cols jsonColumns
	for _, f := range []struct {
		dst *string
		src any
	}{
		{&cols.keyEntities, data.KeyEntities},
		{&cols.sections, emptySlice(data.Sections)},
		{&cols.quiz, emptyQuestions(data.Quiz)},
		{&cols.relatedTopics, emptySlice(data.RelatedTopics)},
	} {
		b, err := json.Marshal(f.src)
		if err != nil {
			return jsonColumns{}, fmt.Errorf("marshal quiz entry field: %w", err)
		}
		*f.dst = string(b)
	}
	return cols, nil
}

// Nil slices marshal as JSON null; stored columns always hold arrays.
func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyQuestions(q []quiz.Question) []quiz.Question {
	if q == nil {
		return []quiz.Question{}
	}
	return q
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*quiz.Entry, error) {
	var (
		entry         quiz.Entry
		keyEntities   string
		sections      string
		questions     string
		relatedTopics string
	)

	err := row.Scan(&entry.ID, &entry.URL, &entry.Title, &entry.Summary,
		&keyEntities, &sections, &questions, &relatedTopics, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning quiz entry: %w", err)
	}

	for _, f := range []struct {
		raw string
		dst any
	}{
		{keyEntities, &entry.KeyEntities},
		{sections, &entry.Sections},
		{questions, &entry.Quiz},
		{relatedTopics, &entry.RelatedTopics},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, fmt.Errorf("decoding quiz entry %d: %w", entry.ID, err)
		}
	}

	return &entry, nil
}
