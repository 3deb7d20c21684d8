// Package store persists parsed books so a reader can reopen them without
// parsing the archive again.
//
// Snapshots live in a single SQLite table. The book itself is stored as
// xz-compressed JSON; the columns next to it hold what listing and
// reading-position updates need, so neither decodes the payload.
//
// The default build uses the pure Go driver (modernc.org/sqlite). Build with
// -tags cgo_sqlite to use github.com/mattn/go-sqlite3 instead.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/yuanying/epubreader/internal/converter"
)

var (
	// ErrNotFound is returned when no snapshot exists for an id.
	ErrNotFound = errors.New("book not found")
	// ErrInvalidPosition is returned by SetPosition for a chapter index
	// outside the stored book.
	ErrInvalidPosition = errors.New("chapter index out of range")
)

// Store is the persistence side of the parse pipeline. The pipeline never
// calls it; callers save what Parse returns.
type Store interface {
	Save(ctx context.Context, id string, snap Snapshot) error
	Load(ctx context.Context, id string) (*Snapshot, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Summary, error)
	Clear(ctx context.Context) error
	SetPosition(ctx context.Context, id string, chapterIndex int) error
	Size(ctx context.Context) (int64, error)
}

// Snapshot is a stored book together with the reader's position in it.
type Snapshot struct {
	Book           *converter.Book `json:"book"`
	CurrentChapter int             `json:"currentChapterIndex"`
	LastRead       time.Time       `json:"lastRead"`
}

// Summary describes a stored book without its chapters.
type Summary struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Author         string    `json:"author"`
	ChapterCount   int       `json:"chapterCount"`
	CurrentChapter int       `json:"currentChapterIndex"`
	LastRead       time.Time `json:"lastRead"`
}

const schema = `
CREATE TABLE IF NOT EXISTS books (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	author          TEXT NOT NULL,
	chapter_count   INTEGER NOT NULL,
	current_chapter INTEGER NOT NULL DEFAULT 0,
	last_read       INTEGER NOT NULL,
	payload         BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
CREATE INDEX IF NOT EXISTS idx_books_last_read ON books(last_read);
`

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (creating if needed) the database at path and prepares the
// schema. Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save stores snap under id, replacing any previous snapshot. LastRead is
// stamped with the current time.
func (s *SQLiteStore) Save(ctx context.Context, id string, snap Snapshot) error {
	if snap.Book == nil {
		return fmt.Errorf("failed to save %s: snapshot has no book", id)
	}
	snap.LastRead = s.now().UTC().Truncate(time.Millisecond)

	payload, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", id, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO books (id, title, author, chapter_count, current_chapter, last_read, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			chapter_count = excluded.chapter_count,
			current_chapter = excluded.current_chapter,
			last_read = excluded.last_read,
			payload = excluded.payload`,
		id, snap.Book.Title, snap.Book.Author, len(snap.Book.Chapters),
		snap.CurrentChapter, snap.LastRead.UnixMilli(), payload)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", id, err)
	}
	return nil
}

// Load returns the snapshot stored under id, or ErrNotFound.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*Snapshot, error) {
	var (
		current  int
		lastRead int64
		payload  []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT current_chapter, last_read, payload FROM books WHERE id = ?`, id).
		Scan(&current, &lastRead, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", id, err)
	}

	snap, err := decodeSnapshot(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", id, err)
	}
	// Position updates only touch the columns.
	snap.CurrentChapter = current
	snap.LastRead = time.UnixMilli(lastRead).UTC()
	return snap, nil
}

// Delete removes the snapshot stored under id. Deleting a missing id is not
// an error.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	return nil
}

// List returns every stored book, most recently read first.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, author, chapter_count, current_chapter, last_read
		FROM books ORDER BY last_read DESC, title`)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var (
			sum      Summary
			lastRead int64
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Author, &sum.ChapterCount, &sum.CurrentChapter, &lastRead); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		sum.LastRead = time.UnixMilli(lastRead).UTC()
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return summaries, nil
}

// Clear removes every stored book.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM books`); err != nil {
		return fmt.Errorf("failed to clear books: %w", err)
	}
	return nil
}

// SetPosition records the chapter the reader is on and stamps LastRead.
func (s *SQLiteStore) SetPosition(ctx context.Context, id string, chapterIndex int) error {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT chapter_count FROM books WHERE id = ?`, id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", id, err)
	}
	if chapterIndex < 0 || chapterIndex >= count {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidPosition, chapterIndex, count)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE books SET current_chapter = ?, last_read = ? WHERE id = ?`,
		chapterIndex, s.now().UTC().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to update position of %s: %w", id, err)
	}
	return nil
}

// Size returns the number of bytes the stored payloads occupy.
func (s *SQLiteStore) Size(ctx context.Context) (int64, error) {
	var size int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(LENGTH(payload)), 0) FROM books`).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("failed to measure store: %w", err)
	}
	return size, nil
}

func encodeSnapshot(snap Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create xz writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeSnapshot(payload []byte) (*Snapshot, error) {
	r, err := xz.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create xz reader: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
