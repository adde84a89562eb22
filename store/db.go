package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database holding cached content and reading progress
type DB struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Position is the last verse the listener reached.
type Position struct {
	Chapter   int
	Verse     int
	Narrator  string
	UpdatedAt time.Time
}

// Bookmark is a saved verse, identified by its book-wide number.
type Bookmark struct {
	GlobalID  int
	Chapter   int
	Verse     int
	CreatedAt time.Time
}

// Open opens or creates the database in the given directory
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	dbPath := filepath.Join(dir, "recital.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chapter_list (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			payload    BLOB NOT NULL,
			fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create chapter list table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chapter_details (
			chapter    INTEGER NOT NULL,
			narrator   TEXT NOT NULL,
			payload    BLOB NOT NULL,
			fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (chapter, narrator)
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create chapter details table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS last_position (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			chapter    INTEGER NOT NULL,
			verse      INTEGER NOT NULL,
			narrator   TEXT DEFAULT '',
			updated_at INTEGER NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create last position table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bookmarks (
			global_id  INTEGER PRIMARY KEY,
			chapter    INTEGER NOT NULL,
			verse      INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bookmarks table: %w", err)
	}

	return &DB{db: db, path: dbPath}, nil
}

// Close closes the database
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Close()
}

// Path returns the database file location.
func (d *DB) Path() string {
	return d.path
}

// ChapterList returns the cached chapter list payload, if any.
func (d *DB) ChapterList() ([]byte, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var payload []byte
	err := d.db.QueryRow(`SELECT payload FROM chapter_list WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read chapter list: %w", err)
	}
	return payload, true, nil
}

// PutChapterList stores the chapter list payload.
func (d *DB) PutChapterList(payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`
		INSERT INTO chapter_list (id, payload, fetched_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at
	`, payload)
	if err != nil {
		return fmt.Errorf("write chapter list: %w", err)
	}
	return nil
}

// ChapterDetails returns the cached payload for one chapter as fetched for
// the given narrator.
func (d *DB) ChapterDetails(chapter int, narrator string) ([]byte, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var payload []byte
	err := d.db.QueryRow(
		`SELECT payload FROM chapter_details WHERE chapter = ? AND narrator = ?`,
		chapter, narrator,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read chapter %d: %w", chapter, err)
	}
	return payload, true, nil
}

// PutChapterDetails stores the payload for one chapter and narrator.
func (d *DB) PutChapterDetails(chapter int, narrator string, payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`
		INSERT INTO chapter_details (chapter, narrator, payload, fetched_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(chapter, narrator) DO UPDATE SET
			payload = excluded.payload, fetched_at = excluded.fetched_at
	`, chapter, narrator, payload)
	if err != nil {
		return fmt.Errorf("write chapter %d: %w", chapter, err)
	}
	return nil
}

// DeleteChapterDetails drops one cached chapter.
func (d *DB) DeleteChapterDetails(chapter int, narrator string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(
		`DELETE FROM chapter_details WHERE chapter = ? AND narrator = ?`,
		chapter, narrator,
	)
	if err != nil {
		return fmt.Errorf("delete chapter %d: %w", chapter, err)
	}
	return nil
}

// PurgeChapterDetails drops every cached chapter for every narrator.
func (d *DB) PurgeChapterDetails() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.db.Exec(`DELETE FROM chapter_details`); err != nil {
		return fmt.Errorf("purge chapter details: %w", err)
	}
	return nil
}

// SavePosition records the last position reached.
func (d *DB) SavePosition(p Position) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	_, err := d.db.Exec(`
		INSERT INTO last_position (id, chapter, verse, narrator, updated_at) VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			chapter = excluded.chapter, verse = excluded.verse,
			narrator = excluded.narrator, updated_at = excluded.updated_at
	`, p.Chapter, p.Verse, p.Narrator, p.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

// LastPosition returns the last recorded position, if any.
func (d *DB) LastPosition() (Position, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var (
		p       Position
		updated int64
	)
	err := d.db.QueryRow(
		`SELECT chapter, verse, narrator, updated_at FROM last_position WHERE id = 1`,
	).Scan(&p.Chapter, &p.Verse, &p.Narrator, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Position{}, false, nil
	}
	if err != nil {
		return Position{}, false, fmt.Errorf("read position: %w", err)
	}
	p.UpdatedAt = time.Unix(updated, 0)
	return p, true, nil
}

// ToggleBookmark removes the bookmark with b's global ID if it exists and
// adds b otherwise. It reports whether b was added.
func (d *DB) ToggleBookmark(b Bookmark) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		return false, fmt.Errorf("toggle bookmark: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM bookmarks WHERE global_id = ?`, b.GlobalID)
	if err != nil {
		return false, fmt.Errorf("delete bookmark %d: %w", b.GlobalID, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete bookmark %d: %w", b.GlobalID, err)
	}

	if removed == 0 {
		if b.CreatedAt.IsZero() {
			b.CreatedAt = time.Now()
		}
		if _, err := tx.Exec(
			`INSERT INTO bookmarks (global_id, chapter, verse, created_at) VALUES (?, ?, ?, ?)`,
			b.GlobalID, b.Chapter, b.Verse, b.CreatedAt.Unix(),
		); err != nil {
			return false, fmt.Errorf("add bookmark %d: %w", b.GlobalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("toggle bookmark: %w", err)
	}
	return removed == 0, nil
}

// Bookmarks returns every bookmark in reading order.
func (d *DB) Bookmarks() ([]Bookmark, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.Query(
		`SELECT global_id, chapter, verse, created_at FROM bookmarks ORDER BY chapter, verse`,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	var out []Bookmark
	for rows.Next() {
		var (
			b       Bookmark
			created int64
		)
		if err := rows.Scan(&b.GlobalID, &b.Chapter, &b.Verse, &created); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		b.CreatedAt = time.Unix(created, 0)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return out, nil
}
