package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/memteam/memoryman/internal/model"
)

// SQLite implements Backend on a single local SQLite file.
type SQLite struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path, configures pragmas, and runs
// the schema migration.
func Open(path string) (*SQLite, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLite{db: db, path: path}
	if err := s.configurePragmas(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// OpenMemory opens an in-memory database for testing.
func OpenMemory() (*SQLite, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &SQLite{db: db, path: ":memory:"}
	if err := s.configurePragmas(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) configurePragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id               TEXT PRIMARY KEY,
		type             TEXT NOT NULL,
		key              TEXT NOT NULL DEFAULT '',
		content          TEXT NOT NULL,
		created_at       TEXT NOT NULL,
		last_accessed_at TEXT NOT NULL,
		access_count     INTEGER NOT NULL DEFAULT 0,
		archived         INTEGER NOT NULL DEFAULT 0,
		meta             TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_records_type ON records(type);
	CREATE INDEX IF NOT EXISTS idx_records_type_key ON records(type, key);
	CREATE INDEX IF NOT EXISTS idx_records_created ON records(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

const recordCols = `id, type, key, content, created_at, last_accessed_at, access_count, archived, meta`

func (s *SQLite) Put(ctx context.Context, rec model.Record) error {
	meta, err := encodeMeta(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (`+recordCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			key = excluded.key,
			content = excluded.content,
			created_at = excluded.created_at,
			last_accessed_at = excluded.last_accessed_at,
			access_count = excluded.access_count,
			archived = excluded.archived,
			meta = excluded.meta`,
		putArgs(rec, meta)...)
	if err != nil {
		return fmt.Errorf("put record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (model.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordCols+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	return rec, nil
}

// Delete removes the record by id. Absent ids are a no-op, per the Backend
// contract; the engine layer enforces strictness against its live sets.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

func (s *SQLite) Scan(ctx context.Context, p ScanParams, fn func(model.Record) error) (*ScanReport, error) {
	where := []string{"1=1"}
	var args []interface{}
	if p.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(p.Type))
	}
	if !p.IncludeArchived {
		where = append(where, "archived = 0")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordCols+` FROM records WHERE `+strings.Join(where, " AND "), args...)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	defer rows.Close()

	report := &ScanReport{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			// A row we cannot decode must not abort the whole scan.
			if errors.Is(err, ErrSerialization) {
				report.Skipped = append(report.Skipped, rec.ID)
				continue
			}
			return report, fmt.Errorf("scan: %w", err)
		}
		report.Scanned++
		if err := fn(rec); err != nil {
			return report, err
		}
	}
	if err := rows.Err(); err != nil {
		return report, fmt.Errorf("scan: %w", err)
	}
	return report, nil
}

func (s *SQLite) Batch(ctx context.Context, puts []model.Record, deleteIDs []string) error {
	// Encode payloads before the transaction so serialization failures
	// never leave a partial batch.
	metas := make([]string, len(puts))
	for i, rec := range puts {
		m, err := encodeMeta(rec.Metadata)
		if err != nil {
			return err
		}
		metas[i] = m
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	for i, rec := range puts {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO records (`+recordCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				type = excluded.type,
				key = excluded.key,
				content = excluded.content,
				created_at = excluded.created_at,
				last_accessed_at = excluded.last_accessed_at,
				access_count = excluded.access_count,
				archived = excluded.archived,
				meta = excluded.meta`,
			putArgs(rec, metas[i])...)
		if err != nil {
			return fmt.Errorf("batch put %s: %w", rec.ID, err)
		}
	}
	for _, id := range deleteIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
			return fmt.Errorf("batch delete %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *SQLite) Touch(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, at.UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE records SET last_accessed_at = ?, access_count = access_count + 1
		 WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("touch: %w", err)
	}
	return nil
}

func (s *SQLite) Count(ctx context.Context, t model.Type) (int, error) {
	var n int
	var err error
	if t == "" {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM records WHERE archived = 0`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM records WHERE type = ? AND archived = 0`, string(t)).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Flush checkpoints the WAL so all committed state lives in the main file.
func (s *SQLite) Flush(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Stats holds database statistics.
type Stats struct {
	DBPath       string             `json:"db_path"`
	DBSizeBytes  int64              `json:"db_size_bytes"`
	TotalRecords int                `json:"total_records"`
	Archived     int                `json:"archived"`
	ByType       map[model.Type]int `json:"by_type"`
}

// Stats returns database statistics.
func (s *SQLite) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path, ByType: map[model.Type]int{}}

	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&st.TotalRecords)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE archived = 1`).Scan(&st.Archived)

	rows, err := s.db.QueryContext(ctx,
		`SELECT type, COUNT(*) FROM records WHERE archived = 0 GROUP BY type`)
	if err != nil {
		return st, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t string
		var n int
		rows.Scan(&t, &n)
		st.ByType[model.Type(t)] = n
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func putArgs(rec model.Record, meta string) []interface{} {
	var metaPtr *string
	if meta != "" {
		metaPtr = &meta
	}
	return []interface{}{
		rec.ID, string(rec.Type), rec.Key, rec.Content,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.LastAccessedAt.UTC().Format(time.RFC3339Nano),
		rec.AccessCount, boolToInt(rec.Archived), metaPtr,
	}
}

func scanRecord(row scanner) (model.Record, error) {
	var rec model.Record
	var typ, createdAt, lastAccessed string
	var archived int
	var meta sql.NullString

	err := row.Scan(&rec.ID, &typ, &rec.Key, &rec.Content,
		&createdAt, &lastAccessed, &rec.AccessCount, &archived, &meta)
	if err != nil {
		return rec, err
	}

	rec.Type = model.Type(typ)
	if !rec.Type.Valid() {
		return rec, fmt.Errorf("record %s: type %q: %w", rec.ID, typ, ErrSerialization)
	}
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return rec, fmt.Errorf("record %s: created_at: %w", rec.ID, ErrSerialization)
	}
	rec.LastAccessedAt, err = time.Parse(time.RFC3339Nano, lastAccessed)
	if err != nil {
		return rec, fmt.Errorf("record %s: last_accessed_at: %w", rec.ID, ErrSerialization)
	}
	rec.Archived = archived != 0
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &rec.Metadata); err != nil {
			return rec, fmt.Errorf("record %s: meta: %w", rec.ID, ErrSerialization)
		}
	}
	return rec, nil
}

func encodeMeta(m model.Metadata) (string, error) {
	if m.IsZero() {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode meta: %w", err)
	}
	return string(b), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
