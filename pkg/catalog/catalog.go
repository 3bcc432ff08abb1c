// Package catalog keeps a local SQLite index of built post packages and the
// signatures issued for them. The catalog is bookkeeping only: packages and
// signature files on disk stay authoritative, and a digest recorded here is
// never trusted in place of one recomputed from the package.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no package is recorded for a slug.
var ErrNotFound = errors.New("package not found in catalog")

// Record is one catalogued package.
type Record struct {
	Slug        string
	Name        string
	Path        string
	Digest      string
	Entries     int
	SizeBytes   int64
	PublishedAt time.Time
	BuiltAt     time.Time

	// Signature is nil until a signature is recorded for the current build.
	Signature *SignatureInfo
}

// SignatureInfo describes the last signature written for a package.
type SignatureInfo struct {
	Path      string
	Algorithm string
	KeyID     string
	Digest    string
	SignedAt  time.Time
}

// Catalog is a SQLite-backed package index.
type Catalog struct {
	db *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens or creates the catalog database at path and applies pending
// migrations. ":memory:" gives a private in-memory catalog.
func Open(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("catalog path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	// A single connection keeps pragmas and in-memory databases consistent.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the database handle.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// SchemaVersion reports the applied schema version.
func (c *Catalog) SchemaVersion() (int, error) {
	return schemaVersion(c.db)
}

// RecordBuild inserts or replaces the record for r.Slug. Rebuilding a
// package clears any signature recorded for the previous build.
func (c *Catalog) RecordBuild(ctx context.Context, r Record) error {
	if r.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	builtAt := r.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now()
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO packages (slug, name, path, digest, entries, size_bytes, published_at, built_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			path = excluded.path,
			digest = excluded.digest,
			entries = excluded.entries,
			size_bytes = excluded.size_bytes,
			published_at = excluded.published_at,
			built_at = excluded.built_at,
			signature_path = '',
			algorithm = '',
			key_id = '',
			signed_digest = '',
			signed_at = 0`,
		r.Slug, r.Name, r.Path, r.Digest, r.Entries, r.SizeBytes,
		toMillis(r.PublishedAt), toMillis(builtAt),
	)
	if err != nil {
		return fmt.Errorf("record build %s: %w", r.Slug, err)
	}
	return nil
}

// RecordSignature attaches sig to the package recorded for slug.
func (c *Catalog) RecordSignature(ctx context.Context, slug string, sig SignatureInfo) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE packages
		SET signature_path = ?, algorithm = ?, key_id = ?, signed_digest = ?, signed_at = ?
		WHERE slug = ?`,
		sig.Path, sig.Algorithm, sig.KeyID, sig.Digest, toMillis(sig.SignedAt), slug,
	)
	if err != nil {
		return fmt.Errorf("record signature %s: %w", slug, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record signature %s: %w", slug, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", slug, ErrNotFound)
	}
	return nil
}

const selectColumns = `slug, name, path, digest, entries, size_bytes, published_at, built_at,
	signature_path, algorithm, key_id, signed_digest, signed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		r                    Record
		publishedAt, builtAt int64
		sig                  SignatureInfo
		signedAt             int64
	)
	err := row.Scan(&r.Slug, &r.Name, &r.Path, &r.Digest, &r.Entries, &r.SizeBytes, &publishedAt, &builtAt,
		&sig.Path, &sig.Algorithm, &sig.KeyID, &sig.Digest, &signedAt)
	if err != nil {
		return Record{}, err
	}
	r.PublishedAt = fromMillis(publishedAt)
	r.BuiltAt = fromMillis(builtAt)
	if sig.Path != "" {
		sig.SignedAt = fromMillis(signedAt)
		r.Signature = &sig
	}
	return r, nil
}

// Get returns the record for slug, or ErrNotFound.
func (c *Catalog) Get(ctx context.Context, slug string) (Record, error) {
	row := c.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM packages WHERE slug = ?", slug)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%s: %w", slug, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", slug, err)
	}
	return r, nil
}

// List returns every record, most recently published first.
func (c *Catalog) List(ctx context.Context) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT "+selectColumns+" FROM packages ORDER BY published_at DESC, slug ASC")
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return records, nil
}
