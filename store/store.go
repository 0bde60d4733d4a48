// Package store keeps packed assets in a SQLite database together with the
// dependency edges between them.
package store

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"

	"github.com/chazu/tagtree/asset"
	"github.com/chazu/tagtree/serial"
	"github.com/chazu/tagtree/wire"
)

// ErrAssetNotFound indicates the requested asset doesn't exist.
var ErrAssetNotFound = errors.New("store: asset not found")

// ErrCorruptRecord indicates a stored payload no longer matches its digest.
var ErrCorruptRecord = errors.New("store: stored data does not match digest")

var log = commonlog.GetLogger("tagtree.store")

const schema = `
CREATE TABLE IF NOT EXISTS assets (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL,
	data    BLOB NOT NULL,
	digest  TEXT NOT NULL,
	updated INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS dependencies (
	asset      TEXT NOT NULL,
	dependency TEXT NOT NULL,
	position   INTEGER NOT NULL,
	PRIMARY KEY (asset, dependency)
);
CREATE INDEX IF NOT EXISTS dependencies_by_dependency ON dependencies (dependency);
`

// Record is one stored asset. Data holds the packed bytes written by
// wire.Pack.
type Record struct {
	ID           uuid.UUID
	Name         string
	Data         []byte
	Digest       [32]byte
	Size         int
	Updated      time.Time
	Dependencies []uuid.UUID
}

// Store is an asset database.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: creating directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	// A single connection keeps pragmas and transactions on one handle.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating tables: %w", err)
	}
	log.Debugf("opened %s", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put inserts or replaces rec. The digest, size and update time are
// computed here; the corresponding fields of rec are ignored.
func (s *Store) Put(rec Record) (*Record, error) {
	if rec.ID == uuid.Nil {
		return nil, fmt.Errorf("store: asset id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := rec
	if out.Data == nil {
		out.Data = []byte{}
	}
	out.Digest = blake3.Sum256(rec.Data)
	out.Size = len(rec.Data)
	out.Updated = time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO assets (id, name, data, digest, updated) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, data = excluded.data,
			digest = excluded.digest, updated = excluded.updated`,
		rec.ID.String(), rec.Name, out.Data, hex.EncodeToString(out.Digest[:]), out.Updated.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("store: saving asset %s: %w", rec.ID, err)
	}
	if _, err := tx.Exec("DELETE FROM dependencies WHERE asset = ?", rec.ID.String()); err != nil {
		return nil, fmt.Errorf("store: clearing dependencies of %s: %w", rec.ID, err)
	}
	out.Dependencies = nil
	seen := make(map[uuid.UUID]bool)
	for _, dep := range rec.Dependencies {
		if dep == uuid.Nil || seen[dep] {
			continue
		}
		seen[dep] = true
		_, err := tx.Exec("INSERT INTO dependencies (asset, dependency, position) VALUES (?, ?, ?)",
			rec.ID.String(), dep.String(), len(out.Dependencies))
		if err != nil {
			return nil, fmt.Errorf("store: saving dependency %s of %s: %w", dep, rec.ID, err)
		}
		out.Dependencies = append(out.Dependencies, dep)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	log.Debugf("put %s %q (%d bytes, %d dependencies)", rec.ID, rec.Name, out.Size, len(out.Dependencies))
	return &out, nil
}

// Get returns the asset with the given id, including its data and
// dependencies. The data is checked against the stored digest.
func (s *Store) Get(id uuid.UUID) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &Record{ID: id}
	var digest string
	var updated int64
	err := s.db.QueryRow("SELECT name, data, digest, updated FROM assets WHERE id = ?", id.String()).
		Scan(&rec.Name, &rec.Data, &digest, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
		}
		return nil, fmt.Errorf("store: querying asset %s: %w", id, err)
	}
	if err := decodeDigest(digest, &rec.Digest); err != nil {
		return nil, fmt.Errorf("store: asset %s: %w", id, err)
	}
	if blake3.Sum256(rec.Data) != rec.Digest {
		return nil, fmt.Errorf("%w: %s", ErrCorruptRecord, id)
	}
	rec.Size = len(rec.Data)
	rec.Updated = time.Unix(0, updated).UTC()

	if rec.Dependencies, err = s.queryIDs(
		"SELECT dependency FROM dependencies WHERE asset = ? ORDER BY position", id); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns every stored asset ordered by name, without data or
// dependencies.
func (s *Store) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT id, name, digest, updated, length(data) FROM assets ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("store: listing assets: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var id, digest string
		var updated int64
		if err := rows.Scan(&id, &rec.Name, &digest, &updated, &rec.Size); err != nil {
			return nil, fmt.Errorf("store: listing assets: %w", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("store: bad asset id %q: %w", id, err)
		}
		if err := decodeDigest(digest, &rec.Digest); err != nil {
			return nil, fmt.Errorf("store: asset %s: %w", id, err)
		}
		rec.Updated = time.Unix(0, updated).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes an asset and its outgoing dependency edges. Edges from
// other assets to it are kept so that Dependents still reports them.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM assets WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("store: deleting asset %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	if _, err := tx.Exec("DELETE FROM dependencies WHERE asset = ?", id.String()); err != nil {
		return fmt.Errorf("store: deleting dependencies of %s: %w", id, err)
	}
	return tx.Commit()
}

// Dependencies returns the assets id depends on, in the order they were
// recorded.
func (s *Store) Dependencies(id uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var one int
	err := s.db.QueryRow("SELECT 1 FROM assets WHERE id = ?", id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: querying asset %s: %w", id, err)
	}
	return s.queryIDs("SELECT dependency FROM dependencies WHERE asset = ? ORDER BY position", id)
}

// Dependents returns the assets that depend on id. id itself need not be
// stored.
func (s *Store) Dependents(id uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryIDs("SELECT asset FROM dependencies WHERE dependency = ? ORDER BY asset", id)
}

func (s *Store) queryIDs(query string, id uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(query, id.String())
	if err != nil {
		return nil, fmt.Errorf("store: querying dependencies of %s: %w", id, err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("store: querying dependencies of %s: %w", id, err)
		}
		dep, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("store: bad asset id %q: %w", raw, err)
		}
		out = append(out, dep)
	}
	return out, rows.Err()
}

func decodeDigest(s string, dst *[32]byte) error {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(dst) {
		return fmt.Errorf("%w: malformed digest %q", ErrCorruptRecord, s)
	}
	copy(dst[:], raw)
	return nil
}

// ---------------------------------------------------------------------------
// Assets
// ---------------------------------------------------------------------------

// PutAsset packs a and stores it under id.
func (s *Store) PutAsset(id uuid.UUID, name string, a *asset.SerializedAsset, opts wire.PackOptions) (*Record, error) {
	t, deps, err := asset.Encode(a)
	if err != nil {
		return nil, err
	}
	data, err := wire.Pack(t, opts)
	if err != nil {
		return nil, err
	}
	return s.Put(Record{ID: id, Name: name, Data: data, Dependencies: deps})
}

// PutPacked stores bytes produced by wire.Pack, for example an asset file
// read from disk. The data is validated and its references are scanned for
// dependencies.
func (s *Store) PutPacked(id uuid.UUID, name string, data []byte) (*Record, error) {
	t, err := wire.Unpack(data)
	if err != nil {
		return nil, err
	}
	return s.Put(Record{ID: id, Name: name, Data: data, Dependencies: asset.ScanDependencies(t)})
}

// LoadAsset reads and decodes the asset stored under id.
func (s *Store) LoadAsset(id uuid.UUID, cfg serial.Config) (*asset.SerializedAsset, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	t, err := wire.Unpack(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("store: asset %s: %w", id, err)
	}
	return asset.Decode(t, cfg)
}
