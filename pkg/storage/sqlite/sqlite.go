// Package sqlite persists memory records in a local SQLite database.
// Embeddings and tags are stored as JSON columns; criteria that SQL can
// express are pushed into the query and the rest is filtered in Go.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/engram/pkg/record"
	"github.com/papercomputeco/engram/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS memory_records (
	id               TEXT NOT NULL,
	tenant_id        TEXT NOT NULL,
	content          TEXT NOT NULL,
	embedding        TEXT,
	layer            TEXT NOT NULL,
	type             TEXT NOT NULL DEFAULT '',
	tags             TEXT,
	importance       REAL NOT NULL,
	strength         REAL NOT NULL,
	access_count     INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMP NOT NULL,
	last_accessed_at TIMESTAMP,
	entered_layer_at TIMESTAMP NOT NULL,
	expires_at       TIMESTAMP,
	source           TEXT NOT NULL DEFAULT '',
	project          TEXT NOT NULL DEFAULT '',
	last_modified    TIMESTAMP NOT NULL,
	content_hash     TEXT NOT NULL,
	version          INTEGER NOT NULL DEFAULT 0,
	node_id          TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (tenant_id, id)
);
CREATE INDEX IF NOT EXISTS idx_memory_records_layer ON memory_records (tenant_id, layer);
CREATE INDEX IF NOT EXISTS idx_memory_records_hash ON memory_records (tenant_id, content_hash);
CREATE INDEX IF NOT EXISTS idx_memory_records_modified ON memory_records (tenant_id, last_modified);
`

// Driver is a SQLite-backed storage driver.
type Driver struct {
	db *sql.DB
}

// New opens (or creates) the database at path and ensures the schema.
func New(path string) (*Driver, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, storage.StorageError{Op: "open", Err: err}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, storage.StorageError{Op: "migrate", Err: err}
	}

	// SQLite handles one writer at a time; a busy timeout keeps concurrent
	// sweeps from failing fast on lock contention.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, storage.StorageError{Op: "pragma", Err: err}
	}

	return &Driver{db: db}, nil
}

const allColumns = `id, tenant_id, content, embedding, layer, type, tags,
	importance, strength, access_count, created_at, last_accessed_at,
	entered_layer_at, expires_at, source, project, last_modified,
	content_hash, version, node_id`

func (d *Driver) Insert(ctx context.Context, rec *record.MemoryRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	embedding, tags, err := encodeJSONColumns(rec)
	if err != nil {
		return err
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO memory_records (`+allColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.TenantID, rec.Content, embedding, rec.Layer.String(),
		rec.Type, tags, rec.Importance, rec.Strength, rec.AccessCount,
		rec.CreatedAt, rec.LastAccessedAt, rec.EnteredLayerAt, rec.ExpiresAt,
		rec.Source, rec.Project, rec.LastModified, rec.ContentHash,
		rec.Version, rec.NodeID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return storage.AlreadyExistsError{TenantID: rec.TenantID, ID: rec.ID}
		}
		return storage.StorageError{Op: "insert", Err: err}
	}
	return nil
}

func (d *Driver) Get(ctx context.Context, tenantID, id string) (*record.MemoryRecord, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT `+allColumns+` FROM memory_records
		WHERE tenant_id = ? AND id = ?`, tenantID, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, storage.NotFoundError{TenantID: tenantID, ID: id}
	}
	if err != nil {
		return nil, storage.StorageError{Op: "get", Err: err}
	}
	return rec, nil
}

func (d *Driver) List(ctx context.Context, tenantID string, c storage.Criteria) ([]*record.MemoryRecord, error) {
	query := `SELECT ` + allColumns + ` FROM memory_records WHERE tenant_id = ?`
	args := []any{tenantID}

	if c.Layer != nil {
		query += ` AND layer = ?`
		args = append(args, c.Layer.String())
	}
	if c.Project != "" {
		query += ` AND project = ?`
		args = append(args, c.Project)
	}
	if c.MinImportance > 0 {
		query += ` AND importance >= ?`
		args = append(args, c.MinImportance)
	}
	if !c.ModifiedSince.IsZero() {
		query += ` AND last_modified > ?`
		args = append(args, c.ModifiedSince)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	var out []*record.MemoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storage.StorageError{Op: "list", Err: err}
		}
		// Tag containment is cheaper to check here than in SQL over a
		// JSON column.
		if !hasAllTags(rec.Tags, c.Tags) {
			continue
		}
		out = append(out, rec)
		if c.Limit > 0 && len(out) == c.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storage.StorageError{Op: "list", Err: err}
	}
	return out, nil
}

func (d *Driver) Update(ctx context.Context, rec *record.MemoryRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	embedding, tags, err := encodeJSONColumns(rec)
	if err != nil {
		return err
	}

	res, err := d.db.ExecContext(ctx, `
		UPDATE memory_records SET
			content = ?, embedding = ?, layer = ?, type = ?, tags = ?,
			importance = ?, strength = ?, access_count = ?,
			last_accessed_at = ?, entered_layer_at = ?, expires_at = ?,
			source = ?, project = ?, last_modified = ?, content_hash = ?,
			version = ?, node_id = ?
		WHERE tenant_id = ? AND id = ?`,
		rec.Content, embedding, rec.Layer.String(), rec.Type, tags,
		rec.Importance, rec.Strength, rec.AccessCount,
		rec.LastAccessedAt, rec.EnteredLayerAt, rec.ExpiresAt,
		rec.Source, rec.Project, rec.LastModified, rec.ContentHash,
		rec.Version, rec.NodeID,
		rec.TenantID, rec.ID,
	)
	if err != nil {
		return storage.StorageError{Op: "update", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return storage.StorageError{Op: "update", Err: err}
	}
	if affected == 0 {
		return storage.NotFoundError{TenantID: rec.TenantID, ID: rec.ID}
	}
	return nil
}

func (d *Driver) Delete(ctx context.Context, tenantID, id string) error {
	res, err := d.db.ExecContext(ctx, `
		DELETE FROM memory_records WHERE tenant_id = ? AND id = ?`,
		tenantID, id)
	if err != nil {
		return storage.StorageError{Op: "delete", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return storage.StorageError{Op: "delete", Err: err}
	}
	if affected == 0 {
		return storage.NotFoundError{TenantID: tenantID, ID: id}
	}
	return nil
}

func (d *Driver) CountByLayer(ctx context.Context, tenantID string, layer record.Layer) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM memory_records WHERE tenant_id = ? AND layer = ?`,
		tenantID, layer.String()).Scan(&count)
	if err != nil {
		return 0, storage.StorageError{Op: "count", Err: err}
	}
	return count, nil
}

func (d *Driver) FindByContentHash(ctx context.Context, tenantID, hash string) (*record.MemoryRecord, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT `+allColumns+` FROM memory_records
		WHERE tenant_id = ? AND content_hash = ?
		ORDER BY created_at ASC LIMIT 1`, tenantID, hash)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, storage.NotFoundError{TenantID: tenantID, ID: hash}
	}
	if err != nil {
		return nil, storage.StorageError{Op: "find_by_hash", Err: err}
	}
	return rec, nil
}

func (d *Driver) Close() error {
	return d.db.Close()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*record.MemoryRecord, error) {
	var (
		rec            record.MemoryRecord
		layerName      string
		embeddingJSON  sql.NullString
		tagsJSON       sql.NullString
		lastAccessedAt sql.NullTime
		expiresAt      sql.NullTime
	)

	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.Content, &embeddingJSON, &layerName,
		&rec.Type, &tagsJSON, &rec.Importance, &rec.Strength,
		&rec.AccessCount, &rec.CreatedAt, &lastAccessedAt,
		&rec.EnteredLayerAt, &expiresAt, &rec.Source, &rec.Project,
		&rec.LastModified, &rec.ContentHash, &rec.Version, &rec.NodeID,
	)
	if err != nil {
		return nil, err
	}

	rec.Layer, err = record.ParseLayer(layerName)
	if err != nil {
		return nil, err
	}
	if embeddingJSON.Valid && embeddingJSON.String != "" {
		if err := json.Unmarshal([]byte(embeddingJSON.String), &rec.Embedding); err != nil {
			return nil, fmt.Errorf("decoding embedding: %w", err)
		}
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &rec.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags: %w", err)
		}
	}
	if lastAccessedAt.Valid {
		t := lastAccessedAt.Time
		rec.LastAccessedAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		rec.ExpiresAt = &t
	}
	return &rec, nil
}

func encodeJSONColumns(rec *record.MemoryRecord) (embedding, tags sql.NullString, err error) {
	if len(rec.Embedding) > 0 {
		data, merr := json.Marshal(rec.Embedding)
		if merr != nil {
			return embedding, tags, storage.StorageError{Op: "encode", Err: merr}
		}
		embedding = sql.NullString{String: string(data), Valid: true}
	}
	if len(rec.Tags) > 0 {
		data, merr := json.Marshal(rec.Tags)
		if merr != nil {
			return embedding, tags, storage.StorageError{Op: "encode", Err: merr}
		}
		tags = sql.NullString{String: string(data), Valid: true}
	}
	return embedding, tags, nil
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
