package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/moksha-hub/metabrainz-har/internal/config"
	"github.com/moksha-hub/metabrainz-har/internal/logger"
	"github.com/moksha-hub/metabrainz-har/pkg/capture"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

type sqliteStore struct {
	db  *sql.DB
	cfg *config.StorageConfig
	log logger.Logger
}

func newSQLiteStore(cfg *config.StorageConfig, log logger.Logger) (Store, error) {
	path := cfg.Path
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("prepare sqlite directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", filepath.ToSlash(absPath))
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %s: %w", stmt, err)
		}
	}

	store := &sqliteStore{db: db, cfg: cfg, log: log}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *sqliteStore) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS scans (
    id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    created_ns INTEGER NOT NULL,
    detail_count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scans_created ON scans(created_ns DESC);

CREATE TABLE IF NOT EXISTS scan_details (
    scan_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    method TEXT NOT NULL,
    url TEXT NOT NULL,
    response_type TEXT,
    response_preview TEXT,
    PRIMARY KEY (scan_id, seq),
    FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE
);
`
	_, err := s.db.Exec(schema)
	return err
}

func (s *sqliteStore) RecordScan(source string, details []capture.URLDetail) (*ScanRecord, error) {
	ctx := context.Background()
	record := &ScanRecord{
		ID:        generateScanID(),
		Source:    source,
		CreatedAt: time.Now().UTC(),
		Details:   details,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO scans (id, source, created_ns, detail_count) VALUES (?, ?, ?, ?)",
		record.ID, record.Source, record.CreatedAt.UnixNano(), len(details))
	if err != nil {
		return nil, fmt.Errorf("insert scan: %w", err)
	}

	for seq, d := range details {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO scan_details (scan_id, seq, method, url, response_type, response_preview) VALUES (?, ?, ?, ?, ?, ?)",
			record.ID, seq, d.Method, d.URL, d.ResponseType, d.ResponsePreview)
		if err != nil {
			return nil, fmt.Errorf("insert scan detail %d: %w", seq, err)
		}
	}

	if err = s.prune(ctx, tx); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *sqliteStore) prune(ctx context.Context, tx *sql.Tx) error {
	if s.cfg.MaxScans <= 0 {
		return nil
	}
	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM scans").Scan(&count); err != nil {
		return fmt.Errorf("count scans: %w", err)
	}
	if excess := count - s.cfg.MaxScans; excess > 0 {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM scans WHERE id IN (SELECT id FROM scans ORDER BY created_ns ASC LIMIT ?)", excess)
		if err != nil {
			return fmt.Errorf("prune scans: %w", err)
		}
	}
	return nil
}

func (s *sqliteStore) ListScans(limit int) ([]*ScanRecord, error) {
	ctx := context.Background()
	query := "SELECT id, source, created_ns, detail_count FROM scans ORDER BY created_ns DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*ScanRecord
	for rows.Next() {
		var (
			record    ScanRecord
			createdNS int64
			count     int
		)
		if err := rows.Scan(&record.ID, &record.Source, &createdNS, &count); err != nil {
			return nil, err
		}
		record.CreatedAt = time.Unix(0, createdNS).UTC()
		result = append(result, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, record := range result {
		details, err := s.loadDetails(ctx, record.ID)
		if err != nil {
			return nil, err
		}
		record.Details = details
	}
	return result, nil
}

func (s *sqliteStore) GetScan(id string) (*ScanRecord, error) {
	ctx := context.Background()
	var (
		record    ScanRecord
		createdNS int64
		count     int
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, source, created_ns, detail_count FROM scans WHERE id = ?", id).
		Scan(&record.ID, &record.Source, &createdNS, &count)
	if err == sql.ErrNoRows {
		return nil, ErrScanNotFound
	}
	if err != nil {
		return nil, err
	}
	record.CreatedAt = time.Unix(0, createdNS).UTC()

	record.Details, err = s.loadDetails(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *sqliteStore) loadDetails(ctx context.Context, scanID string) ([]capture.URLDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT method, url, response_type, response_preview FROM scan_details WHERE scan_id = ? ORDER BY seq ASC", scanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []capture.URLDetail
	for rows.Next() {
		var (
			d                 capture.URLDetail
			respType, preview sql.NullString
		)
		if err := rows.Scan(&d.Method, &d.URL, &respType, &preview); err != nil {
			return nil, err
		}
		d.ResponseType = respType.String
		d.ResponsePreview = preview.String
		details = append(details, d)
	}
	return details, rows.Err()
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// generateScanID creates a random, URL-safe scan identifier.
func generateScanID() string {
	const idBytes = 12
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based value to avoid returning empty ID
		return fmt.Sprintf("SCAN-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
