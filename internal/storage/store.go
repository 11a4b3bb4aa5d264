package storage

import (
	"errors"
	"time"

	"github.com/moksha-hub/metabrainz-har/internal/config"
	"github.com/moksha-hub/metabrainz-har/internal/logger"
	"github.com/moksha-hub/metabrainz-har/pkg/capture"
)

// ErrUnsupportedDriver indicates the configured driver is not available.
var ErrUnsupportedDriver = errors.New("unsupported storage driver")

// ErrScanNotFound indicates the requested scan id does not exist.
var ErrScanNotFound = errors.New("scan not found")

// ScanRecord is one persisted scan of a capture file: its source path and
// the URL details extracted at that time, in original entry order.
type ScanRecord struct {
	ID        string              `json:"id"`
	Source    string              `json:"source"`
	CreatedAt time.Time           `json:"created_at"`
	Details   []capture.URLDetail `json:"details"`
}

// Store defines the persistence contract for scan history.
type Store interface {
	RecordScan(source string, details []capture.URLDetail) (*ScanRecord, error)
	ListScans(limit int) ([]*ScanRecord, error)
	GetScan(id string) (*ScanRecord, error)
	Close() error
}

// New instantiates a Store based on configuration.
func New(cfg *config.StorageConfig, log logger.Logger) (Store, error) {
	if cfg == nil {
		return nil, errors.New("storage config is nil")
	}
	switch driver := cfg.Driver; driver {
	case "", "sqlite", "sqlite3":
		return newSQLiteStore(cfg, log)
	default:
		return nil, ErrUnsupportedDriver
	}
}
