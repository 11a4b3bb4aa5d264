package storage

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/moksha-hub/metabrainz-har/internal/config"
	"github.com/moksha-hub/metabrainz-har/pkg/capture"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) Fatal(string, ...interface{}) {}

func newTestStore(t *testing.T, maxScans int) Store {
	t.Helper()
	cfg := &config.StorageConfig{
		Driver:   "sqlite",
		Path:     filepath.Join(t.TempDir(), "scans.db"),
		MaxScans: maxScans,
	}
	store, err := New(cfg, noopLogger{})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func fakeDetails(n int) []capture.URLDetail {
	details := make([]capture.URLDetail, 0, n)
	for i := 0; i < n; i++ {
		details = append(details, capture.URLDetail{
			Method:          "GET",
			URL:             fmt.Sprintf("https://musicbrainz.org/ws/2/artist/%d", i),
			ResponseType:    "application/json",
			ResponsePreview: fmt.Sprintf(`{"id":%d}`, i),
		})
	}
	return details
}

func TestSQLiteStore_RecordAndGet(t *testing.T) {
	store := newTestStore(t, 100)
	rec, err := store.RecordScan("capture.har", fakeDetails(3))
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("expected scan id to be set")
	}

	got, err := store.GetScan(rec.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Source != "capture.har" {
		t.Errorf("unexpected source: %q", got.Source)
	}
	if len(got.Details) != 3 {
		t.Fatalf("expected 3 details, got %d", len(got.Details))
	}
	if got.Details[1].URL != "https://musicbrainz.org/ws/2/artist/1" {
		t.Errorf("details out of order: %+v", got.Details)
	}
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := newTestStore(t, 100)
	if _, err := store.GetScan("nope"); err != ErrScanNotFound {
		t.Errorf("expected ErrScanNotFound, got %v", err)
	}
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	store := newTestStore(t, 100)
	for i := 0; i < 3; i++ {
		if _, err := store.RecordScan(fmt.Sprintf("capture-%d.har", i), fakeDetails(1)); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	scans, err := store.ListScans(2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(scans) != 2 {
		t.Fatalf("expected 2 scans, got %d", len(scans))
	}
	if scans[0].CreatedAt.Before(scans[1].CreatedAt) {
		t.Error("expected newest scan first")
	}
}

func TestSQLiteStore_PruneMaxScans(t *testing.T) {
	store := newTestStore(t, 2)
	for i := 0; i < 4; i++ {
		if _, err := store.RecordScan(fmt.Sprintf("capture-%d.har", i), fakeDetails(1)); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	scans, err := store.ListScans(0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(scans) != 2 {
		t.Fatalf("expected pruning to keep 2 scans, got %d", len(scans))
	}
}

func TestSQLiteStore_UnsupportedDriver(t *testing.T) {
	cfg := &config.StorageConfig{Driver: "postgres", Path: "ignored"}
	if _, err := New(cfg, noopLogger{}); err != ErrUnsupportedDriver {
		t.Errorf("expected ErrUnsupportedDriver, got %v", err)
	}
}
