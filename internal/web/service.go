package web

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/moksha-hub/metabrainz-har/internal/config"
	"github.com/moksha-hub/metabrainz-har/internal/loader"
	"github.com/moksha-hub/metabrainz-har/internal/logger"
	"github.com/moksha-hub/metabrainz-har/pkg/capture"
)

const contentTypeJSON = "application/json"

// Service exposes one loaded capture file read-only over HTTP. The file is
// parsed once at construction; requests serve the in-memory results.
type Service struct {
	cfg     *config.WebConfig
	logger  logger.Logger
	source  string
	details []capture.URLDetail
	pairs   map[string]loader.Pair
	httpSrv *http.Server
}

// NewService loads the capture at path through the given Loader and builds
// an inspection service over the results.
func NewService(cfg *config.WebConfig, log logger.Logger, l *loader.Loader, path string) (*Service, error) {
	details, err := l.URLDetails(path)
	if err != nil {
		return nil, err
	}
	pairs, err := l.Pairs(path)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:     cfg,
		logger:  log,
		source:  path,
		details: details,
		pairs:   pairs,
	}, nil
}

// Router wires HTTP routes.
func (s *Service) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/urls", s.handleURLs).Methods(http.MethodGet)
	router.HandleFunc("/api/pairs", s.handlePairs).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully within the configured timeout.
func (s *Service) Start() error {
	s.httpSrv = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting inspection server",
		"addr", s.cfg.Addr,
		"source", s.source,
		"urls", len(s.details),
		"pairs", len(s.pairs),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	s.logger.Info("Shutting down inspection server...")
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("Server forced to shutdown", "error", err)
		return err
	}
	return nil
}

type urlsResponse struct {
	Source  string              `json:"source"`
	Count   int                 `json:"count"`
	Details []capture.URLDetail `json:"details"`
}

func (s *Service) handleURLs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, urlsResponse{
		Source:  s.source,
		Count:   len(s.details),
		Details: s.details,
	})
}

type pairsResponse struct {
	Source string        `json:"source"`
	Count  int           `json:"count"`
	Pairs  []loader.Pair `json:"pairs"`
}

func (s *Service) handlePairs(w http.ResponseWriter, r *http.Request) {
	keys := make([]string, 0, len(s.pairs))
	for key := range s.pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	ordered := make([]loader.Pair, 0, len(keys))
	for _, key := range keys {
		ordered = append(ordered, s.pairs[key])
	}

	s.writeJSON(w, pairsResponse{
		Source: s.source,
		Count:  len(ordered),
		Pairs:  ordered,
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Service) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}
