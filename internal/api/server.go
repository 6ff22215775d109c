package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/flashprice/radar-crawler/internal/config"
	"github.com/flashprice/radar-crawler/internal/database"
	"github.com/flashprice/radar-crawler/internal/ratelimit"
)

// TriggerFunc starts a crawl for one pilot location on one platform and
// returns the run id. Implementations run the crawl asynchronously.
type TriggerFunc func(locationName, platformID string) (string, error)

type Server struct {
	registry config.Registry
	store    database.Store
	trigger  TriggerFunc
	logger   *slog.Logger
}

func NewServer(registry config.Registry, store database.Store, trigger TriggerFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		registry: registry,
		store:    store,
		trigger:  trigger,
		logger:   logger.With("component", "api"),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/locations", s.handleLocations)
		r.Get("/products", s.handleProducts)
		r.Get("/platforms", s.handlePlatforms)
		r.Get("/prices", s.handlePrices)
		r.Post("/crawls", s.handleTriggerCrawl)
	})

	return r
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.registry.Locations)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.registry.Products)
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.registry.Platforms)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.store.LatestPrices(r.Context(), r.URL.Query().Get("product"), limit)
	if err != nil {
		s.logger.Error("latest prices query failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	s.respondJSON(w, http.StatusOK, records)
}

type crawlRequest struct {
	Location string `json:"location"`
	Platform string `json:"platform"`
}

func (s *Server) handleTriggerCrawl(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		s.respondError(w, http.StatusServiceUnavailable, "crawling not enabled")
		return
	}

	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.registry.Location(req.Location); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.registry.Platform(req.Platform); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	runID, err := s.trigger(req.Location, req.Platform)
	if errors.Is(err, ratelimit.ErrDailyLimitReached) {
		s.respondError(w, http.StatusTooManyRequests, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("crawl trigger failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "crawl could not be started")
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"run_id": runID,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("response encoding failed", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
