// Package server exposes the JSON API over a chi router.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"tracklog/internal/service"
	"tracklog/internal/store"
)

// Server handles the JSON API. It is a thin layer over the store and the
// import pipeline; all state lives in SQLite.
type Server struct {
	db        *store.DB
	proc      *service.ProcessService
	importDir string
	maxHR     float64
	log       zerolog.Logger
}

// New builds the API server. importDir is the directory POST /api/process
// walks when the request asks for "all"; maxHR parametrizes zone reports.
func New(db *store.DB, proc *service.ProcessService, importDir string, maxHR float64, log zerolog.Logger) *Server {
	return &Server{
		db:        db,
		proc:      proc,
		importDir: importDir,
		maxHR:     maxHR,
		log:       log.With().Str("component", "server").Logger(),
	}
}

// Router assembles the route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/summaries", s.handleListSummaries)
		r.Get("/summaries/{id}", s.handleGetSummary)
		r.Get("/summaries/{id}/report", s.handleSummaryReport)
		r.Post("/process", s.handleProcess)
		r.Post("/reconcile", s.handleReconcile)
		r.Get("/reports/totals", s.handleTotals)
		r.Get("/races", s.handleListRaces)
		r.Get("/scale", s.handleListScale)
	})
	return r
}

// ListenAndServe runs the server until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info().Str("addr", addr).Msg("listening")
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
