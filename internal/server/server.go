package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"reviewsync/internal/api"
	"reviewsync/internal/config"
	"reviewsync/internal/media"
	"reviewsync/internal/session"
	"reviewsync/internal/storage"
)

type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	httpServer *http.Server
	router     *chi.Mux
	storage    *storage.SQLiteStorage
	sessions   *session.Manager
	handler    *api.Handler
}

func New(cfg *config.Config, logger zerolog.Logger, store *storage.SQLiteStorage, sessions *session.Manager) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		storage:  store,
		sessions: sessions,
	}

	s.router = chi.NewRouter()
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(CORSMiddleware)
	s.router.Use(LoggingMiddleware(s.logger))
}

func (s *Server) setupRoutes() {
	s.handler = api.NewHandler(s.storage, s.sessions, s.logger, s.cfg.Recordings.Path, s.cfg.Recordings.DefaultWindow())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handler.Health)
		r.Post("/scan", s.handler.Scan)

		r.Get("/cameras", s.handler.ListCameras)
		r.Route("/cameras/{camera}", func(r chi.Router) {
			r.Get("/recordings", s.handler.ListRecordings)
			r.Get("/reviews", s.handler.ListReviews)
			r.Get("/motion", s.handler.ListMotion)
			r.Get("/segments", s.handler.GetSegments)
			r.Get("/position", s.handler.GetPosition)
			r.Get("/preview", s.handler.GetPreviewFrame)
			r.Get("/vod.m3u8", s.handler.GetPlaylist)
		})

		r.Get("/recordings/{id}/file", s.handler.StreamRecording)

		r.Post("/sessions", s.handler.CreateSession)
		r.Get("/sessions", s.handler.ListSessions)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handler.GetSession)
			r.Delete("/", s.handler.CloseSession)
			r.Post("/time", s.handler.SetTime)
			r.Post("/camera", s.handler.SwitchCamera)
			r.Post("/export", s.handler.UpdateExport)
			r.Get("/ws", s.handler.SessionSocket)
		})

		r.Get("/exports", s.handler.ListExports)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) SetScanner(scanner api.ScannerInterface) {
	s.handler.SetScanner(scanner)
}

func (s *Server) SetPreviewService(service *media.PreviewService) {
	s.handler.SetPreviewService(service)
}

func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Msg("starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
