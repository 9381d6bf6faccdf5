// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/activity"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/handler"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/listing"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/live"
)

// Config holds server configuration.
type Config struct {
	Addr            string
	Service         *listing.Service
	Activity        activity.Store
	Queue           handler.Queue
	Sessions        *live.Manager
	Logger          *zap.Logger
	ShutdownTimeout time.Duration
}

// NewRouter registers every route on a chi router.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = live.NewManager(24*time.Hour, 30*time.Minute)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(handler.Logging(logger.Named("http")))
	r.Use(handler.Recovery(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	rd := handler.NewRefDataHandler(cfg.Service.Providers())
	th := handler.NewTemplateHandler(cfg.Service)
	lh := handler.NewListingHandler(cfg.Service, cfg.Queue)
	wh := live.NewHandler(sessions, cfg.Service, logger)
	sh := handler.NewSessionHandler(sessions)

	r.Route("/v1", func(r chi.Router) {
		// --- Reference data ---
		r.Get("/categories", rd.ListCategories)
		r.Get("/categories/{name}/children", rd.ListSubcategories)
		r.Get("/states", rd.ListStates)
		r.Get("/states/{state}/cities", rd.ListCities)

		// --- Templates ---
		r.Post("/templates", th.CreateTemplate)
		r.Get("/templates", th.ListTemplates)
		r.Get("/templates/{id}", th.GetTemplate)
		r.Put("/templates/{id}", th.UpdateTemplate)
		r.Get("/templates/{id}/issues", th.CheckTemplate)
		r.Post("/templates/{id}/publish", th.PublishTemplate)
		r.Post("/templates/{id}/archive", th.ArchiveTemplate)
		r.Post("/templates/{id}/clone", th.CloneTemplate)
		r.Post("/templates/{id}/revise", th.ReviseTemplate)

		// --- Listings ---
		r.Post("/listings", lh.CreateListing)
		r.Get("/listings/{id}", lh.GetListing)
		r.Get("/listings/{id}/form", lh.GetListingForm)
		r.Put("/listings/{id}/values", lh.SaveValues)
		r.Post("/listings/{id}/submit", lh.SubmitListing)
		r.Post("/listings/{id}/transition", lh.TransitionListing)
		r.Get("/listings/{id}/history", lh.GetHistory)
		r.Get("/moderation/queue", lh.ModerationQueue)

		// --- Activity ---
		if cfg.Activity != nil {
			ah := handler.NewActivityHandler(cfg.Activity)
			r.Get("/activity/{entity_type}/{entity_id}", ah.HandleGetEntityActivity)
			r.Get("/activity/{entity_type}/{entity_id}/signals", ah.HandleGetEntitySignals)
			r.Post("/activity/search", ah.HandleSearchActivity)
		}

		// --- Live form sessions ---
		r.Get("/live", wh.ServeHTTP)
		r.Get("/live/sessions/{id}", sh.GetSession)
	})
	return r
}

// Run starts the HTTP server and shuts it down gracefully when ctx is done.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
