// Package server exposes the chapter calendar over HTTP: event and series
// CRUD, working groups, announcements, support links, the iCalendar feed,
// and a manual sync trigger.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ryanbeasley/odsa-app-sub000/config"
	"github.com/ryanbeasley/odsa-app-sub000/internal/feed"
	"github.com/ryanbeasley/odsa-app-sub000/internal/service"
	"github.com/ryanbeasley/odsa-app-sub000/internal/storage"
)

type Server struct {
	cfg    *config.Config
	store  *storage.Storage
	series *service.SeriesService
	sync   *service.SyncService
	feed   *feed.Generator
	http   *http.Server
}

func New(cfg *config.Config, store *storage.Storage, seriesSvc *service.SeriesService, syncSvc *service.SyncService, feedGen *feed.Generator) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		series: seriesSvc,
		sync:   syncSvc,
		feed:   feedGen,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/calendar.ics", s.handleFeed)

	r.Route("/api", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.handleListEvents)
			r.Post("/", s.handleCreateEvent)
			r.Get("/{id}", s.handleGetEvent)
			r.Put("/{id}", s.handleUpdateEvent)
			r.Delete("/{id}", s.handleDeleteEvent)
			r.Post("/{id}/push", s.handlePushEvent)
		})

		r.Post("/sync", s.handleSync)

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", s.handleListGroups)
			r.Post("/", s.handleCreateGroup)
			r.Put("/{id}", s.handleUpdateGroup)
			r.Delete("/{id}", s.handleDeleteGroup)
		})

		r.Route("/announcements", func(r chi.Router) {
			r.Get("/", s.handleListAnnouncements)
			r.Post("/", s.handleCreateAnnouncement)
			r.Delete("/{id}", s.handleDeleteAnnouncement)
		})

		r.Route("/support-links", func(r chi.Router) {
			r.Get("/", s.handleListSupportLinks)
			r.Post("/", s.handleCreateSupportLink)
			r.Delete("/{id}", s.handleDeleteSupportLink)
		})
	})

	s.http = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	log.Printf("HTTP server listening on :%s", s.cfg.ServerPort)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
