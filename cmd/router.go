package main

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"PulseBot/api"
)

func SetupRouter(h *api.Handler) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/health", api.HandleHealthCheck)
	router.Post("/slack/events", h.HandleSlackEvents)
	router.Post("/slack/interactions", h.HandleSlackInteractions)
	router.Post("/slack/commands", h.HandleSlashCommand)
	return router
}
