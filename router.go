package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"

	"github.com/yourorg/listing-harvester/internal/progress"
)

func BuildRouter(tracker *progress.Tracker) http.Handler {
	r := chi.NewRouter()
	r.Use(httprate.LimitByIP(100, 1*time.Minute))
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"ok":true}`)) })
	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, tracker.Snapshot())
	})
	return r
}
