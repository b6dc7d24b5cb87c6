package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIDMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.AllowAll().Handler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})

		r.Get("/ws", c.serveWS)

		r.Post("/rooms", c.createRoom)
		r.Post("/upload", c.uploadTrack)

		r.Route("/queue/{room-id}", func(r chi.Router) {
			r.Get("/", c.getQueue)
			r.Post("/play/{index}", c.playFromQueue)
			r.Delete("/remove/{index}", c.removeFromQueue)
		})

		fileServer := http.StripPrefix("/api/v1/uploads/", http.FileServer(http.Dir(c.fileStore.Dir())))
		r.Get("/uploads/*", fileServer.ServeHTTP)
	})

	return r
}
