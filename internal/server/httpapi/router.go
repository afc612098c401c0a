package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the HTTP router with all routes configured.
func (s *Server) NewRouter() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Disposition", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusNotFound, ErrorResponse{Kind: KindNotFound, Message: "Not found"})
	})

	r.Route("/api", func(r chi.Router) {
		// public
		r.Post("/register", s.register)
		r.Post("/login", s.login)

		// protected
		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/files", s.listFiles)
			r.Post("/upload", s.upload)
			r.Post("/download/{fileId}", s.download)
			r.Delete("/files/{fileId}", s.deleteFile)
		})
	})

	return r
}
