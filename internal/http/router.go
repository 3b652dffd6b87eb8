package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(Timeout)
	r.Use(CORS)

	r.Get("/healthz", handler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/{kind:sales|purchases}", func(r chi.Router) {
			r.Get("/", handler.ListTransactions)
			r.Post("/upload", handler.Upload)
			r.Get("/download", handler.Download)
			r.Get("/uploads", handler.ListUploads)
			r.Delete("/uploads/{id}", handler.UndoUpload)
			r.Get("/clients", handler.ListClients)
			r.Patch("/clients/{id}", handler.UpdateClient)
			r.Post("/reset", handler.Reset)
		})

		r.Route("/dash/{kind:sales|purchases}", func(r chi.Router) {
			r.Get("/summary", handler.DashboardSummary)
			r.Get("/top", handler.DashboardTop)
			r.Get("/visits", handler.DashboardVisits)
		})
	})

	return r
}
