package handler

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSuraphong/library-testing/internal/auth"
)

// NewRouter builds the HTTP router with the full middleware stack.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger)                  // structured access log
	r.Use(Metrics)                 // request latency histogram
	r.Use(CORS)                    // permissive CORS

	// Public
	r.Get("/health", HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Get("/books", h.ListBooks)
	r.Get("/books/{id}", h.GetBook)

	// Authenticated members
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Post("/borrow", h.Borrow)
		r.Post("/return", h.Return)
		r.Get("/history/{userID}", h.History)
		r.Get("/loans/{userID}/active", h.ActiveLoans)
		r.Put("/users/{id}", h.UpdateProfile)
	})

	// Administrative catalog mutation only; borrow/return stay role-agnostic.
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Use(auth.RequireCatalogAdmin)
		r.Post("/books", h.CreateBook)
		r.Put("/books/{id}", h.UpdateBook)
		r.Delete("/books/{id}", h.DeleteBook)
	})

	return r
}
