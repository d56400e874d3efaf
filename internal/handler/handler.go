// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the lending engine, the catalog and the
// auth service.
package handler

import (
	"context"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/MrSuraphong/library-testing/internal/auth"
	"github.com/MrSuraphong/library-testing/internal/lending"
	"github.com/MrSuraphong/library-testing/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Catalog is the administrative book storage consumed by the HTTP layer.
// Satisfied by the postgres repository and by the in-memory store.
type Catalog interface {
	CreateBook(ctx context.Context, req model.CreateBookRequest) (*model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	GetBook(ctx context.Context, id string) (*model.Book, error)
	UpdateBook(ctx context.Context, id string, req model.UpdateBookRequest) (*model.Book, error)
	DeleteBook(ctx context.Context, id string) error
}

// Handler holds all HTTP handlers for the library lending API.
type Handler struct {
	engine  *lending.Engine
	catalog Catalog
	auth    *auth.Service
}

// New constructs a Handler.
func New(engine *lending.Engine, catalog Catalog, authSvc *auth.Service) *Handler {
	return &Handler{engine: engine, catalog: catalog, auth: authSvc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
