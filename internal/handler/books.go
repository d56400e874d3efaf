package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSuraphong/library-testing/internal/lending"
	"github.com/MrSuraphong/library-testing/internal/model"
)

// CreateBook handles POST /books (admin)
func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	if req.Title == "" || req.Author == "" {
		writeError(w, http.StatusBadRequest, "title and author are required")
		return
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "quantity cannot be negative")
		return
	}

	book, err := h.catalog.CreateBook(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create book")
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// ListBooks handles GET /books
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.catalog.ListBooks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list books")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if books == nil {
		books = []model.Book{}
	}
	writeJSON(w, http.StatusOK, books)
}

// GetBook handles GET /books/{id}
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	book, err := h.catalog.GetBook(r.Context(), id)
	if err != nil {
		if errors.Is(err, lending.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get book")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// UpdateBook handles PUT /books/{id} (admin)
// Editing total_copies re-derives availability from the active loan count.
func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.UpdateBookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title cannot be empty")
		return
	}
	if req.Author != nil && strings.TrimSpace(*req.Author) == "" {
		writeError(w, http.StatusBadRequest, "author cannot be empty")
		return
	}
	if req.TotalCopies != nil && *req.TotalCopies < 0 {
		writeError(w, http.StatusBadRequest, "total_copies cannot be negative")
		return
	}

	book, err := h.catalog.UpdateBook(r.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, lending.ErrNotFound):
			writeError(w, http.StatusNotFound, "book not found")
		case errors.Is(err, lending.ErrConflict):
			writeError(w, http.StatusConflict, "total copies cannot go below the number currently on loan")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update book")
		}
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// DeleteBook handles DELETE /books/{id} (admin)
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.catalog.DeleteBook(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, lending.ErrNotFound):
			writeError(w, http.StatusNotFound, "book not found")
		case errors.Is(err, lending.ErrConflict):
			writeError(w, http.StatusConflict, "book has unreturned loans and cannot be deleted")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete book")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
