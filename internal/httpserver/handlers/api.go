package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marktrabit/internal/auth"
	"github.com/MrSnakeDoc/marktrabit/internal/domain"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marktrabit/internal/supabase"
)

const maxAPIBody = 16 << 10

type apiError struct {
	Error string `json:"error"`
}

type listResponse struct {
	Bookmarks []domain.Bookmark `json:"bookmarks"`
	Count     int               `json:"count"`
}

// APIList returns the caller's bookmarks newest first.
func APIList(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Bookmarks.List(r.Context(), auth.SessionFrom(r.Context()))
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse{Bookmarks: list, Count: len(list)})
	}
}

// APICreate inserts one bookmark from a {"title","url"} body.
func APICreate(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var draft domain.Draft
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&draft); err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json body"})
			return
		}

		b, err := d.Bookmarks.Insert(r.Context(), auth.SessionFrom(r.Context()), draft)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, b)
	}
}

// APIDelete deletes one bookmark. Unknown ids succeed.
func APIDelete(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Bookmarks.Delete(r.Context(), auth.SessionFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
			writeAPIError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeAPIError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, domain.ErrEmptyDraft):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated), supabase.IsUnauthorized(err):
		status = http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, apiError{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
