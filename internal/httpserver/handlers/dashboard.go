package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marktrabit/internal/auth"
	"github.com/MrSnakeDoc/marktrabit/internal/dashboard"
	"github.com/MrSnakeDoc/marktrabit/internal/domain"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/views"
	"github.com/MrSnakeDoc/marktrabit/internal/logger"
	"github.com/MrSnakeDoc/marktrabit/internal/sources/homepage"
	"github.com/MrSnakeDoc/marktrabit/internal/utils"
)

// maxImportBody bounds the multipart upload around the yaml document.
const maxImportBody = homepage.MaxDocumentSize + 64<<10

// Dashboard loads the user's bookmarks and renders the page. ?q= filters
// the rendered rows.
func Dashboard(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		v, err := d.Dashboard.Load(ctx, auth.SIDFrom(ctx), auth.SessionFrom(ctx))
		if err != nil {
			actionFailed(d, w, r, "load", err)
			return
		}

		query := r.URL.Query().Get("q")
		renderPage(d, w, "dashboard.html", views.Dashboard{
			User:      v.User,
			Bookmarks: dashboard.Visible(v, query),
			Total:     v.Count(),
			Draft:     v.Draft,
			Notices:   v.Notices,
			Query:     query,
			LoadedAt:  v.LoadedAt,
			Version:   d.Version,
		}, http.StatusOK)
	}
}

// AddBookmark handles the add form.
func AddBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft := domain.Draft{
			Title: r.PostFormValue("title"),
			URL:   r.PostFormValue("url"),
		}

		if _, err := d.Dashboard.Add(r.Context(), auth.SIDFrom(r.Context()), draft); err != nil {
			actionFailed(d, w, r, "insert", err)
			return
		}
		backToDashboard(w, r)
	}
}

// DeleteBookmark handles the per-row delete form.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if _, err := d.Dashboard.Remove(r.Context(), auth.SIDFrom(r.Context()), id); err != nil {
			actionFailed(d, w, r, "delete", err)
			return
		}
		backToDashboard(w, r)
	}
}

// ImportBookmarks handles a Homepage yaml upload. Rejected documents are
// reported as a notice on the dashboard.
func ImportBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImportBody)
		if err := r.ParseMultipartForm(maxImportBody); err != nil {
			http.Error(w, "invalid upload", http.StatusBadRequest)
			return
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer utils.MustClose(file, d.Logger, "import upload")

		_, err = d.Dashboard.Import(r.Context(), auth.SIDFrom(r.Context()), file)
		if errors.Is(err, domain.ErrUnauthenticated) {
			actionFailed(d, w, r, "import", err)
			return
		}
		backToDashboard(w, r)
	}
}

// DismissNotice removes a notice.
func DismissNotice(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Dashboard.Dismiss(r.Context(), auth.SIDFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
			actionFailed(d, w, r, "dismiss", err)
			return
		}
		backToDashboard(w, r)
	}
}

// ClearDraft empties the add form.
func ClearDraft(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Dashboard.ClearDraft(r.Context(), auth.SIDFrom(r.Context())); err != nil {
			actionFailed(d, w, r, "clear draft", err)
			return
		}
		backToDashboard(w, r)
	}
}

func backToDashboard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// actionFailed sends unauthenticated callers to the login page with the
// expiry notice; anything else is a local storage failure.
func actionFailed(d deps.Deps, w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, domain.ErrUnauthenticated) {
		d.Gate.ClearSessionCookie(w)
		http.Redirect(w, r, auth.LoginPath+"?reason="+reasonExpired, http.StatusSeeOther)
		return
	}

	d.Logger.Error("dashboard action failed",
		logger.String("op", op),
		logger.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
