// Package views renders the HTML pages.
package views

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"since": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04")
	},
}).ParseFS(templateFS, "templates/*.html"))

// Login is the sign-in page.
type Login struct {
	Notice   string
	Provider string
}

// CallbackError is shown when the OAuth hand-off cannot complete.
type CallbackError struct {
	Message string
}

// Dashboard is the protected bookmark page.
type Dashboard struct {
	User      domain.User
	Bookmarks []domain.Bookmark
	Total     int
	Draft     domain.Draft
	Notices   []domain.Notice
	Query     string
	LoadedAt  time.Time
	Version   string
}

// Render executes the named page into w. The page is buffered so a
// template error never leaves a half-written response.
func Render(w http.ResponseWriter, name string, data any, status int) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
