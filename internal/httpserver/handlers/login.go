package handlers

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/marktrabit/internal/auth"
	"github.com/MrSnakeDoc/marktrabit/internal/dashboard"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/views"
	"github.com/MrSnakeDoc/marktrabit/internal/logger"
)

// CallbackPath receives the provider redirect.
const CallbackPath = "/auth/callback"

// reasonExpired is appended to the login URL when an action found no session.
const reasonExpired = "expired"

// LoginPage shows the sign-in page, or sends a signed-in visitor home.
func LoginPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Gate.Check(r.Context(), auth.SessionID(r)).Authenticated {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		page := views.Login{Provider: d.OAuthProvider}
		if r.URL.Query().Get("reason") == reasonExpired {
			page.Notice = dashboard.MsgNotAuthenticated
		}
		renderPage(d, w, "login.html", page, http.StatusOK)
	}
}

// Login starts the OAuth hand-off and redirects to the provider.
func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectTo := Origin(r, d.PublicURL, d.TrustProxy) + CallbackPath

		si, err := d.SignIn.SignInWithOAuth(r.Context(), d.OAuthProvider, redirectTo)
		if err != nil {
			d.Logger.Error("failed to start sign-in", logger.Error(err))
			renderPage(d, w, "login.html", views.Login{
				Provider: d.OAuthProvider,
				Notice:   "Sign-in is unavailable right now. Please try again.",
			}, http.StatusServiceUnavailable)
			return
		}

		d.Gate.SetFlowCookie(w, si.FlowID, d.FlowTTL)
		http.Redirect(w, r, si.URL, http.StatusSeeOther)
	}
}

// Logout signs out and always lands on the login page.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		location := auth.LoginPath
		if sid := auth.SessionID(r); sid != "" {
			location = d.Dashboard.SignOut(r.Context(), sid)
		}
		d.Gate.ClearSessionCookie(w)
		http.Redirect(w, r, location, http.StatusSeeOther)
	}
}

// Origin returns the public scheme://host of the application.
func Origin(r *http.Request, publicURL string, trustProxy bool) string {
	if publicURL != "" {
		return strings.TrimRight(publicURL, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if trustProxy {
		if p := r.Header.Get("X-Forwarded-Proto"); p == "https" || p == "http" {
			scheme = p
		}
		if h := r.Header.Get("X-Forwarded-Host"); h != "" {
			host = h
		}
	}
	return scheme + "://" + host
}

func renderPage(d deps.Deps, w http.ResponseWriter, name string, data any, status int) {
	if err := views.Render(w, name, data, status); err != nil {
		d.Logger.Error("failed to render page",
			logger.String("page", name),
			logger.Error(err))
	}
}
