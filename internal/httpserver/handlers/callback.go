package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/auth"
	"github.com/MrSnakeDoc/marktrabit/internal/domain"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marktrabit/internal/httpserver/views"
	"github.com/MrSnakeDoc/marktrabit/internal/logger"
)

const defaultCallbackTimeout = 15 * time.Second

// Callback exchanges the provider code for a session. Every failure ends
// on a page linking back to the login page.
func Callback(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		flowID := auth.FlowID(r)
		d.Gate.ClearFlowCookie(w)

		if providerErr := q.Get("error"); providerErr != "" {
			d.Logger.Warn("provider returned an error",
				logger.String("error", providerErr),
				logger.String("description", q.Get("error_description")))
			callbackError(d, w, "The sign-in was cancelled or refused by the provider.", http.StatusBadRequest)
			return
		}

		code := q.Get("code")
		if code == "" {
			callbackError(d, w, "The sign-in response is missing its authorization code.", http.StatusBadRequest)
			return
		}

		timeout := d.CallbackTimeout
		if timeout <= 0 {
			timeout = defaultCallbackTimeout
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		sid, sess, err := d.SignIn.CompleteSignIn(ctx, flowID, code)
		if err != nil {
			d.Logger.Warn("sign-in callback failed", logger.Error(err))
			switch {
			case errors.Is(err, domain.ErrFlowNotFound):
				callbackError(d, w, "This sign-in link has expired. Please start again.", http.StatusBadRequest)
			case errors.Is(err, context.DeadlineExceeded):
				callbackError(d, w, "The sign-in took too long to complete. Please try again.", http.StatusGatewayTimeout)
			default:
				callbackError(d, w, "The sign-in could not be completed. Please try again.", http.StatusBadGateway)
			}
			return
		}

		d.Gate.SetSessionCookie(w, sid)
		d.Logger.Debug("callback completed", logger.String("user_id", sess.User.ID))
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

func callbackError(d deps.Deps, w http.ResponseWriter, msg string, status int) {
	renderPage(d, w, "callback_error.html", views.CallbackError{Message: msg}, status)
}
