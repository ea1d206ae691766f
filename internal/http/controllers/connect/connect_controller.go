// Package connect contains the controllers for the account connection
// flows: OAuth login/callback per platform and the Telegram bot flow.
package connect

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tharanithar-r/postcraft/internal/auth"
	connectsvc "github.com/tharanithar-r/postcraft/internal/connect"
	"github.com/tharanithar-r/postcraft/internal/domain/platform"
	httperrors "github.com/tharanithar-r/postcraft/internal/http/errors"
	"github.com/tharanithar-r/postcraft/internal/http/helpers"
	"github.com/tharanithar-r/postcraft/internal/observability/logger"
)

// Controller handles GET /v1/auth/{platform}/login and
// GET /v1/auth/{platform}/callback.
type Controller struct {
	service *connectsvc.Service
}

func NewController(s *connectsvc.Service) *Controller {
	return &Controller{service: s}
}

// Login starts the authorization flow: stores state and redirects the
// browser to the provider's consent screen.
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	p, err := platform.Parse(chi.URLParam(r, "platform"))
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrUnsupportedPlatform.WithDetail(err.Error()))
		return
	}

	var authURL string
	switch p {
	case platform.X:
		authURL, err = c.service.BeginX(ctx, claims.UserID)
	case platform.Discord:
		authURL, err = c.service.BeginDiscord(ctx, claims.UserID)
	case platform.Facebook:
		authURL, err = c.service.BeginFacebook(ctx, claims.UserID)
	default:
		// Telegram no usa authorization code; su flujo es POST /v1/telegram/connect.
		httperrors.WriteError(w, httperrors.ErrUnsupportedPlatform.WithDetail("telegram uses the bot connect flow"))
		return
	}
	if err != nil {
		logger.From(ctx).Error("login flow failed", logger.Platform(string(p)), logger.Err(err))
		if errors.Is(err, connectsvc.ErrNotConfigured) {
			httperrors.WriteError(w, httperrors.ErrProviderNotConfigured)
			return
		}
		httperrors.WriteError(w, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback completes the authorization flow for the platform. The state
// parameter carries the user identity, so this route is unauthenticated.
func (c *Controller) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Connect.Callback"))

	p, err := platform.Parse(chi.URLParam(r, "platform"))
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrUnsupportedPlatform.WithDetail(err.Error()))
		return
	}

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("provider returned: "+e))
		return
	}
	state, code := q.Get("state"), q.Get("code")
	if state == "" || code == "" {
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("state and code are required"))
		return
	}

	var conn *connectsvc.Connection
	switch p {
	case platform.X:
		conn, err = c.service.CompleteX(ctx, state, code)
	case platform.Discord:
		conn, err = c.service.CompleteDiscord(ctx, state, code, q.Get("guild_id"))
	case platform.Facebook:
		conn, err = c.service.CompleteFacebook(ctx, state, code)
	default:
		httperrors.WriteError(w, httperrors.ErrUnsupportedPlatform)
		return
	}
	if err != nil {
		log.Warn("callback failed", logger.Platform(string(p)), logger.Err(err))
		httperrors.WriteError(w, mapConnectError(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, conn)
}

func mapConnectError(err error) error {
	switch {
	case errors.Is(err, connectsvc.ErrNotConfigured):
		return httperrors.ErrProviderNotConfigured
	case errors.Is(err, connectsvc.ErrStateMismatch):
		return httperrors.ErrBadRequest.WithDetail("state mismatch or expired")
	case errors.Is(err, connectsvc.ErrNoChannels):
		return httperrors.ErrBadRequest.WithDetail("no postable channels found")
	default:
		return httperrors.ErrProviderUnavailable.WithCause(err)
	}
}
