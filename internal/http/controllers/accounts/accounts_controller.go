// Package accounts contains the controllers for listing and disconnecting
// connected social accounts.
package accounts

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tharanithar-r/postcraft/internal/auth"
	connectsvc "github.com/tharanithar-r/postcraft/internal/connect"
	"github.com/tharanithar-r/postcraft/internal/domain/platform"
	"github.com/tharanithar-r/postcraft/internal/domain/repository"
	httperrors "github.com/tharanithar-r/postcraft/internal/http/errors"
	"github.com/tharanithar-r/postcraft/internal/http/helpers"
	"github.com/tharanithar-r/postcraft/internal/observability/logger"
)

// Controller handles GET /v1/accounts and the DELETE routes.
type Controller struct {
	service *connectsvc.Service
}

func NewController(s *connectsvc.Service) *Controller {
	return &Controller{service: s}
}

// List handles GET /v1/accounts. Tokens never appear in the response.
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var views []connectsvc.AccountView
	var err error
	if raw := r.URL.Query().Get("platform"); raw != "" {
		p, perr := platform.Parse(raw)
		if perr != nil {
			httperrors.WriteError(w, httperrors.ErrUnsupportedPlatform.WithDetail(perr.Error()))
			return
		}
		views, err = c.service.ListPlatformAccounts(ctx, claims.UserID, p)
	} else {
		views, err = c.service.ListAccounts(ctx, claims.UserID)
	}
	if err != nil {
		logger.From(ctx).Error("listing accounts failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"accounts": views})
}

// DisconnectPlatform handles DELETE /v1/accounts/{platform}: full platform
// wipe, every row of the platform goes away.
func (c *Controller) DisconnectPlatform(w http.ResponseWriter, r *http.Request) {
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

	n, err := c.service.DisconnectPlatform(ctx, claims.UserID, p)
	if err != nil {
		if repository.IsNotFound(err) {
			httperrors.WriteError(w, httperrors.ErrAccountNotConnected)
			return
		}
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"disconnected": n})
}

// DisconnectAccount handles DELETE /v1/accounts/{platform}/{accountID}:
// removes one remote entity, the rest of the platform stays connected.
func (c *Controller) DisconnectAccount(w http.ResponseWriter, r *http.Request) {
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
	accountID := chi.URLParam(r, "accountID")

	if err := c.service.Disconnect(ctx, claims.UserID, p, accountID); err != nil {
		if repository.IsNotFound(err) {
			httperrors.WriteError(w, httperrors.ErrAccountNotConnected)
			return
		}
		httperrors.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
