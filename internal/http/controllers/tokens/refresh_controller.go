// Package tokens contains the controllers for the token lifecycle API.
package tokens

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tharanithar-r/postcraft/internal/auth"
	"github.com/tharanithar-r/postcraft/internal/domain/platform"
	httperrors "github.com/tharanithar-r/postcraft/internal/http/errors"
	"github.com/tharanithar-r/postcraft/internal/http/helpers"
	"github.com/tharanithar-r/postcraft/internal/observability/logger"
	"github.com/tharanithar-r/postcraft/internal/tokens"
)

// RefreshController handles POST /v1/tokens/refresh and the per-platform
// GET /v1/auth/{platform}/refresh.
type RefreshController struct {
	orchestrator *tokens.Orchestrator
}

func NewRefreshController(o *tokens.Orchestrator) *RefreshController {
	return &RefreshController{orchestrator: o}
}

type refreshRequest struct {
	Platforms []string `json:"platforms"`
}

type refreshResponse struct {
	Results map[string]tokens.RefreshResult `json:"results"`
}

// RefreshAll handles POST /v1/tokens/refresh. The body lists the platforms
// to evaluate; an empty list means every registered platform. Per-platform
// outcomes are always in the body, the HTTP status is the aggregate verdict.
func (c *RefreshController) RefreshAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("RefreshController.RefreshAll"))

	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req refreshRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	results := c.orchestrator.CheckAndRefreshAll(ctx, claims.UserID, req.Platforms)

	status := aggregateStatus(results)
	log.Info("refresh cycle completed", logger.Status(status), logger.Count(len(results)))
	helpers.WriteJSON(w, status, refreshResponse{Results: results})
}

// RefreshOne handles GET /v1/auth/{platform}/refresh.
func (c *RefreshController) RefreshOne(w http.ResponseWriter, r *http.Request) {
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

	res := c.orchestrator.CheckAndRefresh(ctx, claims.UserID, p)
	helpers.WriteJSON(w, singleStatus(res), res)
}

// aggregateStatus maps the result set to one HTTP status. All good is 200,
// a mixed bag is 207, a full reconnect wipeout is 401, anything else 502.
func aggregateStatus(results map[string]tokens.RefreshResult) int {
	if len(results) == 0 {
		return http.StatusOK
	}
	var ok, reconnect int
	partial := false
	for _, res := range results {
		if res.Success {
			ok++
			continue
		}
		if res.Partial() {
			partial = true
			continue
		}
		if res.NeedsReconnect {
			reconnect++
		}
	}
	failed := len(results) - ok
	switch {
	case failed == 0:
		return http.StatusOK
	case ok > 0 || partial:
		return http.StatusMultiStatus
	case reconnect == len(results):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

func singleStatus(res tokens.RefreshResult) int {
	switch {
	case res.Success:
		return http.StatusOK
	case res.Partial():
		return http.StatusMultiStatus
	case res.NotConnected:
		return http.StatusNotFound
	case res.NeedsReconnect:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}
