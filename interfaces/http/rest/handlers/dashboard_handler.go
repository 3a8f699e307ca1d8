package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"opino-backend/application/services"
	"opino-backend/pkg/auth"
	"opino-backend/pkg/common"
	"opino-backend/pkg/validation"
)

// maxSiteBodyBytes caps the site create/update payload.
const maxSiteBodyBytes = 4 * 1024

// DashboardHandler serves the authenticated owner dashboard.
type DashboardHandler struct {
	service *services.DashboardService
	logger  *zap.Logger
}

// NewDashboardHandler creates the dashboard handler.
func NewDashboardHandler(service *services.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{service: service, logger: logger}
}

// ListComments handles GET /api/comments?siteId=..&page=..&page_size=..
func (h *DashboardHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	// "all" is what the dashboard sends for the unfiltered view.
	siteID := strings.TrimSpace(r.URL.Query().Get("siteId"))
	if siteID == "all" {
		siteID = ""
	}
	params := common.ExtractPaginationParams(r)

	comments, meta, err := h.service.ListComments(r.Context(), user.UserID, siteID, params)
	if err != nil {
		common.RespondAppErrorJSON(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"comments":   comments,
		"pagination": meta,
	})
}

// DeleteComment handles DELETE /api/comments/{commentId}
func (h *DashboardHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	commentID := chi.URLParam(r, "commentId")
	if commentID == "" {
		common.RespondError(w, http.StatusBadRequest, "commentId is required")
		return
	}

	if err := h.service.DeleteComment(r.Context(), user.UserID, commentID); err != nil {
		common.RespondAppErrorJSON(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"message": "Comment deleted"})
}

// ListSites handles GET /api/sites
func (h *DashboardHandler) ListSites(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sites, err := h.service.ListSites(r.Context(), user.UserID)
	if err != nil {
		common.RespondAppErrorJSON(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{"sites": sites})
}

// CreateSite handles POST /api/sites
func (h *DashboardHandler) CreateSite(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var raw validation.SiteRequest
	if err := common.ParseJSONBody(w, r, &raw, maxSiteBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	site, err := h.service.CreateSite(r.Context(), user.UserID, raw)
	if err != nil {
		common.RespondAppErrorJSON(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, site)
}

// UpdateSite handles PUT /api/sites/{siteId}
func (h *DashboardHandler) UpdateSite(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	siteID := chi.URLParam(r, "siteId")
	var raw validation.SiteRequest
	if err := common.ParseJSONBody(w, r, &raw, maxSiteBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	site, err := h.service.UpdateSite(r.Context(), user.UserID, siteID, raw)
	if err != nil {
		common.RespondAppErrorJSON(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, site)
}

// DeleteSite handles DELETE /api/sites/{siteId}
func (h *DashboardHandler) DeleteSite(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	siteID := chi.URLParam(r, "siteId")
	deleted, err := h.service.DeleteSite(r.Context(), user.UserID, siteID)
	if err != nil {
		common.RespondAppErrorJSON(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "Site deleted",
		"deletedComments": deleted,
	})
}

// Stats handles GET /api/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stats, err := h.service.Stats(r.Context(), user.UserID)
	if err != nil {
		common.RespondAppErrorJSON(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, stats)
}
