// Package handlers contains the HTTP handlers for the widget and dashboard
// branches. Widget handlers answer plain text on errors because the embed
// script displays the body verbatim; dashboard handlers answer JSON.
package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"opino-backend/application/services"
	"opino-backend/interfaces/http/rest/middleware"
	"opino-backend/pkg/common"
	"opino-backend/pkg/validation"
)

// maxCommentBodyBytes caps the POST /add payload well above the largest
// valid comment.
const maxCommentBodyBytes = 64 * 1024

// WidgetHandler serves the public widget endpoints.
type WidgetHandler struct {
	service *services.WidgetService
	logger  *zap.Logger
}

// NewWidgetHandler creates the widget handler.
func NewWidgetHandler(service *services.WidgetService, logger *zap.Logger) *WidgetHandler {
	return &WidgetHandler{service: service, logger: logger}
}

// Hello answers the root probe the embed script uses to detect the backend.
func (h *WidgetHandler) Hello(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"hi": "welcome!"})
}

// GetThread handles GET /thread?siteName=..&pathName=..
func (h *WidgetHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	siteName := strings.TrimSpace(r.URL.Query().Get("siteName"))
	pathName := strings.TrimSpace(r.URL.Query().Get("pathName"))
	if siteName == "" {
		common.RespondText(w, http.StatusBadRequest, "no siteName")
		return
	}
	if pathName == "" {
		common.RespondText(w, http.StatusBadRequest, "no pathName")
		return
	}

	thread, err := h.service.GetThread(r.Context(), siteName, pathName, middleware.OriginFromContext(r.Context()))
	if err != nil {
		common.RespondAppErrorText(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, thread)
}

// AddComment handles POST /add?siteName=..
//
// The query parameter exists so rate-limit tooling can see the target site
// without reading the body; when both are present they must agree, and the
// mismatch is rejected before the payload is validated.
func (h *WidgetHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var raw validation.CommentRequest
	if err := common.ParseJSONBody(w, r, &raw, maxCommentBodyBytes); err != nil {
		common.RespondText(w, http.StatusBadRequest, "invalid request body")
		return
	}

	querySite := strings.TrimSpace(r.URL.Query().Get("siteName"))
	if querySite != "" && raw.SiteName != "" && querySite != raw.SiteName {
		common.RespondText(w, http.StatusBadRequest, "siteName mismatch")
		return
	}
	if raw.SiteName == "" {
		raw.SiteName = querySite
	}

	if _, err := h.service.AddComment(r.Context(), raw, middleware.OriginFromContext(r.Context())); err != nil {
		common.RespondAppErrorText(w, err)
		return
	}
	// Success is an empty 200; the widget refetches the thread.
	w.WriteHeader(http.StatusOK)
}
