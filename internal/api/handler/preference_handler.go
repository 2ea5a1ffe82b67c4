package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hanru_board/internal/api/middleware"
	"hanru_board/internal/app/service"
	"hanru_board/internal/common"
	"hanru_board/internal/preference"
)

const preferenceCookieAge = 365 * 24 * time.Hour

type PreferenceHandler struct {
	prefs *service.PreferenceService
}

func NewPreferenceHandler(prefs *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs}
}

type ModeBody struct {
	Mode preference.Mode `json:"mode"`
}

func (h *PreferenceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/mode", h.getMode)
	r.Put("/mode", h.setMode)
}

// getMode reports the mode ViewerContext resolved for this request.
func (h *PreferenceHandler) getMode(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetViewer(r.Context())
	common.RespondWithJSON(w, http.StatusOK, ModeBody{Mode: viewer.Mode})
}

func (h *PreferenceHandler) setMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	viewer := middleware.GetViewer(r.Context())
	m, err := h.prefs.SetMode(r.Context(), viewer.ID, req.Mode)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     preference.StorageKey,
		Value:    string(m),
		Path:     "/",
		MaxAge:   int(preferenceCookieAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
	common.RespondWithJSON(w, http.StatusOK, ModeBody{Mode: m})
}
