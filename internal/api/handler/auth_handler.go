package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hanru_board/internal/api/middleware"
	"hanru_board/internal/app/service"
	"hanru_board/internal/common"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/signup", h.signup)
	r.Post("/login", h.login)
	r.With(middleware.Authenticator).Get("/me", h.me)
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

// me returns the signed-in user together with the display mode in effect.
func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetViewer(r.Context())
	user, err := h.authService.CurrentUser(r.Context(), viewer.UserID)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, struct {
		User any    `json:"user"`
		Mode string `json:"mode"`
	}{User: user, Mode: string(viewer.Mode)})
}
