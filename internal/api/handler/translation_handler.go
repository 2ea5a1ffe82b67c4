package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hanru_board/internal/api/middleware"
	"hanru_board/internal/app/service"
	"hanru_board/internal/common"
	"hanru_board/internal/platform/translator"
)

const webhookSecretHeader = "X-Webhook-Secret"

type TranslationHandler struct {
	translationService *service.TranslationService
	webhookSecret      string
}

func NewTranslationHandler(ts *service.TranslationService, webhookSecret string) *TranslationHandler {
	return &TranslationHandler{translationService: ts, webhookSecret: webhookSecret}
}

// RegisterTranslateRoutes mounts the ad-hoc translation endpoint.
func (h *TranslationHandler) RegisterTranslateRoutes(r chi.Router) {
	r.With(middleware.Authenticator).Post("/", h.translate)
}

// RegisterWebhookRoutes mounts the callback used by the external translator.
func (h *TranslationHandler) RegisterWebhookRoutes(r chi.Router) {
	r.Post("/translation", h.handleTranslationResult)
}

func (h *TranslationHandler) translate(w http.ResponseWriter, r *http.Request) {
	var req service.TranslateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.translationService.TranslateText(r.Context(), req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

func (h *TranslationHandler) handleTranslationResult(w http.ResponseWriter, r *http.Request) {
	// an unset secret disables the webhook
	secret := r.Header.Get(webhookSecretHeader)
	if h.webhookSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.webhookSecret)) != 1 {
		common.RespondWithError(w, http.StatusUnauthorized, "Invalid webhook secret")
		return
	}

	var payload translator.ExternalResult
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Warn().Err(err).Msg("Webhook: invalid payload")
		common.RespondWithError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	if err := h.translationService.HandleExternalResult(r.Context(), payload); err != nil {
		log.Error().Err(err).Str("job_id", payload.JobID).Msg("Webhook: error handling translation result")
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Webhook processed for job " + payload.JobID})
}
