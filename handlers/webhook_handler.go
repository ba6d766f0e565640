package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kickplan/tournament-mirror/models"
	"github.com/kickplan/tournament-mirror/services"
)

// webhookEnvelope accepts both the bare delivery body and the wrapped form
// some platform proxies post, where the delivery sits under "body".
type webhookEnvelope struct {
	models.WebhookPayload
	Body *models.WebhookPayload `json:"body"`
}

type WebhookHandler struct {
	webhooks services.WebhookService
	validate *validator.Validate
}

func NewWebhookHandler(webhooks services.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhooks: webhooks,
		validate: validator.New(),
	}
}

// Receive handles POST /webhook/{mode}. The payload is validated before the
// ledger is touched: a malformed delivery is rejected with 400 and leaves no
// record, so a corrected redelivery is not mistaken for a duplicate.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")
	if mode != "production" && mode != "test" {
		badRequestResponse(w, r, fmt.Errorf("unknown webhook mode %q", mode))
		return
	}

	var envelope webhookEnvelope
	if err := readJSON(w, r, &envelope); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	payload := &envelope.WebhookPayload
	if envelope.Body != nil {
		payload = envelope.Body
	}

	if err := h.validate.Struct(payload); err != nil {
		badRequestResponse(w, r, errors.New("delivery is missing id or tournamentId"))
		return
	}

	receipt, err := h.webhooks.HandleDelivery(r.Context(), payload, mode == "test")
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, receipt, nil)
}
