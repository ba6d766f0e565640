package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kickplan/tournament-mirror/middleware"
	"github.com/kickplan/tournament-mirror/repositories"
	"github.com/kickplan/tournament-mirror/services"
)

const defaultDeliveryListLimit = 50

var errInvalidLimit = errors.New("limit must be a positive integer")

type SyncHandler struct {
	syncs  services.SyncService
	ledger repositories.WebhookLedger
	logger *slog.Logger
}

func NewSyncHandler(syncs services.SyncService, ledger repositories.WebhookLedger, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{syncs: syncs, ledger: ledger, logger: logger}
}

// TriggerFullSync handles POST /tournaments/{id}/sync: a synchronous full
// reconciliation the operator can run without waiting for a webhook.
func (h *SyncHandler) TriggerFullSync(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "id")
	if tournamentID == "" {
		notFoundResponse(w, r)
		return
	}

	h.logger.Info("manual full sync requested",
		slog.String("tournament_id", tournamentID),
		slog.String("operator", middleware.SubjectFromContext(r.Context())))

	report, err := h.syncs.FullSync(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{
		"status":        "ok",
		"tournament_id": report.TournamentID,
		"counts":        report.Counts,
		"warnings":      report.Warnings,
	}, nil)
}

// ListDeliveries handles GET /webhook-deliveries, newest first, optionally
// filtered by tournament_id.
func (h *SyncHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	tournamentID := r.URL.Query().Get("tournament_id")

	limit := defaultDeliveryListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			badRequestResponse(w, r, errInvalidLimit)
			return
		}
		limit = parsed
	}

	deliveries, err := h.ledger.List(r.Context(), tournamentID, limit)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"deliveries": deliveries}, nil)
}
