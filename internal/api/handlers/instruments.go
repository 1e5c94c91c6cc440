package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/hotscore/internal/contracts"
	"github.com/wonny/hotscore/internal/ranking"
	"github.com/wonny/hotscore/pkg/logger"
)

// InstrumentsHandler handles instrument record endpoints
// ⭐ SSOT: 종목 API 핸들러는 이 구조체에서만
type InstrumentsHandler struct {
	store   contracts.InstrumentStore
	ranking *ranking.Service
	logger  *logger.Logger
}

// NewInstrumentsHandler creates a new instruments handler
func NewInstrumentsHandler(store contracts.InstrumentStore, rankingSvc *ranking.Service, log *logger.Logger) *InstrumentsHandler {
	return &InstrumentsHandler{
		store:   store,
		ranking: rankingSvc,
		logger:  log,
	}
}

// GetInstrument returns one instrument with its history and score
// GET /api/instruments/{id}
func (h *InstrumentsHandler) GetInstrument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	inst, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, id, "Failed to retrieve instrument")
		return
	}

	respondJSON(w, http.StatusOK, inst)
}

// PriceHistoryRequest replaces an instrument's price periods
type PriceHistoryRequest struct {
	Name      string                  `json:"name"`
	Periods   []contracts.PricePeriod `json:"periods"`
	FetchedAt *time.Time              `json:"fetchedAt"`
}

// PutPriceHistory stores a refreshed price history and clears the stale score
// PUT /api/instruments/{id}/price-history
func (h *InstrumentsHandler) PutPriceHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	var req PriceHistoryRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	periods, err := contracts.NormalizePriceHistory(req.Periods)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	fetchedAt := time.Now()
	if req.FetchedAt != nil {
		fetchedAt = *req.FetchedAt
	}

	if err := h.store.Upsert(ctx, id, req.Name); err != nil {
		h.fail(w, err, id, "Failed to save instrument")
		return
	}
	if err := h.store.ReplacePriceHistory(ctx, id, periods, fetchedAt); err != nil {
		h.fail(w, err, id, "Failed to save price history")
		return
	}
	h.ranking.Invalidate(ctx)

	h.logger.WithFields(map[string]interface{}{
		"instrument_id": id,
		"periods":       len(periods),
	}).Info("Price history replaced")

	inst, err := h.store.Get(ctx, id)
	if err != nil {
		h.fail(w, err, id, "Failed to retrieve instrument")
		return
	}
	respondJSON(w, http.StatusOK, inst)
}

// DeleteInstrument soft-deletes an instrument
// DELETE /api/instruments/{id}
func (h *InstrumentsHandler) DeleteInstrument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if err := h.store.SoftDelete(ctx, id); err != nil {
		h.fail(w, err, id, "Failed to delete instrument")
		return
	}
	h.ranking.Invalidate(ctx)

	w.WriteHeader(http.StatusNoContent)
}

func (h *InstrumentsHandler) fail(w http.ResponseWriter, err error, id, message string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("instrument_id", id).Error(message)
		respondError(w, status, message)
		return
	}
	respondError(w, status, err.Error())
}
