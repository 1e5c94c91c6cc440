package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/wonny/hotscore/internal/contracts"
	"github.com/wonny/hotscore/internal/ranking"
	"github.com/wonny/hotscore/internal/scoring"
	"github.com/wonny/hotscore/pkg/logger"
	"github.com/wonny/hotscore/pkg/redis"
)

// BatchRunner runs one recompute call
type BatchRunner interface {
	RunBatch(ctx context.Context, batchSize int, params contracts.ScoringParameters, resumeAfter *string) (*contracts.BatchResult, error)
}

// Limiter throttles recompute calls
type Limiter interface {
	Allow(ctx context.Context, cfg redis.RateLimitConfig, subject string) (bool, int, error)
}

// ScoresOptions holds request defaults and guard settings
type ScoresOptions struct {
	DefaultBatchSize int
	DefaultPreset    string
	RateLimit        redis.RateLimitConfig
}

// ScoresHandler handles score-related API endpoints
// ⭐ SSOT: 스코어 API 핸들러는 이 구조체에서만
type ScoresHandler struct {
	engine  BatchRunner
	ranking *ranking.Service
	limiter Limiter
	opts    ScoresOptions
	logger  *logger.Logger
}

// NewScoresHandler creates a new scores handler. limiter may be nil.
// Overlapping recompute calls are rejected by the engine (409).
func NewScoresHandler(
	engine BatchRunner,
	rankingSvc *ranking.Service,
	limiter Limiter,
	opts ScoresOptions,
	log *logger.Logger,
) *ScoresHandler {
	if opts.DefaultBatchSize == 0 {
		opts.DefaultBatchSize = 100
	}
	return &ScoresHandler{
		engine:  engine,
		ranking: rankingSvc,
		limiter: limiter,
		opts:    opts,
		logger:  log,
	}
}

// RecomputeRequest is the body of POST /api/scores/recompute.
// Every field is optional; params fields not supplied fall back to the preset.
type RecomputeRequest struct {
	BatchSize      *int            `json:"batchSize"`
	Params         json.RawMessage `json:"params"`
	Preset         string          `json:"preset"`
	ContinueFromID string          `json:"continueFromId"`
}

// RecomputeResponse reports one recompute call.
// Clients continue a sweep by sending ResumeToken as continueFromId; it is null
// once the sweep is complete. LastProcessedID is the last instrument read by
// this call and stays set on the final page.
type RecomputeResponse struct {
	Message         string                      `json:"message"`
	Processed       int                         `json:"processed"`
	Skipped         int                         `json:"skipped"`
	Failed          int                         `json:"failed"`
	HasMore         bool                        `json:"hasMore"`
	LastProcessedID *string                     `json:"lastProcessedId"`
	ResumeToken     *string                     `json:"resumeToken"`
	ParamsUsed      contracts.ScoringParameters `json:"paramsUsed"`
	DurationMs      int64                       `json:"durationMs"`
}

// Recompute runs one page of the score recomputation
// POST /api/scores/recompute
func (h *ScoresHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RecomputeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	batchSize := h.opts.DefaultBatchSize
	if req.BatchSize != nil {
		batchSize = *req.BatchSize
	}
	if err := contracts.ValidateBatchSize(batchSize); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	params, err := resolveParams(req.Preset, h.opts.DefaultPreset, req.Params)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.limiter != nil {
		allowed, _, err := h.limiter.Allow(ctx, h.opts.RateLimit, clientIP(r))
		if err != nil {
			// 레이트 리밋 장애 시 요청은 통과
			h.logger.WithError(err).Warn("Rate limit check failed")
		} else if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(h.opts.RateLimit.Window.Seconds())))
			respondError(w, http.StatusTooManyRequests, "Too many recompute requests")
			return
		}
	}

	var resumeAfter *string
	if req.ContinueFromID != "" {
		resumeAfter = &req.ContinueFromID
	}

	result, err := h.engine.RunBatch(ctx, batchSize, params, resumeAfter)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.WithError(err).WithField("continue_from", req.ContinueFromID).Error("Recompute failed")
			respondError(w, status, "Failed to recompute scores")
			return
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, RecomputeResponse{
		Message:         recomputeMessage(result),
		Processed:       result.Processed,
		Skipped:         result.Skipped,
		Failed:          result.Failed,
		HasMore:         result.HasMore,
		LastProcessedID: result.LastProcessedID,
		ResumeToken:     result.ResumeToken,
		ParamsUsed:      result.ParamsUsed,
		DurationMs:      result.Duration.Milliseconds(),
	})
}

func recomputeMessage(r *contracts.BatchResult) string {
	if r.HasMore {
		return fmt.Sprintf("Processed %d instruments, more remaining", r.Processed)
	}
	return fmt.Sprintf("Processed %d instruments, sweep complete", r.Processed)
}

// PreviewRequest is the body of POST /api/scores/preview
type PreviewRequest struct {
	Prices  []float64               `json:"prices"`
	Periods []contracts.PricePeriod `json:"periods"`
	Params  json.RawMessage         `json:"params"`
	Preset  string                  `json:"preset"`
}

// PreviewResponse is a score computed without touching storage
type PreviewResponse struct {
	Score        float64                     `json:"score"`
	HotnessScore int                         `json:"hotnessScore"`
	Breakdown    scoring.Breakdown           `json:"breakdown"`
	ParamsUsed   contracts.ScoringParameters `json:"paramsUsed"`
}

// Preview scores an ad-hoc price series
// POST /api/scores/preview
func (h *ScoresHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params, err := resolveParams(req.Preset, h.opts.DefaultPreset, req.Params)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// periods가 있으면 우선 사용 (정렬 보장)
	series := scoring.NewSeries(req.Prices)
	if len(req.Periods) > 0 {
		series = scoring.SeriesFromPeriods(req.Periods)
	}

	result, err := scoring.Score(series, params)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, PreviewResponse{
		Score:        result.Rounded(),
		HotnessScore: result.Integer(),
		Breakdown:    result.Breakdown,
		ParamsUsed:   params,
	})
}

// GetPresets returns the named parameter presets
// GET /api/scores/presets
func (h *ScoresHandler) GetPresets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"default": h.opts.DefaultPreset,
		"presets": scoring.Presets(),
	})
}

// GetTop returns the highest scored instruments
// GET /api/scores/top?limit=20
func (h *ScoresHandler) GetTop(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected integer)")
			return
		}
		limit = n
	}

	ranked, err := h.ranking.Top(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get ranking")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve ranking")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(ranked),
		"instruments": ranked,
	})
}

// resolveParams starts from the named preset and overlays any supplied fields
func resolveParams(preset, fallback string, raw json.RawMessage) (contracts.ScoringParameters, error) {
	if preset == "" {
		preset = fallback
	}
	params, err := scoring.Preset(preset)
	if err != nil {
		return contracts.ScoringParameters{}, err
	}

	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &params); err != nil {
			return contracts.ScoringParameters{}, fmt.Errorf("%w: params: %v", contracts.ErrInvalidParameter, err)
		}
	}

	if err := params.Validate(); err != nil {
		return contracts.ScoringParameters{}, err
	}
	return params, nil
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
