package recompute

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/hotscore/internal/contracts"
	"github.com/wonny/hotscore/pkg/httputil"
	"github.com/wonny/hotscore/pkg/logger"
)

const recomputePath = "/api/scores/recompute"

// RemoteDriver drives a full sweep against a running API server by calling
// the recompute endpoint repeatedly with the returned resume token.
type RemoteDriver struct {
	client  *httputil.Client
	baseURL string
	logger  *logger.Logger
}

// NewRemoteDriver creates a driver for the API at baseURL
func NewRemoteDriver(client *httputil.Client, baseURL string, log *logger.Logger) *RemoteDriver {
	if log == nil {
		log = logger.Nop()
	}
	return &RemoteDriver{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log.WithField("component", "remote_recompute"),
	}
}

type remoteRequest struct {
	BatchSize      int                          `json:"batchSize"`
	Params         *contracts.ScoringParameters `json:"params,omitempty"`
	ContinueFromID string                       `json:"continueFromId,omitempty"`
}

type remoteResponse struct {
	Processed       int                         `json:"processed"`
	Skipped         int                         `json:"skipped"`
	Failed          int                         `json:"failed"`
	HasMore         bool                        `json:"hasMore"`
	LastProcessedID *string                     `json:"lastProcessedId"`
	ResumeToken     *string                     `json:"resumeToken"`
	ParamsUsed      contracts.ScoringParameters `json:"paramsUsed"`
}

// RunBatch performs one remote recompute call
func (d *RemoteDriver) RunBatch(ctx context.Context, batchSize int, params contracts.ScoringParameters, resumeAfter *string) (*contracts.BatchResult, error) {
	req := remoteRequest{BatchSize: batchSize, Params: &params}
	if resumeAfter != nil {
		req.ContinueFromID = *resumeAfter
	}

	started := time.Now()
	resp, err := d.client.PostJSON(ctx, d.baseURL+recomputePath, req)
	if err != nil {
		return nil, fmt.Errorf("recompute request failed: %w", err)
	}

	var out remoteResponse
	if err := httputil.DecodeJSON(resp, &out); err != nil {
		return nil, fmt.Errorf("recompute call after %q: %w", req.ContinueFromID, err)
	}

	return &contracts.BatchResult{
		Processed:       out.Processed,
		Skipped:         out.Skipped,
		Failed:          out.Failed,
		HasMore:         out.HasMore,
		ResumeToken:     out.ResumeToken,
		LastProcessedID: out.LastProcessedID,
		ParamsUsed:      out.ParamsUsed,
		StartedAt:       started,
		Duration:        time.Since(started),
	}, nil
}

// Sweep calls the endpoint from the beginning until no page remains.
// On failure the returned summary tells how far the sweep got; resume with
// SweepFrom and the last reported token.
func (d *RemoteDriver) Sweep(ctx context.Context, batchSize int, params contracts.ScoringParameters) (*contracts.SweepSummary, error) {
	summary, _, err := d.SweepFrom(ctx, batchSize, params, nil)
	return summary, err
}

// SweepFrom continues a sweep after resumeAfter. It returns the last resume
// token that was acknowledged by the server.
func (d *RemoteDriver) SweepFrom(ctx context.Context, batchSize int, params contracts.ScoringParameters, resumeAfter *string) (*contracts.SweepSummary, *string, error) {
	started := time.Now()
	summary := &contracts.SweepSummary{}
	cursor := resumeAfter

	for {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(started)
			return summary, cursor, err
		}

		result, err := d.RunBatch(ctx, batchSize, params, cursor)
		if err != nil {
			summary.Duration = time.Since(started)
			return summary, cursor, err
		}
		summary.Add(result)

		d.logger.WithFields(map[string]interface{}{
			"batch":     summary.Batches,
			"processed": result.Processed,
			"has_more":  result.HasMore,
		}).Info("Remote batch completed")

		if !result.HasMore || result.ResumeToken == nil {
			break
		}
		cursor = result.ResumeToken
	}

	summary.Duration = time.Since(started)
	return summary, nil, nil
}
