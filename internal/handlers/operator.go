package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/internal/scheduler"
	"github.com/AnshRaj112/serenify-journal/internal/services"
	"github.com/AnshRaj112/serenify-journal/pkg/logger"
)

type Triggerer interface {
	Trigger(ctx context.Context, ref time.Time, source models.TriggerSource) bool
	State() scheduler.State
}

type LastRunReader interface {
	LastRun(ctx context.Context) (*models.RunSummary, error)
}

// Operator serves the scheduler process's operator API. Accepted runs are
// bound to base, not to the request that started them.
type Operator struct {
	base  context.Context
	sched Triggerer
	runs  LastRunReader
	now   func() time.Time
}

func NewOperator(base context.Context, sched Triggerer, runs LastRunReader) *Operator {
	return &Operator{base: base, sched: sched, runs: runs, now: time.Now}
}

type TriggerRequest struct {
	At *time.Time `json:"at,omitempty"`
}

type TriggerResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Reference time.Time `json:"reference"`
	State     string    `json:"state"`
}

type LastRunResponse struct {
	Success bool               `json:"success"`
	State   string             `json:"state"`
	Run     *models.RunSummary `json:"run,omitempty"`
}

// TriggerRun starts a manual fleet run. The body is optional; "at" sets the
// reference instant, which defaults to now.
func (o *Operator) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body, \"at\" must be RFC3339")
		return
	}
	ref := o.now().UTC()
	if req.At != nil {
		ref = req.At.UTC()
	}

	if !o.sched.Trigger(o.base, ref, models.TriggerManual) {
		writeJSON(w, http.StatusConflict, TriggerResponse{
			Message:   "An advice run is already in progress",
			Reference: ref,
			State:     o.sched.State().String(),
		})
		return
	}
	writeJSON(w, http.StatusAccepted, TriggerResponse{
		Success:   true,
		Message:   "Advice run started",
		Reference: ref,
		State:     o.sched.State().String(),
	})
}

// LastRun reports the scheduler state and the most recent run summary.
func (o *Operator) LastRun(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	resp := LastRunResponse{Success: true, State: o.sched.State().String()}
	run, err := o.runs.LastRun(ctx)
	switch {
	case errors.Is(err, services.ErrNotFound):
	case err != nil:
		logger.Error("read last run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to read last run")
		return
	default:
		resp.Run = run
	}
	writeJSON(w, http.StatusOK, resp)
}
