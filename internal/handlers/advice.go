package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/AnshRaj112/serenify-journal/internal/middleware"
	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/internal/services"
	"github.com/AnshRaj112/serenify-journal/pkg/logger"
)

type AdviceListResponse struct {
	Success bool                  `json:"success"`
	Advice  []models.AdviceRecord `json:"advice"`
}

type AdviceResponse struct {
	Success bool                 `json:"success"`
	Advice  *models.AdviceRecord `json:"advice"`
}

type RunsResponse struct {
	Success bool                `json:"success"`
	Runs    []models.RunSummary `json:"runs"`
}

// ListAdvice returns the caller's weekly advice, newest week first.
func (h *Handlers) ListAdvice(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	limit := queryInt(r, "limit", 12, 52)
	if limit == 0 {
		limit = 12
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	recs, err := h.advice.ListByUser(ctx, user.ID, limit)
	if err != nil {
		logger.Error("list advice failed", zap.Int64("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch advice")
		return
	}
	writeJSON(w, http.StatusOK, AdviceListResponse{Success: true, Advice: recs})
}

// LatestAdvice returns the caller's most recent advice, served from Redis
// when possible.
func (h *Handlers) LatestAdvice(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	key := services.LatestAdviceKey(user.ID, h.boundary.WeekStart(h.now()))

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var cached models.AdviceRecord
	hit, err := h.cache.Get(ctx, key, &cached)
	if err != nil {
		logger.Warn("advice cache read failed", zap.Error(err))
	}
	if hit {
		writeJSON(w, http.StatusOK, AdviceResponse{Success: true, Advice: &cached})
		return
	}

	rec, err := h.advice.Latest(ctx, user.ID)
	if errors.Is(err, services.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No advice yet")
		return
	}
	if err != nil {
		logger.Error("latest advice failed", zap.Int64("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch advice")
		return
	}

	if err := h.cache.Set(ctx, key, rec, services.LatestAdviceTTL); err != nil {
		logger.Warn("advice cache write failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, AdviceResponse{Success: true, Advice: rec})
}

// ListRuns returns recent fleet run summaries for operators.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20, 200)
	if limit == 0 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	runs, err := h.runs.Recent(ctx, int64(limit))
	if err != nil {
		logger.Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch runs")
		return
	}
	writeJSON(w, http.StatusOK, RunsResponse{Success: true, Runs: runs})
}
