// Package handlers serves the journal HTTP API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/internal/services"
	"github.com/AnshRaj112/serenify-journal/internal/weekly"
)

const requestTimeout = 5 * time.Second

type PostRepository interface {
	Create(ctx context.Context, userID int64, content string, scores models.EmotionScores, createdAt time.Time) (*models.Post, error)
	Update(ctx context.Context, userID, postID int64, content string, scores models.EmotionScores) (*models.Post, error)
	ListByUser(ctx context.Context, userID int64, limit, skip int) ([]models.Post, error)
}

type AdviceRepository interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.AdviceRecord, error)
	Latest(ctx context.Context, userID int64) (*models.AdviceRecord, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type RunLister interface {
	Recent(ctx context.Context, limit int64) ([]models.RunSummary, error)
}

// Handlers holds the dependencies of every route.
type Handlers struct {
	posts    PostRepository
	advice   AdviceRepository
	cache    Cache
	runs     RunLister
	scorer   services.EmotionScorer
	boundary weekly.Boundary
	validate *validator.Validate
	now      func() time.Time
}

func New(posts PostRepository, advice AdviceRepository, cache Cache, runs RunLister, scorer services.EmotionScorer, boundary weekly.Boundary) *Handlers {
	return &Handlers{
		posts:    posts,
		advice:   advice,
		cache:    cache,
		runs:     runs,
		scorer:   scorer,
		boundary: boundary,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Message: message})
}

// queryInt reads a non-negative int query parameter, clamped to max.
func queryInt(r *http.Request, key string, def, max int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// Health reports liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("OK"))
}
