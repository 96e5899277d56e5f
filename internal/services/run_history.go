package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/serenify-journal/internal/models"
)

const runsCollection = "advice_runs"

// RunHistory keeps every fleet run summary in MongoDB.
type RunHistory struct {
	coll *mongo.Collection
}

func NewRunHistory(db *mongo.Database) *RunHistory {
	return &RunHistory{coll: db.Collection(runsCollection)}
}

// EnsureIndexes creates the indexes Recent and run_id lookups rely on.
func (h *RunHistory) EnsureIndexes(ctx context.Context) error {
	_, err := h.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "started_at", Value: -1}}},
		{Keys: bson.D{{Key: "run_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("ensure %s indexes: %w", runsCollection, err)
	}
	return nil
}

// Record upserts summary by run id.
func (h *RunHistory) Record(ctx context.Context, summary models.RunSummary) error {
	_, err := h.coll.ReplaceOne(ctx,
		bson.M{"run_id": summary.RunID},
		summary,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", summary.RunID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (h *RunHistory) Recent(ctx context.Context, limit int64) ([]models.RunSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := h.coll.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("find runs: %w", err)
	}
	defer cursor.Close(ctx)

	runs := []models.RunSummary{}
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("decode runs: %w", err)
	}
	return runs, nil
}
