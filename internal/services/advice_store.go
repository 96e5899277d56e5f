package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/serenify-journal/internal/models"
)

// AdviceStore persists weekly advice. The (user_id, week_of) unique
// constraint makes CreateIfAbsent safe across processes.
type AdviceStore struct {
	db *sql.DB
}

func NewAdviceStore(db *sql.DB) *AdviceStore {
	return &AdviceStore{db: db}
}

func scanAdvice(row rowScanner) (models.AdviceRecord, error) {
	var r models.AdviceRecord
	err := row.Scan(&r.ID, &r.UserID, &r.Content, &r.WeekOf, &r.CreatedAt)
	r.WeekOf = r.WeekOf.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	return r, err
}

// Find returns the record for (userID, weekOf), or nil when there is none.
func (s *AdviceStore) Find(ctx context.Context, userID int64, weekOf time.Time) (*models.AdviceRecord, error) {
	r, err := scanAdvice(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, content, week_of, created_at
		FROM weekly_advices WHERE user_id = $1 AND week_of = $2
	`, userID, weekOf.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find advice: %w", err)
	}
	return &r, nil
}

// CreateIfAbsent inserts rec unless a record for its week already exists.
// created is false when another writer got there first; the stored record
// is returned in both cases.
func (s *AdviceStore) CreateIfAbsent(ctx context.Context, rec models.AdviceRecord) (*models.AdviceRecord, bool, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	r, err := scanAdvice(s.db.QueryRowContext(ctx, `
		INSERT INTO weekly_advices (user_id, content, week_of, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT ux_weekly_advices_user_week DO NOTHING
		RETURNING id, user_id, content, week_of, created_at
	`, rec.UserID, rec.Content, rec.WeekOf.UTC(), rec.CreatedAt.UTC()))
	if err == nil {
		return &r, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert advice: %w", err)
	}

	existing, err := s.Find(ctx, rec.UserID, rec.WeekOf)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("insert advice: conflict but no row for user %d week %s", rec.UserID, rec.WeekOf.UTC().Format(time.RFC3339))
	}
	return existing, false, nil
}

// ListByUser returns a user's records, newest week first.
func (s *AdviceStore) ListByUser(ctx context.Context, userID int64, limit int) ([]models.AdviceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, content, week_of, created_at
		FROM weekly_advices WHERE user_id = $1
		ORDER BY week_of DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list advice: %w", err)
	}
	defer rows.Close()

	out := []models.AdviceRecord{}
	for rows.Next() {
		r, err := scanAdvice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan advice: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Latest returns the user's most recent record or ErrNotFound.
func (s *AdviceStore) Latest(ctx context.Context, userID int64) (*models.AdviceRecord, error) {
	recs, err := s.ListByUser(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return &recs[0], nil
}
