package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/AnshRaj112/serenify-journal/internal/models"
)

// ErrNotFound is returned when a requested row does not exist or is not
// owned by the caller.
var ErrNotFound = errors.New("not found")

// UserStore maps external identity subjects to local user rows.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// GetOrCreateBySubject returns the user for subject, creating it on first sight.
func (s *UserStore) GetOrCreateBySubject(ctx context.Context, subject string) (*models.User, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, fmt.Errorf("empty subject")
	}

	var u models.User
	// DO UPDATE (not NOTHING) so RETURNING yields the row either way.
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (subject) VALUES ($1)
		ON CONFLICT (subject) DO UPDATE SET subject = EXCLUDED.subject
		RETURNING id, subject, created_at
	`, subject).Scan(&u.ID, &u.Subject, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create user: %w", err)
	}
	return &u, nil
}

// ListUserIDs returns up to limit ids greater than afterID, ascending.
func (s *UserStore) ListUserIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM users WHERE id > $1 ORDER BY id LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
