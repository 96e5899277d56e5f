package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/serenify-journal/internal/models"
)

const postColumns = `id, user_id, content, anger, disgust, fear, joy, neutral, sadness, surprise, created_at, updated_at`

// PostStore persists journal posts with their emotion scores.
type PostStore struct {
	db *sql.DB
}

func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (models.Post, error) {
	var p models.Post
	e := &p.Emotions
	err := row.Scan(&p.ID, &p.UserID, &p.Content,
		&e.Anger, &e.Disgust, &e.Fear, &e.Joy, &e.Neutral, &e.Sadness, &e.Surprise,
		&p.CreatedAt, &p.UpdatedAt)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, err
}

// Create stores a new post. A zero createdAt means now.
func (s *PostStore) Create(ctx context.Context, userID int64, content string, scores models.EmotionScores, createdAt time.Time) (*models.Post, error) {
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	e := scores.Clamp()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO posts (user_id, content, anger, disgust, fear, joy, neutral, sadness, surprise, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING `+postColumns,
		userID, content, e.Anger, e.Disgust, e.Fear, e.Joy, e.Neutral, e.Sadness, e.Surprise, createdAt.UTC())

	p, err := scanPost(row)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &p, nil
}

// Update replaces a post's content and scores. created_at is kept, so the
// post stays in its original week.
func (s *PostStore) Update(ctx context.Context, userID, postID int64, content string, scores models.EmotionScores) (*models.Post, error) {
	e := scores.Clamp()
	row := s.db.QueryRowContext(ctx, `
		UPDATE posts
		SET content = $3, anger = $4, disgust = $5, fear = $6, joy = $7, neutral = $8, sadness = $9, surprise = $10, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+postColumns,
		postID, userID, content, e.Anger, e.Disgust, e.Fear, e.Joy, e.Neutral, e.Sadness, e.Surprise)

	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return &p, nil
}

// ListByUser pages a user's posts, newest first.
func (s *PostStore) ListByUser(ctx context.Context, userID int64, limit, skip int) ([]models.Post, error) {
	return s.query(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, skip)
}

// ListPosts returns a user's posts created in [since, until), oldest first.
func (s *PostStore) ListPosts(ctx context.Context, userID int64, since, until time.Time) ([]models.Post, error) {
	return s.query(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC, id ASC
	`, userID, since.UTC(), until.UTC())
}

func (s *PostStore) query(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
