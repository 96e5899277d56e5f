// Package aggregation summarizes each user's week of posts into an advice
// record, for one user (Job) or for every user (Fleet).
package aggregation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/internal/weekly"
	"github.com/AnshRaj112/serenify-journal/pkg/logger"
)

// PostStore reads a user's posts in [since, until), oldest first.
type PostStore interface {
	ListPosts(ctx context.Context, userID int64, since, until time.Time) ([]models.Post, error)
}

// AdviceStore persists advice records. Find returns (nil, nil) when absent.
// CreateIfAbsent reports whether rec was inserted; on conflict it returns the
// record already stored.
type AdviceStore interface {
	Find(ctx context.Context, userID int64, weekOf time.Time) (*models.AdviceRecord, error)
	CreateIfAbsent(ctx context.Context, rec models.AdviceRecord) (*models.AdviceRecord, bool, error)
}

// AdviceGenerator produces advice text; ok is false when there is nothing to store.
type AdviceGenerator interface {
	Generate(ctx context.Context, posts []models.Post) (text string, ok bool)
}

// LatestAdviceCache drops a user's cached latest advice so readers see a
// newly created record before the cache entry expires.
type LatestAdviceCache interface {
	ForgetLatestAdvice(ctx context.Context, userID int64, week time.Time) error
}

// Outcome is what a single job did.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeExisting
	OutcomeNoPosts
	OutcomeNoOutput
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeExisting:
		return "existing"
	case OutcomeNoPosts:
		return "no_posts"
	case OutcomeNoOutput:
		return "no_output"
	default:
		return "unknown"
	}
}

// Result of Job.Run. Record is set for OutcomeCreated and OutcomeExisting.
type Result struct {
	Outcome Outcome
	WeekOf  time.Time
	Posts   int
	Record  *models.AdviceRecord
}

// Job runs the weekly aggregation for one user.
type Job struct {
	posts     PostStore
	advice    AdviceStore
	generator AdviceGenerator
	boundary  weekly.Boundary
	cache     LatestAdviceCache
	now       func() time.Time

	group singleflight.Group
}

func NewJob(posts PostStore, advice AdviceStore, generator AdviceGenerator, boundary weekly.Boundary) *Job {
	return &Job{
		posts:     posts,
		advice:    advice,
		generator: generator,
		boundary:  boundary,
		now:       time.Now,
	}
}

// WithCache makes the job invalidate c whenever it creates a record.
func (j *Job) WithCache(c LatestAdviceCache) *Job {
	j.cache = c
	return j
}

// WeekOf is the week_of key Run uses for ref.
func (j *Job) WeekOf(ref time.Time) time.Time {
	return j.boundary.Window(ref).Start
}

// Run aggregates userID's posts for the week window of ref. A zero ref means now.
// Running it again for the same week returns the stored record unchanged.
func (j *Job) Run(ctx context.Context, userID int64, ref time.Time) (Result, error) {
	if ref.IsZero() {
		ref = j.now()
	}
	window := j.boundary.Window(ref)

	key := strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(window.Start.Unix(), 10)
	v, err, _ := j.group.Do(key, func() (any, error) {
		return j.run(ctx, userID, window)
	})
	if err != nil {
		return Result{WeekOf: window.Start}, err
	}
	return v.(Result), nil
}

func (j *Job) run(ctx context.Context, userID int64, window weekly.Window) (Result, error) {
	res := Result{WeekOf: window.Start}

	existing, err := j.advice.Find(ctx, userID, window.Start)
	if err != nil {
		return res, fmt.Errorf("find advice for user %d: %w", userID, err)
	}
	if existing != nil {
		res.Outcome = OutcomeExisting
		res.Record = existing
		return res, nil
	}

	posts, err := j.posts.ListPosts(ctx, userID, window.Start, window.End)
	if err != nil {
		return res, fmt.Errorf("list posts for user %d: %w", userID, err)
	}
	res.Posts = len(posts)
	if len(posts) == 0 {
		res.Outcome = OutcomeNoPosts
		return res, nil
	}

	text, ok := j.generator.Generate(ctx, posts)
	if !ok {
		res.Outcome = OutcomeNoOutput
		return res, nil
	}

	rec, created, err := j.advice.CreateIfAbsent(ctx, models.AdviceRecord{
		UserID:    userID,
		Content:   text,
		WeekOf:    window.Start,
		CreatedAt: j.now().UTC(),
	})
	if err != nil {
		return res, fmt.Errorf("store advice for user %d: %w", userID, err)
	}
	res.Record = rec
	if created {
		res.Outcome = OutcomeCreated
		j.forgetLatest(ctx, userID)
	} else {
		logger.Debug("advice already stored by a concurrent run",
			zap.Int64("user_id", userID),
			zap.Time("week_of", window.Start),
		)
		res.Outcome = OutcomeExisting
	}
	return res, nil
}

// forgetLatest drops the entry readers use this week. Failure only delays
// visibility until the entry expires.
func (j *Job) forgetLatest(ctx context.Context, userID int64) {
	if j.cache == nil {
		return
	}
	if err := j.cache.ForgetLatestAdvice(ctx, userID, j.boundary.WeekStart(j.now())); err != nil {
		logger.Warn("latest advice cache not invalidated", zap.Int64("user_id", userID), zap.Error(err))
	}
}
