package aggregation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/pkg/logger"
)

const (
	DefaultWorkers    = 4
	DefaultPageSize   = 500
	DefaultJobTimeout = 60 * time.Second
)

// UserDirectory pages through every user id in ascending order, starting
// after afterID. An empty page means the end.
type UserDirectory interface {
	ListUserIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

// FailureReporter receives every failed job. Optional.
type FailureReporter interface {
	ReportJobFailure(runID string, userID int64, err error)
}

// Runner is the per-user job the fleet dispatches.
type Runner interface {
	Run(ctx context.Context, userID int64, ref time.Time) (Result, error)
	WeekOf(ref time.Time) time.Time
}

type FleetOptions struct {
	Workers    int
	PageSize   int
	JobTimeout time.Duration
	Reporter   FailureReporter
}

// Fleet runs a Job for every user in the directory.
type Fleet struct {
	job        Runner
	users      UserDirectory
	workers    int
	pageSize   int
	jobTimeout time.Duration
	reporter   FailureReporter
	now        func() time.Time
}

func NewFleet(job Runner, users UserDirectory, opts FleetOptions) *Fleet {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = DefaultJobTimeout
	}
	return &Fleet{
		job:        job,
		users:      users,
		workers:    opts.Workers,
		pageSize:   opts.PageSize,
		jobTimeout: opts.JobTimeout,
		reporter:   opts.Reporter,
		now:        time.Now,
	}
}

// Run aggregates the week of ref for every user. One user's failure never
// stops the others. When ctx is cancelled no new jobs start, jobs in flight
// finish, and the partial summary is returned with ctx.Err().
// A zero ref means now.
func (f *Fleet) Run(ctx context.Context, ref time.Time) (models.RunSummary, error) {
	if ref.IsZero() {
		ref = f.now()
	}
	ref = ref.UTC()
	summary := models.RunSummary{
		RunID:     uuid.NewString(),
		Reference: ref,
		WeekOf:    f.job.WeekOf(ref),
		StartedAt: f.now().UTC(),
		Failures:  []models.RunFailure{},
	}

	var (
		mu     sync.Mutex
		g      errgroup.Group
		runErr error
	)
	g.SetLimit(f.workers)

	record := func(userID int64, res Result, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, models.RunFailure{UserID: userID, Error: err.Error()})
			return
		}
		switch res.Outcome {
		case OutcomeCreated:
			summary.Created++
		case OutcomeExisting:
			summary.SkippedDuplicate++
		case OutcomeNoPosts:
			summary.SkippedNoPosts++
		case OutcomeNoOutput:
			summary.SkippedNoOutput++
		}
	}

	var afterID int64
dispatch:
	for {
		if ctx.Err() != nil {
			break
		}
		ids, err := f.users.ListUserIDs(ctx, afterID, f.pageSize)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			runErr = fmt.Errorf("list users after %d: %w", afterID, err)
			summary.DirectoryError = runErr.Error()
			logger.Error("user directory failed, stopping dispatch",
				zap.String("run_id", summary.RunID),
				zap.Int64("after_id", afterID),
				zap.Error(err),
			)
			break
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			if ctx.Err() != nil {
				break dispatch
			}
			userID := id
			summary.Users++
			g.Go(func() error {
				res, err := f.runOne(ctx, summary.RunID, userID, ref)
				record(userID, res, err)
				return nil
			})
		}

		afterID = ids[len(ids)-1]
		if len(ids) < f.pageSize {
			break
		}
	}

	_ = g.Wait()
	summary.FinishedAt = f.now().UTC()

	if err := ctx.Err(); err != nil {
		summary.Cancelled = true
		logger.Warn("advice run cancelled",
			zap.String("run_id", summary.RunID),
			zap.Int("dispatched", summary.Users),
		)
		return summary, errors.Join(err, runErr)
	}

	logger.Info("advice run finished",
		zap.String("run_id", summary.RunID),
		zap.Time("week_of", summary.WeekOf),
		zap.Int("users", summary.Users),
		zap.Int("created", summary.Created),
		zap.Int("skipped_no_posts", summary.SkippedNoPosts),
		zap.Int("skipped_no_output", summary.SkippedNoOutput),
		zap.Int("skipped_duplicate", summary.SkippedDuplicate),
		zap.Int("failed", summary.Failed),
		zap.Duration("took", summary.Duration()),
	)
	return summary, runErr
}

// runOne runs a single job detached from run cancellation but bounded by
// the job timeout. A panic is turned into an error.
func (f *Fleet) runOne(ctx context.Context, runID string, userID int64, ref time.Time) (res Result, err error) {
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			logger.Error("advice job failed",
				zap.String("run_id", runID),
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
			if f.reporter != nil {
				f.reporter.ReportJobFailure(runID, userID, err)
			}
		}
	}()

	return f.job.Run(jobCtx, userID, ref)
}
