// Package scheduler fires fleet advice runs on the weekly calendar and on
// demand, never more than one at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/internal/weekly"
	"github.com/AnshRaj112/serenify-journal/pkg/logger"
)

// State of the scheduler's single run slot.
type State int32

const (
	StateIdle State = iota
	StateTriggered
	StateRunning
	StateCooldown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTriggered:
		return "triggered"
	case StateRunning:
		return "running"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

const recordTimeout = 10 * time.Second

// FleetRunner runs one aggregation pass over every user.
type FleetRunner interface {
	Run(ctx context.Context, ref time.Time) (models.RunSummary, error)
}

// Recorder stores a finished run's summary.
type Recorder interface {
	Record(ctx context.Context, summary models.RunSummary) error
}

// Lock guards runs across processes. Acquire reports ok=false when another
// holder has it.
type Lock interface {
	Acquire(ctx context.Context) (release func(context.Context) error, ok bool, err error)
}

// Recorders fans a summary out to several recorders and joins their errors.
type Recorders []Recorder

func (rs Recorders) Record(ctx context.Context, summary models.RunSummary) error {
	var errs []error
	for _, r := range rs {
		if err := r.Record(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Options struct {
	Boundary weekly.Boundary
	Recorder Recorder
	Lock     Lock
}

type Scheduler struct {
	fleet    FleetRunner
	boundary weekly.Boundary
	recorder Recorder
	lock     Lock

	state atomic.Int32
	wg    sync.WaitGroup

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func New(fleet FleetRunner, opts Options) *Scheduler {
	return &Scheduler{
		fleet:    fleet,
		boundary: opts.Boundary,
		recorder: opts.Recorder,
		lock:     opts.Lock,
		now:      time.Now,
		after:    time.After,
	}
}

func (s *Scheduler) State() State { return State(s.state.Load()) }

// Wait blocks until any accepted run has finished.
func (s *Scheduler) Wait() { s.wg.Wait() }

// Start runs the calendar loop until ctx is done, firing a calendar trigger
// at every boundary instant. The boundary instant itself is the run's
// reference, however late the wake-up.
func (s *Scheduler) Start(ctx context.Context) {
	logger.Info("✅ Advice scheduler started", zap.String("boundary", s.boundary.String()))

	var last time.Time
	for {
		next := s.boundary.Next(s.now())
		if !next.After(last) {
			next = s.boundary.Next(last)
		}
		logger.Info("next advice run scheduled", zap.Time("at", next))

		select {
		case <-ctx.Done():
			s.wg.Wait()
			logger.Info("advice scheduler stopped")
			return
		case <-s.after(next.Sub(s.now())):
			last = next
			// Both cases can be ready at shutdown; never start a run that
			// would only record itself as cancelled.
			if ctx.Err() != nil {
				continue
			}
			s.Trigger(ctx, next, models.TriggerCalendar)
		}
	}
}

// Trigger starts a run in the background and reports whether it was
// accepted. A trigger that arrives while a run is in progress is dropped.
// ctx bounds the run.
func (s *Scheduler) Trigger(ctx context.Context, ref time.Time, source models.TriggerSource) bool {
	if !s.claim(ref, source) {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _, _ = s.execute(ctx, ref, source)
	}()
	return true
}

// TriggerAndWait runs in the caller's goroutine. accepted is false when the
// trigger was dropped.
func (s *Scheduler) TriggerAndWait(ctx context.Context, ref time.Time, source models.TriggerSource) (summary models.RunSummary, accepted bool, err error) {
	if !s.claim(ref, source) {
		return models.RunSummary{}, false, nil
	}
	s.wg.Add(1)
	defer s.wg.Done()
	return s.execute(ctx, ref, source)
}

func (s *Scheduler) claim(ref time.Time, source models.TriggerSource) bool {
	if s.state.CompareAndSwap(int32(StateIdle), int32(StateTriggered)) {
		return true
	}
	logger.Info("advice run already in progress, trigger dropped",
		zap.String("trigger", string(source)),
		zap.Time("reference", ref),
		zap.Stringer("state", s.State()),
	)
	return false
}

func (s *Scheduler) execute(ctx context.Context, ref time.Time, source models.TriggerSource) (models.RunSummary, bool, error) {
	defer s.state.Store(int32(StateIdle))

	if s.lock != nil {
		release, ok, err := s.lock.Acquire(ctx)
		if err != nil {
			logger.Error("advice run lock failed", zap.String("trigger", string(source)), zap.Error(err))
			return models.RunSummary{}, false, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			logger.Info("advice run held by another process, trigger dropped", zap.String("trigger", string(source)))
			return models.RunSummary{}, false, nil
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
			defer cancel()
			if err := release(releaseCtx); err != nil {
				logger.Warn("advice run lock release failed", zap.Error(err))
			}
		}()
	}

	s.state.Store(int32(StateRunning))
	logger.Info("advice run started", zap.String("trigger", string(source)), zap.Time("reference", ref))

	summary, runErr := s.fleet.Run(ctx, ref)
	summary.Trigger = source

	s.state.Store(int32(StateCooldown))
	if s.recorder != nil {
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		if err := s.recorder.Record(recCtx, summary); err != nil {
			logger.Error("advice run summary not recorded", zap.String("run_id", summary.RunID), zap.Error(err))
		}
		cancel()
	}
	return summary, true, runErr
}
