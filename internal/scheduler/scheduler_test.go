package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/internal/weekly"
)

type gatedFleet struct {
	started chan time.Time
	release chan struct{}
	calls   atomic.Int32
}

func newGatedFleet() *gatedFleet {
	return &gatedFleet{started: make(chan time.Time, 8), release: make(chan struct{})}
}

func (f *gatedFleet) Run(_ context.Context, ref time.Time) (models.RunSummary, error) {
	f.calls.Add(1)
	f.started <- ref
	<-f.release
	return models.RunSummary{RunID: "run-1", Reference: ref, Users: 3, Created: 2}, nil
}

type memRecorder struct {
	mu   sync.Mutex
	runs []models.RunSummary
	err  error
}

func (r *memRecorder) Record(_ context.Context, s models.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, s)
	return r.err
}

var boundaryB = time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)

func TestTrigger_SecondTriggerWhileRunningIsDropped(t *testing.T) {
	fleet := newGatedFleet()
	rec := &memRecorder{}
	s := New(fleet, Options{Boundary: weekly.Default, Recorder: rec})

	require.True(t, s.Trigger(context.Background(), boundaryB, models.TriggerCalendar))
	<-fleet.started
	assert.Equal(t, StateRunning, s.State())

	assert.False(t, s.Trigger(context.Background(), boundaryB, models.TriggerCalendar))
	_, accepted, err := s.TriggerAndWait(context.Background(), boundaryB, models.TriggerManual)
	assert.False(t, accepted)
	assert.NoError(t, err)

	close(fleet.release)
	s.Wait()

	assert.Equal(t, int32(1), fleet.calls.Load())
	assert.Equal(t, StateIdle, s.State())
	require.Len(t, rec.runs, 1)
	assert.Equal(t, models.TriggerCalendar, rec.runs[0].Trigger)
}

func TestTriggerAndWait_ReturnsSummary(t *testing.T) {
	fleet := newGatedFleet()
	close(fleet.release)
	s := New(fleet, Options{Boundary: weekly.Default})

	summary, accepted, err := s.TriggerAndWait(context.Background(), boundaryB, models.TriggerCLI)

	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, models.TriggerCLI, summary.Trigger)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, StateIdle, s.State())
}

func TestTrigger_RecorderErrorStillReturnsToIdle(t *testing.T) {
	fleet := newGatedFleet()
	close(fleet.release)
	rec := &memRecorder{err: errors.New("mongo down")}
	s := New(fleet, Options{Boundary: weekly.Default, Recorder: Recorders{rec, &memRecorder{}}})

	_, accepted, err := s.TriggerAndWait(context.Background(), boundaryB, models.TriggerManual)
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, StateIdle, s.State())

	_, accepted, _ = s.TriggerAndWait(context.Background(), boundaryB, models.TriggerManual)
	assert.True(t, accepted)
}

func TestRecorders_JoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	ok := &memRecorder{}
	err := Recorders{&memRecorder{err: boom}, ok}.Record(context.Background(), models.RunSummary{RunID: "x"})

	assert.ErrorIs(t, err, boom)
	assert.Len(t, ok.runs, 1)
}

func TestStart_FiresAtBoundaryWithBoundaryAsReference(t *testing.T) {
	fleet := newGatedFleet()
	close(fleet.release)
	s := New(fleet, Options{Boundary: weekly.Default})

	midWeek := time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return midWeek }

	waits := make(chan time.Duration, 4)
	fire := make(chan time.Time)
	s.after = func(d time.Duration) <-chan time.Time {
		waits <- d
		return fire
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	assert.Equal(t, boundaryB.Sub(midWeek), <-waits)
	fire <- boundaryB.Add(3 * time.Second)

	select {
	case ref := <-fleet.started:
		assert.Equal(t, boundaryB, ref)
	case <-time.After(time.Second):
		t.Fatal("calendar trigger did not fire")
	}

	// The clock has not moved, so the loop must aim for the following week.
	assert.Equal(t, boundaryB.Add(weekly.Week).Sub(midWeek), <-waits)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.Equal(t, int32(1), fleet.calls.Load())
}

func TestStart_NoCalendarRunAfterCancel(t *testing.T) {
	// select picks randomly between ready cases, so repeat to cover both.
	for i := 0; i < 50; i++ {
		fleet := newGatedFleet()
		close(fleet.release)
		rec := &memRecorder{}
		s := New(fleet, Options{Boundary: weekly.Default, Recorder: rec})
		s.now = func() time.Time { return boundaryB.Add(-time.Minute) }

		fired := make(chan time.Time, 1)
		fired <- boundaryB
		s.after = func(time.Duration) <-chan time.Time { return fired }

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s.Start(ctx)

		require.Zero(t, fleet.calls.Load(), "iteration %d", i)
		require.Empty(t, rec.runs)
		require.Equal(t, StateIdle, s.State())
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLock_ExclusiveAndReleasable(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "", time.Hour)
	b := NewRedisLock(client, "", time.Hour)

	release, ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, release(ctx))

	_, ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_StaleReleaseKeepsNewHolder(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	lock := NewRedisLock(client, "advice:test:lock", time.Minute)

	staleRelease, ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	_, ok, err = lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, staleRelease(ctx))
	assert.True(t, mr.Exists("advice:test:lock"))
}

func TestTrigger_DroppedWhenAnotherProcessHoldsLock(t *testing.T) {
	_, client := newTestRedis(t)
	other := NewRedisLock(client, "", time.Hour)
	_, ok, err := other.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	fleet := newGatedFleet()
	close(fleet.release)
	s := New(fleet, Options{Boundary: weekly.Default, Lock: NewRedisLock(client, "", time.Hour)})

	_, accepted, err := s.TriggerAndWait(context.Background(), boundaryB, models.TriggerCLI)
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Zero(t, fleet.calls.Load())
	assert.Equal(t, StateIdle, s.State())
}

func TestTrigger_LockReleasedAfterRun(t *testing.T) {
	mr, client := newTestRedis(t)
	fleet := newGatedFleet()
	close(fleet.release)
	s := New(fleet, Options{Boundary: weekly.Default, Lock: NewRedisLock(client, "", time.Hour)})

	_, accepted, err := s.TriggerAndWait(context.Background(), boundaryB, models.TriggerManual)
	require.NoError(t, err)
	require.True(t, accepted)
	assert.False(t, mr.Exists(DefaultLockKey))
}
