package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/internal/scheduler"
	"github.com/AnshRaj112/serenify-journal/internal/services"
)

type fakeTriggerer struct {
	busy  bool
	refs  []time.Time
	ctxs  []context.Context
	state scheduler.State
}

func (f *fakeTriggerer) Trigger(ctx context.Context, ref time.Time, source models.TriggerSource) bool {
	if f.busy || source != models.TriggerManual {
		return false
	}
	f.refs = append(f.refs, ref)
	f.ctxs = append(f.ctxs, ctx)
	f.state = scheduler.StateRunning
	return true
}

func (f *fakeTriggerer) State() scheduler.State { return f.state }

type fakeLastRun struct{ run *models.RunSummary }

func (f fakeLastRun) LastRun(context.Context) (*models.RunSummary, error) {
	if f.run == nil {
		return nil, services.ErrNotFound
	}
	return f.run, nil
}

type baseKey struct{}

func TestOperator_TriggerRun(t *testing.T) {
	base := context.WithValue(context.Background(), baseKey{}, "process")
	sched := &fakeTriggerer{}
	op := NewOperator(base, sched, fakeLastRun{})
	now := time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)
	op.now = func() time.Time { return now }

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		op.TriggerRun(rec, httptest.NewRequest(http.MethodPost, "/api/scheduler/trigger", strings.NewReader(body)))
		return rec
	}

	rec := post("")
	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp TriggerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "running", resp.State)
	assert.True(t, now.Equal(sched.refs[0]))
	assert.Equal(t, "process", sched.ctxs[0].Value(baseKey{}), "run must outlive the request")

	sched.state = scheduler.StateIdle
	require.Equal(t, http.StatusAccepted, post(`{"at":"2024-01-14T00:00:00Z"}`).Code)
	assert.True(t, time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC).Equal(sched.refs[1]))

	sched.busy = true
	assert.Equal(t, http.StatusConflict, post(`{}`).Code)
	assert.Len(t, sched.refs, 2)

	assert.Equal(t, http.StatusBadRequest, post(`{"at":"next sunday"}`).Code)
}

func TestOperator_LastRun(t *testing.T) {
	sched := &fakeTriggerer{}

	rec := httptest.NewRecorder()
	NewOperator(context.Background(), sched, fakeLastRun{}).LastRun(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LastRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Run)
	assert.Equal(t, "idle", resp.State)

	rec = httptest.NewRecorder()
	NewOperator(context.Background(), sched, fakeLastRun{run: &models.RunSummary{RunID: "r1", Created: 3}}).
		LastRun(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Run)
	assert.Equal(t, 3, resp.Run.Created)
}
