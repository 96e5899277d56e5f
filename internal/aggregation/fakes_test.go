package aggregation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AnshRaj112/serenify-journal/internal/models"
)

type memPosts struct {
	mu    sync.Mutex
	posts []models.Post
	fail  map[int64]error
	calls atomic.Int32
}

func (m *memPosts) add(userID int64, content string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, models.Post{
		ID:        int64(len(m.posts) + 1),
		UserID:    userID,
		Content:   content,
		Emotions:  models.EmotionScores{Neutral: 1},
		CreatedAt: at,
	})
}

func (m *memPosts) ListPosts(_ context.Context, userID int64, since, until time.Time) ([]models.Post, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[userID]; err != nil {
		return nil, err
	}
	var out []models.Post
	for _, p := range m.posts {
		if p.UserID == userID && !p.CreatedAt.Before(since) && p.CreatedAt.Before(until) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type adviceKey struct {
	user int64
	week int64
}

type memAdvice struct {
	mu      sync.Mutex
	records map[adviceKey]models.AdviceRecord
	nextID  int64
	inserts atomic.Int32
}

func newMemAdvice() *memAdvice {
	return &memAdvice{records: map[adviceKey]models.AdviceRecord{}}
}

func (m *memAdvice) Find(_ context.Context, userID int64, weekOf time.Time) (*models.AdviceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[adviceKey{userID, weekOf.UnixNano()}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memAdvice) CreateIfAbsent(_ context.Context, rec models.AdviceRecord) (*models.AdviceRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := adviceKey{rec.UserID, rec.WeekOf.UnixNano()}
	if existing, ok := m.records[key]; ok {
		return &existing, false, nil
	}
	m.nextID++
	rec.ID = m.nextID
	m.records[key] = rec
	m.inserts.Add(1)
	return &rec, true, nil
}

func (m *memAdvice) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// echoGenerator returns the joined post contents, or no output for users in skip.
type echoGenerator struct {
	skip  map[int64]bool
	panic map[int64]bool
	calls atomic.Int32
	gate  chan struct{}
}

func (g *echoGenerator) Generate(_ context.Context, posts []models.Post) (string, bool) {
	g.calls.Add(1)
	if g.gate != nil {
		<-g.gate
	}
	uid := posts[0].UserID
	if g.panic[uid] {
		panic(fmt.Sprintf("generator blew up for %d", uid))
	}
	if g.skip[uid] {
		return "", false
	}
	return fmt.Sprintf("advice for %d from %d posts", uid, len(posts)), true
}

type pagedUsers struct {
	ids    []int64
	failAt int64
	pages  atomic.Int32
	onPage func(n int32)
}

var errDirectory = errors.New("directory unavailable")

func (d *pagedUsers) ListUserIDs(_ context.Context, afterID int64, limit int) ([]int64, error) {
	n := d.pages.Add(1)
	if d.onPage != nil {
		d.onPage(n)
	}
	if d.failAt > 0 && afterID >= d.failAt {
		return nil, errDirectory
	}
	var out []int64
	for _, id := range d.ids {
		if id > afterID {
			out = append(out, id)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type recordingReporter struct {
	mu    sync.Mutex
	users []int64
}

func (r *recordingReporter) ReportJobFailure(_ string, userID int64, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
}

type forgetCall struct {
	userID int64
	week   time.Time
}

type recordingCache struct {
	mu     sync.Mutex
	forgot []forgetCall
	err    error
}

func (c *recordingCache) ForgetLatestAdvice(_ context.Context, userID int64, week time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forgot = append(c.forgot, forgetCall{userID, week})
	return c.err
}
