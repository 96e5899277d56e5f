// Package observability reports failed advice jobs to Sentry.
package observability

import (
	"fmt"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry configures the global Sentry client. An empty dsn disables
// reporting and returns a no-op flush.
func InitSentry(dsn, environment, release string) (flush func(), err error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	}); err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// SentryReporter forwards job failures to a Sentry hub.
type SentryReporter struct {
	hub *sentry.Hub
}

// NewSentryReporter uses hub, or the current hub when nil.
func NewSentryReporter(hub *sentry.Hub) *SentryReporter {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &SentryReporter{hub: hub}
}

func (r *SentryReporter) ReportJobFailure(runID string, userID int64, err error) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", "advice_run")
		scope.SetTag("run_id", runID)
		scope.SetUser(sentry.User{ID: strconv.FormatInt(userID, 10)})
		r.hub.CaptureException(err)
	})
}
