package report_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargefinder/chargefinder/internal/report"
)

// captureEvents initializes Sentry with a hook that records and drops every
// event, so nothing leaves the process.
func captureEvents(t *testing.T) func() []*sentry.Event {
	t.Helper()

	var mu sync.Mutex
	var events []*sentry.Event

	enabled, err := report.Setup(report.Config{
		DSN:         "https://public@sentry.example.com/1",
		Environment: "test",
		Release:     "v0.0.0-test",
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, event)
			return nil
		},
	})
	require.NoError(t, err)
	require.True(t, enabled)

	return func() []*sentry.Event {
		report.Flush(time.Second)
		mu.Lock()
		defer mu.Unlock()
		out := make([]*sentry.Event, len(events))
		copy(out, events)
		return out
	}
}

func TestSetup_EmptyDSNDisabled(t *testing.T) {
	enabled, err := report.Setup(report.Config{})
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestSetup_InvalidDSN(t *testing.T) {
	_, err := report.Setup(report.Config{DSN: "not a dsn"})
	assert.Error(t, err)
}

func TestErrorWithOptions(t *testing.T) {
	events := captureEvents(t)

	report.ErrorWithOptions(errors.New("waypoint query failed"), report.Options{
		Tags:         map[string]string{"component": "trip"},
		ExtraContext: map[string]interface{}{"waypoint_index": 3},
		Level:        sentry.LevelWarning,
	})

	got := events()
	require.Len(t, got, 1)
	assert.Equal(t, sentry.LevelWarning, got[0].Level)
	assert.Equal(t, "trip", got[0].Tags["component"])
	assert.Equal(t, "test", got[0].Tags["env"])
	assert.Equal(t, "v0.0.0-test", got[0].Release)
}

func TestError_DefaultsToErrorLevel(t *testing.T) {
	events := captureEvents(t)

	report.Error(errors.New("boom"))
	report.Error(nil)

	got := events()
	require.Len(t, got, 1)
	assert.Equal(t, sentry.LevelError, got[0].Level)
}
