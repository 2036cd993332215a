// Package report forwards unexpected errors to Sentry.
//
// Every function is safe to call when Sentry was never initialized; events
// are then dropped by the SDK's no-op client.
package report

import (
	"os"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds Sentry client settings.
type Config struct {
	// DSN is the project DSN. Empty disables reporting.
	DSN string

	// Environment tags every event (e.g. "production").
	Environment string

	// Release tags every event with the build version.
	Release string

	// SampleRate is the share of error events sent (default: 1.0).
	SampleRate float64

	// BeforeSend can inspect or drop events (optional).
	BeforeSend func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event
}

// Setup initializes the global Sentry client and tags the scope with runtime
// details. With an empty DSN it returns false and leaves Sentry disabled.
func Setup(cfg Config) (bool, error) {
	if cfg.DSN == "" {
		return false, nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 1.0
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		SampleRate:  sampleRate,
		BeforeSend:  cfg.BeforeSend,
	}); err != nil {
		return false, err
	}

	ConfigureScope(cfg.Environment, cfg.Release)
	return true, nil
}

// ConfigureScope sets global Sentry scope tags and context related to the runtime and host.
func ConfigureScope(env, version string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("env", env)
		scope.SetTag("app_version", version)
		scope.SetTag("go_version", runtime.Version())
		scope.SetTag("goarch", runtime.GOARCH)
		scope.SetContext("host_info", map[string]interface{}{
			"hostname": hostname(),
		})
	})
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

// Options provides optional data for a reported error.
type Options struct {
	ExtraContext map[string]interface{}
	Tags         map[string]string
	Level        sentry.Level
}

// Error reports err at error level.
func Error(err error) {
	ErrorWithOptions(err, Options{})
}

// ErrorWithOptions reports err with additional tags, context and level.
// The level defaults to sentry.LevelError.
func ErrorWithOptions(err error, opts Options) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		if opts.ExtraContext != nil {
			scope.SetContext("extra", opts.ExtraContext)
		}
		for k, v := range opts.Tags {
			scope.SetTag(k, v)
		}
		level := opts.Level
		if level == "" {
			level = sentry.LevelError
		}
		scope.SetLevel(level)
		sentry.CaptureException(err)
	})
}

// Flush waits up to timeout for buffered events to be delivered.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}
