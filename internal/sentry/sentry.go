// Package sentry reports crashes when SENTRY_DSN is configured. Every helper
// is a no-op otherwise.
package sentry

import (
	"os"
	"regexp"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"
)

const flushTimeout = 2 * time.Second

// homePathPattern matches /home/<user>, /Users/<user> and C:\Users\<user>.
var homePathPattern = regexp.MustCompile(`(?i)(/home/|/Users/|C:\\Users\\)([^/\\:]+)`)

// Init initializes the SDK. DO_NOT_TRACK=1 disables reporting even when a
// DSN is set. The returned cleanup flushes pending events.
func Init(version string) func() {
	if os.Getenv("DO_NOT_TRACK") == "1" {
		return func() {}
	}
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return func() {}
	}

	env := os.Getenv("SENTRY_ENVIRONMENT")
	if env == "" {
		env = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          "check-format@" + version,
		Environment:      env,
		ServerName:       runtime.GOOS + "-" + runtime.GOARCH,
		AttachStacktrace: true,
		SampleRate:       1.0,
		IgnoreErrors:     []string{"context canceled", "signal: interrupt", "broken pipe"},
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			scrubEvent(event)
			return event
		},
	})
	if err != nil {
		return func() {}
	}

	return func() {
		sentry.Flush(flushTimeout)
	}
}

// CaptureError reports an error.
func CaptureError(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}

// CaptureFilePanic reports a panic recovered while processing one file. The
// run continues; the path is attached as a tag.
func CaptureFilePanic(path string, recovered any) {
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("file", scrubPath(path))
	})
	hub.Recover(recovered)
}

// RecoverAndPanic recovers from a panic, reports it, then re-panics so the
// user still sees it. Defer it before the cleanup returned by Init.
func RecoverAndPanic() {
	if r := recover(); r != nil {
		sentry.CurrentHub().Recover(r)
		sentry.Flush(flushTimeout)
		panic(r)
	}
}

// SetTag sets a tag for filtering errors.
func SetTag(key, value string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag(key, scrubPath(value))
	})
}

// scrubPath replaces the user name in home directory paths.
func scrubPath(s string) string {
	return homePathPattern.ReplaceAllString(s, "${1}[user]")
}

func scrubEvent(event *sentry.Event) {
	event.Message = scrubPath(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = scrubPath(event.Exception[i].Value)
		if st := event.Exception[i].Stacktrace; st != nil {
			for j := range st.Frames {
				st.Frames[j].AbsPath = scrubPath(st.Frames[j].AbsPath)
			}
		}
	}
	for key, value := range event.Tags {
		event.Tags[key] = scrubPath(value)
	}
}
