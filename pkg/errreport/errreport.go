// Package errreport forwards unexpected failures to Sentry.
package errreport

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// TagComponent names the part of the system that failed.
const TagComponent = "component"

// Config holds Sentry settings. An empty DSN disables reporting.
type Config struct {
	DSN          string        `mapstructure:"dsn"`
	Environment  string        `mapstructure:"environment"`
	Release      string        `mapstructure:"release"`
	SampleRate   float64       `mapstructure:"sample_rate"`
	FlushTimeout time.Duration `mapstructure:"flush_timeout"`

	// Transport overrides the HTTP transport, mainly for tests.
	Transport sentry.Transport `mapstructure:"-"`
}

// Enabled reports whether a DSN is configured.
func (c Config) Enabled() bool {
	return c.DSN != ""
}

// Init configures the global Sentry client and returns a func that flushes
// buffered events; call it before the process exits.
func Init(cfg Config) (func(), error) {
	if !cfg.Enabled() {
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       cfg.SampleRate,
		AttachStacktrace: true,
		Transport:        cfg.Transport,
	})
	if err != nil {
		return nil, err
	}

	timeout := cfg.FlushTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func() { sentry.Flush(timeout) }, nil
}

// GinMiddleware reports panics and gives each request its own hub. Install
// it after gin.Recovery so the panic still becomes a 500.
func GinMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{Repanic: true})
}

// Capture reports err tagged with component and any extra tags. It uses the
// request hub on ctx when there is one.
func Capture(ctx context.Context, err error, component string, tags map[string]string) {
	if err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag(TagComponent, component)
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}
