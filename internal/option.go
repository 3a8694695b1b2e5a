package internal

import (
	"time"

	"github.com/starford/yuhex/internal/syncer"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	source syncer.Source
	now    func() time.Time
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithSource replaces the Yuque API client, e.g. with a fixture source.
func WithSource(src syncer.Source) Option {
	return func(a *application) {
		a.source = src
	}
}

// WithClock overrides the clock used for file names, the export file and
// the last-run marker.
func WithClock(now func() time.Time) Option {
	return func(a *application) {
		a.now = now
	}
}
