// Package services implements the session-token lifecycle: credential
// verification, token issuance, refresh rotation, account management and
// the optional expired token sweep.
package services

import (
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
)

type options struct {
	now func() time.Time
	log logging.Logger
}

// Option customises a service.
type Option func(*options)

// WithClock replaces time.Now. Share it with auth.WithClock so token claims
// and refresh records agree on the time.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.log = l }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now, log: logging.Nop{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
