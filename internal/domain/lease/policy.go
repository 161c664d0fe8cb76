// Package lease normalizes tenant lease durations before they reach a store.
package lease

import (
	"errors"
	"time"
)

// ErrInvalidDefault indicates the configured default duration is not positive.
var ErrInvalidDefault = errors.New("default lease duration must be positive")

const (
	// MinDuration is the shortest lease a store will be asked for.
	MinDuration = time.Second
	// MaxDuration caps leases so a crashed holder cannot block a tenant for long.
	MaxDuration = time.Hour
)

// Source identifies how a duration was resolved.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceDefault  Source = "default"
	SourceClamped  Source = "clamped"
)

// Decision is the outcome of resolving a requested duration.
type Decision struct {
	Duration  time.Duration
	Source    Source
	Requested time.Duration
}

// UsedDefault reports whether the default was applied.
func (d Decision) UsedDefault() bool { return d.Source == SourceDefault }

// Clamped reports whether the request was clamped into [MinDuration, MaxDuration].
func (d Decision) Clamped() bool { return d.Source == SourceClamped }

// Policy resolves lease durations against a default.
type Policy struct {
	def time.Duration
}

// NewPolicy returns a Policy whose default is clamped into range.
func NewPolicy(def time.Duration) (*Policy, error) {
	if def <= 0 {
		return nil, ErrInvalidDefault
	}
	d, _ := clamp(def)
	return &Policy{def: d}, nil
}

// Default returns the default duration.
func (p *Policy) Default() time.Duration {
	if p == nil {
		return 0
	}
	return p.def
}

// Resolve maps a requested duration to the one handed to the store.
// Non-positive requests take the default.
func (p *Policy) Resolve(request time.Duration) Decision {
	d := Decision{Requested: request}
	if request <= 0 {
		d.Duration = p.Default()
		d.Source = SourceDefault
		return d
	}
	var clamped bool
	d.Duration, clamped = clamp(request)
	if clamped {
		d.Source = SourceClamped
	} else {
		d.Source = SourceExplicit
	}
	return d
}

func clamp(d time.Duration) (time.Duration, bool) {
	switch {
	case d < MinDuration:
		return MinDuration, true
	case d > MaxDuration:
		return MaxDuration, true
	default:
		return d, false
	}
}
