// Package clock lets callers inject the current time. Handlers and derivation
// code read time through a Clock so tests can pin "today".
package clock

import (
	"time"
	_ "time/tzdata"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// RealClock returns the system time.
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed time.
func (c FixedClock) Now() time.Time {
	return c.T
}

// NewReal returns a Clock backed by the system time. Use it in lambda/* and cmd/* only.
func NewReal() Clock {
	return RealClock{}
}

// NewFixed returns a Clock that always returns t.
func NewFixed(t time.Time) Clock {
	return FixedClock{T: t}
}

// NowIn returns the current time of c in the named IANA zone, falling back to
// UTC when the zone is empty or unknown.
func NowIn(c Clock, zone string) time.Time {
	return c.Now().In(Location(zone))
}

// Location resolves an IANA zone name, defaulting to UTC.
func Location(zone string) *time.Location {
	if zone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.UTC
	}
	return loc
}
