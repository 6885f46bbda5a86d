// Package clock produces business-time timestamps.
//
// Every timestamp column is a naive "timestamp without time zone" holding the
// wall clock of the fixed UTC-3 business zone. In Go those values are carried
// as time.Time in the UTC location with the business wall clock, which is
// exactly how pgx reads them back.
package clock

import "time"

var businessZone = time.FixedZone("UTC-3", -3*60*60)

// Clock returns the current naive business time. Services take one so tests
// can pin "now".
type Clock func() time.Time

// Now is the production clock.
func Now() time.Time {
	return Naive(time.Now())
}

// Naive converts an instant to the naive business wall clock.
func Naive(t time.Time) time.Time {
	b := t.In(businessZone)
	return time.Date(b.Year(), b.Month(), b.Day(), b.Hour(), b.Minute(), b.Second(), b.Nanosecond(), time.UTC)
}

// NaivePtr is Naive for optional timestamps.
func NaivePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	n := Naive(*t)
	return &n
}

// Fixed returns a Clock pinned to t. Used by tests.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}
