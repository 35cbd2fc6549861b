// Package clock provides an injectable time source.
//
// Code that stamps records with "now" takes a Clock instead of calling
// time.Now directly, so tests can freeze time without process-wide
// state.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System returns a Clock backed by time.Now.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Fixed returns a Clock that always reports t.
func Fixed(t time.Time) Clock {
	return fixedClock{t: t}
}

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time {
	return c.t
}

// Midnight returns the start of t's day in t's location.
func Midnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// Today returns the start of the current day according to c, in the
// local timezone.
func Today(c Clock) time.Time {
	return Midnight(c.Now().Local())
}
