// Package clock supplies the current time behind an interface so temporal
// rules can be tested deterministically.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time { return time.Now() }
