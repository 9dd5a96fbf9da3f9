// Package clock abstracts wall time so expiry checks stay testable.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewSystemClock returns the production clock. Now always reports UTC.
func NewSystemClock() Clock { return systemClock{} }
