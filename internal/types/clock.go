package types

import "time"

// Clock is the time source consumed by the core. Tests substitute a manual one.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
