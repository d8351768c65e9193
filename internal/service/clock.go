package service

import "time"

// Clock supplies "now" in the host's configured timezone. Resolution must
// never consult the process-local timezone; tests inject a fixed clock.
type Clock interface {
	Now() time.Time
}

type locationClock struct {
	loc *time.Location
}

// NewClock returns a wall clock pinned to the given location. A nil location
// falls back to UTC.
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &locationClock{loc: loc}
}

func (c *locationClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// FixedClock always reports the same instant. Test helper.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
