package verifyreset

import "time"

// Clock returns the current time. Tests swap it to pin expiry math.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

// IsExpired reports whether an expiry timestamp is missing or in the past.
func IsExpired(expires *time.Time, now time.Time) bool {
	if expires == nil {
		return true
	}
	return !expires.After(now)
}

// ParseDelay reads a duration expression like "2h" or "120h", falling back
// to def when expr is empty.
func ParseDelay(expr string, def time.Duration) (time.Duration, error) {
	if expr == "" {
		return def, nil
	}
	return time.ParseDuration(expr)
}
