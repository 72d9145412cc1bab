package retry

import "time"

const (
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 10 * time.Second
	DefaultMultiplier     = 2.0
)

// Policy describes how a dropped connection is re-dialed.
// The zero value never retries.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// Enabled reports whether the policy allows any attempt
func (p Policy) Enabled() bool {
	return p.MaxAttempts > 0
}

// Allows reports whether the given attempt (1-based) may run
func (p Policy) Allows(attempt int) bool {
	return attempt >= 1 && attempt <= p.MaxAttempts
}

// Backoff returns the wait before the given attempt (1-based)
func (p Policy) Backoff(attempt int) time.Duration {
	initial := p.InitialBackoff
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	maxBackoff := p.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = DefaultMaxBackoff
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = DefaultMultiplier
	}

	delay := float64(initial)
	for i := 1; i < attempt; i++ {
		delay *= multiplier
		if delay >= float64(maxBackoff) {
			return maxBackoff
		}
	}
	if delay > float64(maxBackoff) {
		return maxBackoff
	}
	return time.Duration(delay)
}
