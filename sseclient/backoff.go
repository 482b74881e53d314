package sseclient

import "time"

// backoff computes exponential reconnect delays: initial doubled per
// attempt, capped at max. Attempt counting lives in the Client; this is
// just the policy.
type backoff struct {
	initial time.Duration
	max     time.Duration
}

func (b backoff) delay(attempt int) time.Duration {
	if b.initial <= 0 {
		b.initial = time.Second
	}
	if b.max <= 0 {
		b.max = 30 * time.Second
	}
	d := b.initial
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= b.max {
			return b.max
		}
	}
	if d > b.max {
		d = b.max
	}
	return d
}
