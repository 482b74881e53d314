package sseclient

import (
	"testing"
	"time"
)

func TestBackoffDelaySequence(t *testing.T) {
	b := backoff{initial: time.Second, max: 15 * time.Second}

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		15 * time.Second,
		15 * time.Second,
		15 * time.Second,
	}
	for attempt, expect := range want {
		if got := b.delay(attempt); got != expect {
			t.Errorf("attempt %d: got %v want %v", attempt, got, expect)
		}
	}
}

func TestBackoffDefaults(t *testing.T) {
	var b backoff
	if got := b.delay(0); got != time.Second {
		t.Errorf("zero-value initial delay: got %v want 1s", got)
	}
	// far enough out to be capped by the default ceiling
	if got := b.delay(20); got != 30*time.Second {
		t.Errorf("zero-value capped delay: got %v want 30s", got)
	}
}

func TestBackoffInitialAboveMax(t *testing.T) {
	b := backoff{initial: time.Minute, max: 15 * time.Second}
	if got := b.delay(0); got != 15*time.Second {
		t.Errorf("initial above ceiling: got %v want 15s", got)
	}
}
