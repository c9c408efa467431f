package monitoring

import (
	"testing"
	"time"
)

func TestLogLimiterAllowsFirstEvent(t *testing.T) {
	l := NewLogLimiter(time.Second)
	ok, suppressed := l.Allow(5 * time.Millisecond)
	if !ok || suppressed != 0 {
		t.Errorf("first event: Allow = (%v, %d), want (true, 0)", ok, suppressed)
	}
}

func TestLogLimiterSuppressesWithinInterval(t *testing.T) {
	l := NewLogLimiter(time.Second)
	l.Allow(0)

	for i := 0; i < 10; i++ {
		if ok, _ := l.Allow(time.Duration(i) * time.Millisecond); ok {
			t.Fatalf("event %d inside the interval was allowed", i)
		}
	}
	if l.Suppressed() != 10 {
		t.Errorf("Suppressed() = %d, want 10", l.Suppressed())
	}

	ok, suppressed := l.Allow(1100 * time.Millisecond)
	if !ok {
		t.Fatal("event after the interval was suppressed")
	}
	if suppressed != 10 {
		t.Errorf("reported suppressed = %d, want 10", suppressed)
	}
	if l.Suppressed() != 0 {
		t.Errorf("counter not reset, Suppressed() = %d", l.Suppressed())
	}
}

func TestLogLimiterZeroIntervalAllowsEverything(t *testing.T) {
	l := NewLogLimiter(0)
	for i := 0; i < 5; i++ {
		if ok, _ := l.Allow(0); !ok {
			t.Fatal("zero-interval limiter suppressed an event")
		}
	}
}
