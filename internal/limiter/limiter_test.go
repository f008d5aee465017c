package limiter

import (
	"testing"
	"time"
)

func newTestMemory() (*Memory, *time.Time) {
	m := NewMemory(60*time.Second, 10*time.Minute, 3)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestAllow_FreshPhone(t *testing.T) {
	t.Parallel()
	m, _ := newTestMemory()
	ok, wait := m.Allow("+100")
	if !ok || wait != 0 {
		t.Fatalf("fresh phone must be allowed, got ok=%v wait=%v", ok, wait)
	}
}

func TestAllow_CooldownBetweenSends(t *testing.T) {
	t.Parallel()
	m, now := newTestMemory()
	m.Sent("+100")

	ok, wait := m.Allow("+100")
	if ok {
		t.Fatalf("send inside cooldown must be blocked")
	}
	if wait != 60*time.Second {
		t.Fatalf("retry-after want 60s, got %v", wait)
	}

	*now = now.Add(61 * time.Second)
	if ok, _ := m.Allow("+100"); !ok {
		t.Fatalf("send after cooldown must be allowed")
	}

	// other phones are unaffected
	if ok, _ := m.Allow("+200"); !ok {
		t.Fatalf("other phone must be allowed")
	}
}

func TestAllow_WindowCap(t *testing.T) {
	t.Parallel()
	m, now := newTestMemory()
	for i := 0; i < 3; i++ {
		if ok, _ := m.Allow("+100"); !ok {
			t.Fatalf("send %d must be allowed", i)
		}
		m.Sent("+100")
		*now = now.Add(2 * time.Minute)
	}

	ok, wait := m.Allow("+100")
	if ok {
		t.Fatalf("4th send inside window must be blocked")
	}
	if wait <= 0 {
		t.Fatalf("blocked send must report retry-after, got %v", wait)
	}

	// window rollover clears the cap
	*now = now.Add(10 * time.Minute)
	if ok, _ := m.Allow("+100"); !ok {
		t.Fatalf("send after window rollover must be allowed")
	}
}

func TestReset(t *testing.T) {
	t.Parallel()
	m, _ := newTestMemory()
	m.Sent("+100")
	m.Reset("+100")
	if ok, _ := m.Allow("+100"); !ok {
		t.Fatalf("reset phone must be allowed immediately")
	}
}
