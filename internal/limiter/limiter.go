// Package limiter guards OTP resends on the client: a cooldown between sends
// and an attempt cap per window, so the UI can show retry-after instead of
// hammering the backend.
package limiter

import (
	"sync"
	"time"
)

// Limiter controls OTP send attempts and temporary lockouts per phone number.
type Limiter interface {
	// Allow reports whether a send is currently allowed and optional retry-after.
	Allow(phone string) (bool, time.Duration)
	// Sent records a successful send.
	Sent(phone string)
	// Reset clears counters for the phone (after successful verification).
	Reset(phone string)
}

// Memory is the in-process Limiter.
type Memory struct {
	mu       sync.Mutex
	cooldown time.Duration
	window   time.Duration
	maxSends int
	state    map[string]*phoneState

	now func() time.Time
}

type phoneState struct {
	lastSend    time.Time
	windowStart time.Time
	sends       int
}

// NewMemory constructs a Memory limiter. Non-positive arguments select the
// defaults: 60s cooldown, 5 sends per 10 minutes.
func NewMemory(cooldown, window time.Duration, maxSends int) *Memory {
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	if window <= 0 {
		window = 10 * time.Minute
	}
	if maxSends <= 0 {
		maxSends = 5
	}
	return &Memory{
		cooldown: cooldown,
		window:   window,
		maxSends: maxSends,
		state:    map[string]*phoneState{},
		now:      time.Now,
	}
}

var _ Limiter = (*Memory)(nil)

func (m *Memory) Allow(phone string) (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.state[phone]
	if !ok {
		return true, 0
	}
	now := m.now()
	if now.Sub(st.windowStart) >= m.window {
		st.sends = 0
		st.windowStart = now
	}
	if wait := m.cooldown - now.Sub(st.lastSend); wait > 0 {
		return false, wait
	}
	if st.sends >= m.maxSends {
		return false, m.window - now.Sub(st.windowStart)
	}
	return true, 0
}

func (m *Memory) Sent(phone string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	st, ok := m.state[phone]
	if !ok || now.Sub(st.windowStart) >= m.window {
		st = &phoneState{windowStart: now}
		m.state[phone] = st
	}
	st.lastSend = now
	st.sends++
}

func (m *Memory) Reset(phone string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, phone)
}
