package usecase

import "time"

// inactivityTimer fires once after a quiet period. Every Reset starts a new
// generation; fire receives the generation it was armed with so callers can
// ignore a timer that raced with a newer Reset or Stop.
type inactivityTimer struct {
	after time.Duration
	fire  func(generation uint64)

	timer      *time.Timer
	generation uint64
}

func newInactivityTimer(after time.Duration, fire func(generation uint64)) *inactivityTimer {
	return &inactivityTimer{after: after, fire: fire}
}

func (t *inactivityTimer) Reset() {
	t.Stop()
	if t.after <= 0 {
		return
	}
	generation := t.generation
	t.timer = time.AfterFunc(t.after, func() { t.fire(generation) })
}

func (t *inactivityTimer) Stop() {
	t.generation++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *inactivityTimer) Current(generation uint64) bool {
	return t.timer != nil && generation == t.generation
}

func (t *inactivityTimer) Armed() bool {
	return t.timer != nil
}
