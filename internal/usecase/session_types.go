package usecase

import "wordcast/internal/domain"

type sessionState struct {
	status      domain.SessionStatus
	pending     bool
	stopping    bool
	finalized   bool
	utteranceID string

	// version increases on every mutation so the sink never sees an older snapshot
	// after a newer one.
	version uint64
}

func (s *sessionState) touch() {
	s.version++
}

func (s *sessionState) listening() bool {
	return s.status == domain.SessionStatusListening
}

// active reports whether the engine may still be capturing for this session.
func (s *sessionState) active() bool {
	return s.listening() || s.pending
}
