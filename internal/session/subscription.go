package session

import "sync"

// Subscription is a live registration for session events.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe releases the registration. Calls after the first do nothing.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// NewSubscription wraps a broker cancel func.
func NewSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}
