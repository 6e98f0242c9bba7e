package user

import "sync"

// Session tracks the signed-in user for the process and fans sign-in
// and sign-out events out to subscribers. The tune cleanup coordinator
// consumes Current to decide whose records to reconcile.
type Session struct {
	mu   sync.RWMutex
	uid  string
	subs []func(uid string, signedIn bool)
}

func NewSession() *Session {
	return &Session{}
}

// Current returns the signed-in user id, if any.
func (s *Session) Current() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uid, s.uid != ""
}

// SignIn records uid as the current user and notifies subscribers.
func (s *Session) SignIn(uid string) {
	s.notify(uid)
}

// SignOut clears the current user and notifies subscribers.
func (s *Session) SignOut() {
	s.notify("")
}

// OnChange registers fn to run on every sign-in and sign-out.
// Callbacks run synchronously on the goroutine that changed the
// session, in registration order.
func (s *Session) OnChange(fn func(uid string, signedIn bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Session) notify(uid string) {
	s.mu.Lock()
	if s.uid == uid {
		s.mu.Unlock()
		return
	}
	s.uid = uid
	subs := make([]func(string, bool), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(uid, uid != "")
	}
}
