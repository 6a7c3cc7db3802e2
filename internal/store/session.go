package store

import (
	"sync"

	"littlex/internal/model"
)

// AuthStatus is the session state machine's current state.
type AuthStatus string

const (
	StatusChecking      AuthStatus = "checking"
	StatusAnonymous     AuthStatus = "anonymous"
	StatusAuthenticated AuthStatus = "authenticated"
)

// Intent is a one-shot navigation side effect. Consumers read it exactly
// once; it replaces matching on success-message text.
type Intent string

const (
	IntentNone  Intent = ""
	IntentHome  Intent = "home"
	IntentLogin Intent = "login"
)

// SessionState holds the authenticated user and auth flags.
// InitialCheckComplete is a one-way latch flipped after the first session
// restoration attempt, whatever its outcome.
type SessionState struct {
	User   *model.User
	Status AuthStatus

	IsLoading            bool
	Err                  string
	Success              bool
	SuccessMessage       string
	InitialCheckComplete bool
}

// SessionStore holds the session state machine. A process starts in
// "checking" until the one-time restoration attempt completes.
type SessionStore struct {
	mu     sync.RWMutex
	state  SessionState
	intent Intent
}

func NewSessionStore() *SessionStore {
	return &SessionStore{state: SessionState{Status: StatusChecking}}
}

// Snapshot returns a copy of the current session state.
func (s *SessionStore) Snapshot() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state
	if s.state.User != nil {
		u := *s.state.User
		out.User = &u
	}
	return out
}

// CompleteRestore resolves the startup restoration attempt. user is nil when
// no persisted session was found. The latch is set exactly once; later calls
// are no-ops.
func (s *SessionStore) CompleteRestore(user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.InitialCheckComplete {
		return
	}
	s.state.InitialCheckComplete = true
	if user != nil {
		u := *user
		s.state.User = &u
		s.state.Status = StatusAuthenticated
		return
	}
	s.state.Status = StatusAnonymous
}

// Apply is the session reducer for login/register/logout events.
func (s *SessionStore) Apply(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Phase {
	case Pending:
		s.state.IsLoading = true
		s.state.Err = ""
		s.state.Success = false
		s.state.SuccessMessage = ""
	case Rejected:
		// failures leave the user untouched; the UI may retry
		s.state.IsLoading = false
		s.state.Err = ev.Err
		s.state.Success = false
	case Fulfilled:
		s.state.IsLoading = false
		s.state.Err = ""
		s.state.Success = true
		switch p := ev.Payload.(type) {
		case LoggedIn:
			u := model.User(p)
			s.state.User = &u
			s.state.Status = StatusAuthenticated
			s.state.SuccessMessage = "Login successful"
			s.intent = IntentHome
		case Registered:
			// registration does not authenticate the caller
			s.state.SuccessMessage = "Registration successful"
			s.intent = IntentLogin
		case LoggedOut:
			s.state.User = nil
			s.state.Status = StatusAnonymous
			s.state.SuccessMessage = "Logout successful"
			s.intent = IntentLogin
		}
	}
}

// ConsumeIntent returns the pending navigation intent and resets it, so a
// consumer never navigates twice on one success.
func (s *SessionStore) ConsumeIntent() Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := s.intent
	s.intent = IntentNone
	return in
}

// SuccessMessage returns the message of the last fulfilled event.
func (s *SessionStore) SuccessMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SuccessMessage
}
