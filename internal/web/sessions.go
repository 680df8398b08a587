package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionCookie names the cookie carrying the view session id.
const SessionCookie = "tabstash_session"

// DefaultIdleTimeout is how long an untouched view session survives.
const DefaultIdleTimeout = 30 * time.Minute

// ViewModel is the UI state of one browser display session: which sections
// are collapsed and the last action error. It never touches the snapshot.
type ViewModel struct {
	ID string

	mu        sync.Mutex
	collapsed map[string]bool
	errMsg    string
	lastSeen  time.Time
}

// Toggle flips the collapsed flag of a section and returns the new value.
func (vm *ViewModel) Toggle(section string) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.collapsed[section] = !vm.collapsed[section]
	return vm.collapsed[section]
}

// Collapsed returns a copy of the collapsed flags.
func (vm *ViewModel) Collapsed() map[string]bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make(map[string]bool, len(vm.collapsed))
	for k, v := range vm.collapsed {
		if v {
			out[k] = true
		}
	}
	return out
}

// SetError records a message for the next page render.
func (vm *ViewModel) SetError(msg string) {
	vm.mu.Lock()
	vm.errMsg = msg
	vm.mu.Unlock()
}

// TakeError returns the pending message and clears it.
func (vm *ViewModel) TakeError() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	msg := vm.errMsg
	vm.errMsg = ""
	return msg
}

// Sessions owns every live ViewModel. There is no UI state outside it.
type Sessions struct {
	idle time.Duration
	now  func() time.Time

	mu   sync.Mutex
	byID map[string]*ViewModel
}

// NewSessions creates a session registry. idle <= 0 uses DefaultIdleTimeout.
func NewSessions(idle time.Duration) *Sessions {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Sessions{
		idle: idle,
		now:  time.Now,
		byID: make(map[string]*ViewModel),
	}
}

// Get returns the session named by the request cookie, creating a new one
// (and setting the cookie) when it is missing or expired.
func (s *Sessions) Get(w http.ResponseWriter, r *http.Request) *ViewModel {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)

	if c, err := r.Cookie(SessionCookie); err == nil {
		if vm, ok := s.byID[c.Value]; ok {
			vm.lastSeen = now
			return vm
		}
	}

	vm := &ViewModel{
		ID:        uuid.NewString(),
		collapsed: make(map[string]bool),
		lastSeen:  now,
	}
	s.byID[vm.ID] = vm
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    vm.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return vm
}

// Close discards the session and expires its cookie.
func (s *Sessions) Close(w http.ResponseWriter, id string) {
	s.mu.Lock()
	delete(s.byID, id)
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
	return len(s.byID)
}

func (s *Sessions) sweepLocked(now time.Time) {
	for id, vm := range s.byID {
		if now.Sub(vm.lastSeen) > s.idle {
			delete(s.byID, id)
		}
	}
}
