package workflow

import (
	"sync"

	"github.com/google/uuid"
)

// IgnoreList is the set of completed sources the operator asked to skip for
// the rest of the session. The command layer clears it on a manual start
// while a tick may be adding to it, hence the lock.
type IgnoreList struct {
	mu  sync.Mutex
	set map[string]bool
}

// NewIgnoreList creates an empty ignore list.
func NewIgnoreList() *IgnoreList {
	return &IgnoreList{set: map[string]bool{}}
}

// Add marks a source as ignored.
func (l *IgnoreList) Add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.set[name] = true
}

// Has reports whether a source is ignored.
func (l *IgnoreList) Has(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.set[name]
}

// Clear empties the list.
func (l *IgnoreList) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.set = map[string]bool{}
}

// Session is the explicit per-tick context handed to every component call:
// no component reads ambient process state.
type Session struct {
	// ID tags log lines belonging to one tick.
	ID string
	// ProcessNew permits starting or resuming source videos this tick.
	ProcessNew bool
	// Ignore is the session-wide completed-video ignore list.
	Ignore *IgnoreList
	// Stop clears the process-new flag for future ticks. Advisory: it never
	// interrupts in-flight work.
	Stop func()
}

// NewSession creates a session context for one tick.
func NewSession(processNew bool, ignore *IgnoreList, stop func()) *Session {
	return &Session{
		ID:         uuid.NewString()[:8],
		ProcessNew: processNew,
		Ignore:     ignore,
		Stop:       stop,
	}
}
