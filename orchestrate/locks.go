package orchestrate

import "sync"

// runLocks guards the one-run-per-session contract within this process.
type runLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newRunLocks() *runLocks {
	return &runLocks{held: make(map[string]struct{})}
}

// tryAcquire takes the per-session lock without blocking.
func (l *runLocks) tryAcquire(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[sessionID]; taken {
		return false
	}
	l.held[sessionID] = struct{}{}
	return true
}

func (l *runLocks) release(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, sessionID)
}
