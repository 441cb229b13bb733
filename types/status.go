package types

// SessionStatus is the lifecycle state of a session.
// Transitions are ACTIVE→COMPLETED or ACTIVE→ERROR; COMPLETED and ERROR
// are terminal.
type SessionStatus string

const (
	SessionActive    SessionStatus = "ACTIVE"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionError     SessionStatus = "ERROR"
)

// CanTransition reports whether a status change is legal.
func (s SessionStatus) CanTransition(to SessionStatus) bool {
	if s == to {
		return false
	}
	return s == SessionActive && (to == SessionCompleted || to == SessionError)
}

// Terminal reports whether the status accepts no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionError
}

// RunState is the terminal state of one orchestration run.
type RunState string

const (
	// RunConcluded means an agent emitted the conclusion marker.
	RunConcluded RunState = "CONCLUDED"
	// RunLimitReached means the session turn budget was exhausted.
	RunLimitReached RunState = "LIMIT_REACHED"
	// RunRoundCapReached means the safety cap on rounds was hit.
	RunRoundCapReached RunState = "ROUND_CAP_REACHED"
	// RunFailed means a collaborator returned an unrecoverable error.
	RunFailed RunState = "FAILED"
	// RunCancelled means the caller cancelled at a turn boundary.
	RunCancelled RunState = "CANCELLED"
)
