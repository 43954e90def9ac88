package browser

import (
	"sync"

	"github.com/redpen-ai/redpen/pkg/types"
)

// State is the browser automation lifecycle position. Transitions only move
// forward (disconnected -> connected -> authenticated -> submitted) except
// for close, which is valid from any state and resets to disconnected.
type State string

const (
	StateDisconnected  State = "disconnected"
	StateConnected     State = "connected"
	StateAuthenticated State = "authenticated"
	StateSubmitted     State = "submitted"
)

// Action is one of the operations the browser tool exposes.
type Action string

const (
	ActionConnect Action = "connect"
	ActionLogin   Action = "login"
	ActionPublish Action = "publish"
	ActionConfirm Action = "confirm"
	ActionClose   Action = "close"
)

// Machine guards action ordering. The guard rejects out-of-order actions
// before any driver call happens, so a refused publish can never reach the
// platform.
type Machine struct {
	mu    sync.Mutex
	state State
}

// NewMachine starts in the disconnected state.
func NewMachine() *Machine {
	return &Machine{state: StateDisconnected}
}

// State returns the current lifecycle position.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Guard reports whether the action is valid in the current state. It does
// not change state; call Apply after the action succeeds.
func (m *Machine) Guard(a Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch a {
	case ActionConnect, ActionClose:
		return nil
	case ActionLogin:
		if m.state == StateDisconnected {
			return types.NewToolError(types.ErrKindFatalAutomation, "not connected: run connect first")
		}
		return nil
	case ActionPublish:
		switch m.state {
		case StateSubmitted:
			return types.NewToolError(types.ErrKindAlreadySubmitted, "note already submitted in this session")
		case StateAuthenticated:
			return nil
		default:
			return types.NewToolError(types.ErrKindFatalAutomation, "not logged in: run connect and login first")
		}
	case ActionConfirm:
		if m.state != StateSubmitted {
			return types.NewToolError(types.ErrKindFatalAutomation, "nothing submitted yet: publish first")
		}
		return nil
	default:
		return types.NewToolError(types.ErrKindNotFound, "unknown browser action %q", a)
	}
}

// Apply records the state reached by a successfully completed action.
// Confirm is observational and leaves the state untouched.
func (m *Machine) Apply(a Action) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch a {
	case ActionConnect:
		if m.state == StateDisconnected {
			m.state = StateConnected
		}
	case ActionLogin:
		if m.state == StateConnected {
			m.state = StateAuthenticated
		}
	case ActionPublish:
		m.state = StateSubmitted
	case ActionClose:
		m.state = StateDisconnected
	}
}
