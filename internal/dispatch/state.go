package dispatch

import "fmt"

// State is one step of a single dispatch.
//
//	Idle → Resolved → ArgsParsed → Executed → Committed
//
// Failed is reachable from every non-terminal state. Committed and
// Failed are terminal.
type State int

const (
	StateIdle State = iota
	StateResolved
	StateArgsParsed
	StateExecuted
	StateCommitted
	StateFailed
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateResolved:   "resolved",
	StateArgsParsed: "args-parsed",
	StateExecuted:   "executed",
	StateCommitted:  "committed",
	StateFailed:     "failed",
}

// String returns the lowercase state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateFailed
}

// next lists the legal successors of each state.
var next = map[State][]State{
	StateIdle:       {StateResolved, StateFailed},
	StateResolved:   {StateArgsParsed, StateFailed},
	StateArgsParsed: {StateExecuted, StateFailed},
	StateExecuted:   {StateCommitted, StateFailed},
}

// CanTransition reports whether from → to is legal.
func CanTransition(from, to State) bool {
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// machine tracks the current state and every state visited.
type machine struct {
	state State
	trace []State
}

func newMachine() *machine {
	return &machine{state: StateIdle, trace: []State{StateIdle}}
}

// advance moves to the given state.
// An illegal transition is a programming error and panics.
func (m *machine) advance(to State) {
	if !CanTransition(m.state, to) {
		panic(fmt.Sprintf("dispatch: illegal transition %s -> %s", m.state, to))
	}
	m.state = to
	m.trace = append(m.trace, to)
}
