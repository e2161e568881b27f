package balloon

import "sync"

// State is the lifecycle position of a Balloon. A balloon moves strictly forward through
// Uninitialized, Acquiring, Holding, Releasing and Released.
type State uint32

const (
	StateUninitialized State = iota
	StateAcquiring
	StateHolding
	StateReleasing
	StateReleased
)

var stateMapping = map[State]string{
	StateUninitialized: "Uninitialized",
	StateAcquiring:     "Acquiring",
	StateHolding:       "Holding",
	StateReleasing:     "Releasing",
	StateReleased:      "Released",
}

func (s State) String() string {
	return stateMapping[s]
}

type optionalMutex struct {
	mutex    sync.Mutex
	useMutex bool
}

func (m *optionalMutex) Lock() {
	if m.useMutex {
		m.mutex.Lock()
	}
}

func (m *optionalMutex) Unlock() {
	if m.useMutex {
		m.mutex.Unlock()
	}
}
