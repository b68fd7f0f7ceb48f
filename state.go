package ginsync

import "fmt"

// State identifies a stage in a fixture pipeline's lifecycle.
//
// Pipelines move strictly forward:
//
//	Idle → Resolving → KeyBuilt → CacheChecked → Skipped  ────────────→ Done
//	                                           ↘ Fetching → Stored ────→ Done
//	                                                      ↘ StoreFailed → Done
//
// Any state where work happens can instead move to Fatal when that work
// fails or the context is cancelled. Done and Fatal are terminal.
type State int

const (
	// StateIdle is the initial state; nothing has run yet.
	StateIdle State = iota
	// StateResolving means the remote's head revision is being determined.
	StateResolving
	// StateKeyBuilt means the cache key has been derived from the revision.
	StateKeyBuilt
	// StateCacheChecked means the cache lookup completed.
	StateCacheChecked
	// StateSkipped means an exact cache hit made fetching unnecessary.
	StateSkipped
	// StateFetching means the dataset is being retrieved from the remote.
	StateFetching
	// StateStored means the fetched tree was saved to the cache.
	StateStored
	// StateStoreFailed means the fetch succeeded but the cache save did not.
	StateStoreFailed
	// StateDone is the successful terminal state.
	StateDone
	// StateFatal is the failed terminal state.
	StateFatal
)

var stateNames = map[State]string{
	StateIdle:         "idle",
	StateResolving:    "resolving",
	StateKeyBuilt:     "key-built",
	StateCacheChecked: "cache-checked",
	StateSkipped:      "skipped",
	StateFetching:     "fetching",
	StateStored:       "stored",
	StateStoreFailed:  "store-failed",
	StateDone:         "done",
	StateFatal:        "fatal",
}

// String returns a human-readable name for the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transitions can occur from s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFatal
}

// stateTransitions lists the allowed next states for each state.
var stateTransitions = map[State][]State{
	StateIdle:         {StateResolving},
	StateResolving:    {StateKeyBuilt, StateFatal},
	StateKeyBuilt:     {StateCacheChecked, StateFatal},
	StateCacheChecked: {StateSkipped, StateFetching, StateFatal},
	StateSkipped:      {StateDone},
	StateFetching:     {StateStored, StateStoreFailed, StateFatal},
	StateStored:       {StateDone},
	StateStoreFailed:  {StateDone},
	StateDone:         nil,
	StateFatal:        nil,
}

// validTransition reports whether a pipeline may move from one state to
// another.
func validTransition(from, to State) bool {
	for _, next := range stateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
