package sessions

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type MutationPhase string

const (
	MutationIdle      MutationPhase = "idle"
	MutationPending   MutationPhase = "pending"
	MutationSucceeded MutationPhase = "succeeded"
	MutationFailed    MutationPhase = "failed"
)

type MutationState struct {
	MatchID   string        `json:"matchId"`
	Phase     MutationPhase `json:"phase"`
	Error     string        `json:"error,omitempty"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// MutationTracker holds the lifecycle of the latest result change per match.
// At most one change per match may be pending; other matches are independent.
type MutationTracker struct {
	clock  clockwork.Clock
	mu     sync.Mutex
	states map[string]MutationState
}

func NewMutationTracker(clock clockwork.Clock) *MutationTracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MutationTracker{
		clock:  clock,
		states: make(map[string]MutationState),
	}
}

// Begin moves the match to pending and returns the state it replaced. It
// fails with ErrMutationInFlight if a change for the match has not finished.
func (t *MutationTracker) Begin(matchID string) (MutationState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	previous, ok := t.states[matchID]
	if !ok {
		previous = MutationState{MatchID: matchID, Phase: MutationIdle}
	}
	if previous.Phase == MutationPending {
		return previous, ErrMutationInFlight
	}
	t.states[matchID] = MutationState{
		MatchID:   matchID,
		Phase:     MutationPending,
		UpdatedAt: t.clock.Now(),
	}
	return previous, nil
}

// restore puts back the state replaced by Begin when the change was
// rejected before any write was attempted.
func (t *MutationTracker) restore(previous MutationState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if previous.Phase == MutationIdle {
		delete(t.states, previous.MatchID)
		return
	}
	t.states[previous.MatchID] = previous
}

func (t *MutationTracker) Succeed(matchID string) {
	t.finish(matchID, MutationSucceeded, "")
}

func (t *MutationTracker) Fail(matchID, message string) {
	t.finish(matchID, MutationFailed, message)
}

func (t *MutationTracker) finish(matchID string, phase MutationPhase, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.states[matchID] = MutationState{
		MatchID:   matchID,
		Phase:     phase,
		Error:     message,
		UpdatedAt: t.clock.Now(),
	}
}

// State returns the latest state, or idle for a match never changed.
func (t *MutationTracker) State(matchID string) MutationState {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[matchID]
	if !ok {
		return MutationState{MatchID: matchID, Phase: MutationIdle}
	}
	return state
}
