package combo

import (
	"math"
	"sync"
	"time"

	"github.com/lexiduel/lexiduel/internal/model"
)

// Config holds the streak-multiplier parameters
type Config struct {
	// Window is the maximum gap between accepted submissions that
	// extends a streak
	Window time.Duration
	// Step is the multiplier increment per streak level
	Step float64
	// Cap is the maximum multiplier
	Cap float64
}

// DefaultConfig returns the standard combo settings
func DefaultConfig() Config {
	return Config{
		Window: 5 * time.Second,
		Step:   0.25,
		Cap:    3.0,
	}
}

// State is the per-player combo state within one match or practice
// session. In-memory only; a restart resets the streak, nothing more.
type State struct {
	LastAccepted time.Time
	Streak       int
}

// Result is the outcome of scoring one accepted submission
type Result struct {
	BaseScore  int
	TotalScore int
	BonusScore int
	Streak     int
}

// Engine applies the streak multiplier to base scores
type Engine struct {
	cfg Config
}

// NewEngine creates a combo engine
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Advance scores an accepted submission at time t and updates the state in
// place. A submission inside the window extends the streak; outside it the
// streak restarts at zero. LastAccepted always moves to t.
func (e *Engine) Advance(state *State, t time.Time, baseScore int) Result {
	if !state.LastAccepted.IsZero() && t.Sub(state.LastAccepted) <= e.cfg.Window {
		state.Streak++
	} else {
		state.Streak = 0
	}
	state.LastAccepted = t

	multiplier := math.Min(1+float64(state.Streak)*e.cfg.Step, e.cfg.Cap)
	total := int(math.Floor(float64(baseScore) * multiplier))

	return Result{
		BaseScore:  baseScore,
		TotalScore: total,
		BonusScore: total - baseScore,
		Streak:     state.Streak,
	}
}

// Reset zeroes the streak after a rejected submission. LastAccepted is
// left untouched, so a valid word after a typo can still chain off the
// previous accepted one.
func (e *Engine) Reset(state *State) {
	state.Streak = 0
}

// trackerKey identifies one player's state within one match
type trackerKey struct {
	matchID  model.MatchID
	playerID model.PlayerID
}

// Tracker holds combo states for all players across active matches
type Tracker struct {
	mu     sync.Mutex
	states map[trackerKey]*State
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{states: make(map[trackerKey]*State)}
}

// Get returns the state for a player in a match, creating it on first use
func (t *Tracker) Get(matchID model.MatchID, playerID model.PlayerID) *State {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := trackerKey{matchID: matchID, playerID: playerID}
	state, ok := t.states[key]
	if !ok {
		state = &State{}
		t.states[key] = state
	}
	return state
}

// DropMatch discards all combo state for a finished match
func (t *Tracker) DropMatch(matchID model.MatchID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.states {
		if key.matchID == matchID {
			delete(t.states, key)
		}
	}
}
