package factory

import (
	"time"

	"github.com/lexiduel/lexiduel/internal/dependencies/mocks"
	"github.com/lexiduel/lexiduel/internal/services/match"
	"github.com/lexiduel/lexiduel/internal/services/matchmaking"
	"github.com/lexiduel/lexiduel/internal/services/practice"
	"github.com/lexiduel/lexiduel/internal/storage/memory"
	"github.com/lexiduel/lexiduel/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked
// dependencies, no background timers, and an in-memory store.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	matchCfg := match.DefaultConfig()
	matchCfg.TickInterval = 0
	practiceCfg := practice.DefaultConfig()
	practiceCfg.AutoRerollInterval = 0
	queueCfg := matchmaking.DefaultConfig()

	app := newWithDependencies(store, mockClock, mockRandom, testutil.NopLogger(), Config{
		MatchConfig:       &matchCfg,
		MatchmakingConfig: &queueCfg,
		PracticeConfig:    &practiceCfg,
	})

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// LoadTestWords loads a small English word list for testing
func (t *TestApp) LoadTestWords() {
	t.Dictionary.LoadWords("en", []string{
		"ant", "art", "air", "ran", "rat", "tan", "tar", "sat", "sit", "tin",
		"rain", "stain", "train", "saint", "satin", "star", "stir", "nest",
		"rent", "sent", "tent", "rate", "tear", "near", "earn", "neat",
		"tins", "rats", "arts", "ants", "rant", "rants", "trains", "strain",
	})
}