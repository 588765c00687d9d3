package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lexiduel/lexiduel/internal/dependencies/mocks"
	"github.com/lexiduel/lexiduel/internal/model"
	"github.com/lexiduel/lexiduel/internal/services/combo"
	"github.com/lexiduel/lexiduel/internal/services/dictionary"
	"github.com/lexiduel/lexiduel/internal/storage/memory"
	"github.com/lexiduel/lexiduel/internal/testutil"
)

// fakeNotifier records every message sent per player
type fakeNotifier struct {
	mu       sync.Mutex
	messages map[model.PlayerID][]any
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{messages: make(map[model.PlayerID][]any)}
}

func (n *fakeNotifier) SendToPlayer(playerID model.PlayerID, msg any) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages[playerID] = append(n.messages[playerID], msg)
	return true
}

func (n *fakeNotifier) sent(playerID model.PlayerID) []any {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]any(nil), n.messages[playerID]...)
}

func (n *fakeNotifier) lastOfType(playerID model.PlayerID, match func(any) bool) any {
	msgs := n.sent(playerID)
	for i := len(msgs) - 1; i >= 0; i-- {
		if match(msgs[i]) {
			return msgs[i]
		}
	}
	return nil
}

type ControllerSuite struct {
	suite.Suite
	store      *memory.Storage
	dict       *dictionary.Service
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	notifier   *fakeNotifier
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.store = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.notifier = newFakeNotifier()
	s.dict = dictionary.New(dictionary.DefaultConfig(), s.random, testutil.NopLogger())
	s.ctx = context.Background()

	cfg := DefaultConfig()
	cfg.TickInterval = 0
	s.controller = NewController(
		s.store, s.dict, combo.NewEngine(combo.DefaultConfig()), combo.NewTracker(),
		s.clock, s.random, s.notifier, testutil.NopLogger(), cfg,
	)

	// With the zero-valued mock random, letter generation always falls
	// back to AEIRSNT.
	s.dict.LoadWords("en", []string{
		"ant", "art", "air", "ran", "rat", "tan", "tar", "sat", "sit",
		"tin", "rain", "stain", "train", "saint", "satin", "star", "stir",
		"nest", "rent", "sent", "rate", "tear", "near", "earn", "neat",
		"tins", "rats", "arts", "ants", "rant", "rants", "trains", "strain",
	})
}

func (s *ControllerSuite) TearDownTest() {
	s.controller.Shutdown()
}

func (s *ControllerSuite) startMatch() *model.Match {
	s.random.QueueString("MATCH0000001")
	m, err := s.controller.StartMatch(s.ctx, "player-1", "player-2")
	s.Require().NoError(err)
	return m
}

// StartMatch tests

func (s *ControllerSuite) TestStartMatchSucceeds() {
	m := s.startMatch()

	s.Equal(model.MatchID("MATCH0000001"), m.ID)
	s.Equal(model.PlayerID("player-1"), m.PlayerOne)
	s.Equal(model.PlayerID("player-2"), m.PlayerTwo)
	s.Equal("AEIRSNT", m.Letters)
	s.Equal(model.MatchStatusActive, m.Status)
	s.Equal(s.clock.Now().Add(180*time.Second), m.Deadline)
}

func (s *ControllerSuite) TestStartMatchIsPersisted() {
	m := s.startMatch()

	stored, err := s.store.GetMatch(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(m.ID, stored.ID)
	s.True(stored.IsActive())
}

func (s *ControllerSuite) TestStartMatchRejectsSelfMatch() {
	_, err := s.controller.StartMatch(s.ctx, "player-1", "player-1")
	s.ErrorIs(err, model.ErrSelfMatch)
}

func (s *ControllerSuite) TestStartMatchNotifiesBothPlayers() {
	m := s.startMatch()

	one := s.notifier.sent("player-1")
	s.Require().Len(one, 1)
	start, ok := one[0].(model.MatchStartMsg)
	s.Require().True(ok)
	s.Equal(m.ID, start.MatchID)
	s.Equal(model.PlayerID("player-2"), start.OpponentID)
	s.Equal("AEIRSNT", start.Letters)

	two := s.notifier.sent("player-2")
	s.Require().Len(two, 1)
	s.Equal(model.PlayerID("player-1"), two[0].(model.MatchStartMsg).OpponentID)
}

func (s *ControllerSuite) TestStartMatchCreatesPlayerRecords() {
	s.startMatch()

	record, err := s.store.GetPlayerRecord(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(1, record.DailyStreak)
	s.Equal(s.clock.Now(), record.LastLogin)
}

func (s *ControllerSuite) TestDailyStreakExtendsOnConsecutiveDays() {
	s.startMatch()
	s.controller.Shutdown()

	s.clock.Advance(24 * time.Hour)
	s.random.QueueString("MATCH0000002")
	_, err := s.controller.StartMatch(s.ctx, "player-1", "player-2")
	s.Require().NoError(err)

	record, err := s.store.GetPlayerRecord(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(2, record.DailyStreak)
}

func (s *ControllerSuite) TestDailyStreakResetsAfterMissedDay() {
	s.startMatch()
	s.controller.Shutdown()

	s.clock.Advance(72 * time.Hour)
	s.random.QueueString("MATCH0000002")
	_, err := s.controller.StartMatch(s.ctx, "player-1", "player-2")
	s.Require().NoError(err)

	record, err := s.store.GetPlayerRecord(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(1, record.DailyStreak)
}

func (s *ControllerSuite) TestDailyStreakUnchangedSameDay() {
	s.startMatch()
	s.controller.Shutdown()

	s.clock.Advance(time.Hour)
	s.random.QueueString("MATCH0000002")
	_, err := s.controller.StartMatch(s.ctx, "player-1", "player-2")
	s.Require().NoError(err)

	record, err := s.store.GetPlayerRecord(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(1, record.DailyStreak)
}

// SubmitWord tests

func (s *ControllerSuite) TestSubmitWordAccepted() {
	m := s.startMatch()

	result, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "rain")
	s.Require().NoError(err)

	s.Equal("rain", result.Word)
	s.Equal(4, result.BaseScore)
	s.Equal(4, result.TotalScore)
	s.Equal(0, result.Streak)
	s.Equal(model.PlayerID("player-2"), result.OpponentID)
	s.False(result.Exhausted)
}

func (s *ControllerSuite) TestSubmitWordChainsCombo() {
	m := s.startMatch()

	_, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "rain")
	s.Require().NoError(err)

	s.clock.Advance(3 * time.Second)
	result, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "stain")
	s.Require().NoError(err)

	s.Equal(1, result.Streak)
	s.Equal(6, result.TotalScore) // floor(5 * 1.25)
	s.Equal(1, result.BonusScore)
}

func (s *ControllerSuite) TestSubmitWordComboLapsesOutsideWindow() {
	m := s.startMatch()

	_, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "rain")
	s.Require().NoError(err)

	s.clock.Advance(10 * time.Second)
	result, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "stain")
	s.Require().NoError(err)

	s.Equal(0, result.Streak)
	s.Equal(5, result.TotalScore)
}

func (s *ControllerSuite) TestSubmitWordCombosAreIndependentPerPlayer() {
	m := s.startMatch()

	_, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "rain")
	s.Require().NoError(err)

	s.clock.Advance(time.Second)
	result, err := s.controller.SubmitWord(s.ctx, "player-2", m.ID, "train")
	s.Require().NoError(err)
	s.Equal(0, result.Streak)
}

func (s *ControllerSuite) TestSubmitWordIsPersisted() {
	m := s.startMatch()

	_, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "rain")
	s.Require().NoError(err)

	subs, err := s.store.GetSubmissionsForMatch(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Require().Len(subs, 1)
	s.Equal("rain", subs[0].Word)
	s.Equal(4, subs[0].TotalScore)
	s.Equal(model.PlayerID("player-1"), subs[0].PlayerID)
}

func (s *ControllerSuite) TestSubmitWordRejectsUnformable() {
	m := s.startMatch()

	// In the dictionary, but needs a letter the hand lacks twice
	_, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "rants")
	s.Require().NoError(err)

	_, err = s.controller.SubmitWord(s.ctx, "player-1", m.ID, "sent")
	s.Require().NoError(err)

	_, err = s.controller.SubmitWord(s.ctx, "player-1", m.ID, "tent")
	s.ErrorIs(err, model.ErrWordNotFormable)
}

func (s *ControllerSuite) TestSubmitWordRejectsUnknownWord() {
	m := s.startMatch()

	_, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "ser")
	s.ErrorIs(err, model.ErrWordNotInDictionary)
}

func (s *ControllerSuite) TestSubmitWordRejectsDuplicateFromAnyPlayer() {
	m := s.startMatch()

	_, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "rain")
	s.Require().NoError(err)

	_, err = s.controller.SubmitWord(s.ctx, "player-1", m.ID, "rain")
	s.ErrorIs(err, model.ErrWordAlreadyUsed)

	// Duplicates are shared across both players
	_, err = s.controller.SubmitWord(s.ctx, "player-2", m.ID, "RAIN")
	s.ErrorIs(err, model.ErrWordAlreadyUsed)
}

func (s *ControllerSuite) TestRejectionResetsStreakButNotWindow() {
	m := s.startMatch()

	_, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "rain")
	s.Require().NoError(err)
	s.clock.Advance(time.Second)
	_, err = s.controller.SubmitWord(s.ctx, "player-1", m.ID, "stain")
	s.Require().NoError(err)

	s.clock.Advance(time.Second)
	_, err = s.controller.SubmitWord(s.ctx, "player-1", m.ID, "ser")
	s.ErrorIs(err, model.ErrWordNotInDictionary)

	// Next accepted word chains off the last accepted one, not the
	// rejection, but the streak itself restarted.
	s.clock.Advance(time.Second)
	result, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "train")
	s.Require().NoError(err)
	s.Equal(1, result.Streak)
}

func (s *ControllerSuite) TestSubmitWordRejectsNonParticipant() {
	m := s.startMatch()

	_, err := s.controller.SubmitWord(s.ctx, "player-3", m.ID, "rain")
	s.ErrorIs(err, model.ErrNotInMatch)
}

func (s *ControllerSuite) TestSubmitWordUnknownMatch() {
	_, err := s.controller.SubmitWord(s.ctx, "player-1", "NOPE", "rain")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *ControllerSuite) TestSubmitWordAfterFinalization() {
	m := s.startMatch()

	_, err := s.controller.ForceFinalize(s.ctx, m.ID)
	s.Require().NoError(err)

	_, err = s.controller.SubmitWord(s.ctx, "player-1", m.ID, "rain")
	s.ErrorIs(err, model.ErrMatchFinished)
}

// ForceFinalize tests

func (s *ControllerSuite) TestFinalizeDeclaresHigherScorerWinner() {
	m := s.startMatch()

	_, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "strain")
	s.Require().NoError(err)
	_, err = s.controller.SubmitWord(s.ctx, "player-2", m.ID, "ant")
	s.Require().NoError(err)

	result, err := s.controller.ForceFinalize(s.ctx, m.ID)
	s.Require().NoError(err)

	s.Equal(6, result.Scores["player-1"])
	s.Equal(3, result.Scores["player-2"])
	s.Require().NotNil(result.Winner)
	s.Equal(model.PlayerID("player-1"), *result.Winner)

	stored, err := s.store.GetMatch(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(model.MatchStatusFinished, stored.Status)
	s.Require().NotNil(stored.Winner)
	s.Equal(model.PlayerID("player-1"), *stored.Winner)
}

func (s *ControllerSuite) TestFinalizeUpdatesWinLossCounters() {
	m := s.startMatch()

	_, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "strain")
	s.Require().NoError(err)

	_, err = s.controller.ForceFinalize(s.ctx, m.ID)
	s.Require().NoError(err)

	winner, err := s.store.GetPlayerRecord(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(1, winner.TotalWins)
	s.Equal(1, winner.WinStreak)

	loser, err := s.store.GetPlayerRecord(s.ctx, "player-2")
	s.Require().NoError(err)
	s.Equal(1, loser.TotalLosses)
	s.Equal(0, loser.WinStreak)
}

func (s *ControllerSuite) TestFinalizeTieLeavesCountersUntouched() {
	m := s.startMatch()

	_, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "rain")
	s.Require().NoError(err)
	_, err = s.controller.SubmitWord(s.ctx, "player-2", m.ID, "neat")
	s.Require().NoError(err)

	result, err := s.controller.ForceFinalize(s.ctx, m.ID)
	s.Require().NoError(err)

	s.Nil(result.Winner)
	s.Equal(result.Scores["player-1"], result.Scores["player-2"])

	for _, playerID := range []model.PlayerID{"player-1", "player-2"} {
		record, err := s.store.GetPlayerRecord(s.ctx, playerID)
		s.Require().NoError(err)
		s.Equal(0, record.TotalWins)
		s.Equal(0, record.TotalLosses)
		s.Equal(0, record.WinStreak)
	}
}

func (s *ControllerSuite) TestFinalizeZeroSubmissionsIsAZeroZeroTie() {
	m := s.startMatch()

	result, err := s.controller.ForceFinalize(s.ctx, m.ID)
	s.Require().NoError(err)

	s.Nil(result.Winner)
	s.Equal(0, result.Scores["player-1"])
	s.Equal(0, result.Scores["player-2"])
}

func (s *ControllerSuite) TestFinalizeIsIdempotent() {
	m := s.startMatch()

	_, err := s.controller.ForceFinalize(s.ctx, m.ID)
	s.Require().NoError(err)

	_, err = s.controller.ForceFinalize(s.ctx, m.ID)
	s.ErrorIs(err, model.ErrMatchFinished)
}

func (s *ControllerSuite) TestFinalizeNotifiesBothPlayers() {
	m := s.startMatch()

	_, err := s.controller.ForceFinalize(s.ctx, m.ID)
	s.Require().NoError(err)

	for _, playerID := range []model.PlayerID{"player-1", "player-2"} {
		msg := s.notifier.lastOfType(playerID, func(m any) bool {
			_, ok := m.(model.MatchOverMsg)
			return ok
		})
		s.Require().NotNil(msg, "no MATCH_OVER for %s", playerID)
		s.Equal(m.ID, msg.(model.MatchOverMsg).MatchID)
	}
}

func (s *ControllerSuite) TestFinalizeDropsActiveMatch() {
	m := s.startMatch()

	_, ok := s.controller.ActiveMatchFor("player-1")
	s.True(ok)

	_, err := s.controller.ForceFinalize(s.ctx, m.ID)
	s.Require().NoError(err)

	_, ok = s.controller.ActiveMatchFor("player-1")
	s.False(ok)
}

// Candidate exhaustion tests

func (s *ControllerSuite) TestExhaustionFlagSetWhenAllCandidatesPlayed() {
	s.dict.LoadWords("en", []string{"ant", "tan"})
	m := s.startMatch()

	result, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "ant")
	s.Require().NoError(err)
	s.False(result.Exhausted)

	result, err = s.controller.SubmitWord(s.ctx, "player-2", m.ID, "tan")
	s.Require().NoError(err)
	s.True(result.Exhausted)
}

// Recovery tests

func (s *ControllerSuite) newController() *Controller {
	cfg := DefaultConfig()
	cfg.TickInterval = 0
	return NewController(
		s.store, s.dict, combo.NewEngine(combo.DefaultConfig()), combo.NewTracker(),
		s.clock, s.random, s.notifier, testutil.NopLogger(), cfg,
	)
}

func (s *ControllerSuite) TestRecoveryFinalizesExpiredMatch() {
	m := s.startMatch()
	_, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "rain")
	s.Require().NoError(err)

	// Simulate a crash and a restart past the deadline
	s.controller.Shutdown()
	s.clock.Advance(300 * time.Second)

	recovered := s.newController()
	s.Require().NoError(recovered.RecoverActiveMatches(s.ctx))

	stored, err := s.store.GetMatch(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(model.MatchStatusFinished, stored.Status)
	s.Require().NotNil(stored.Winner)
	s.Equal(model.PlayerID("player-1"), *stored.Winner)
}

func (s *ControllerSuite) TestRecoveryRearmsInWindowMatch() {
	m := s.startMatch()
	_, err := s.controller.SubmitWord(s.ctx, "player-1", m.ID, "rain")
	s.Require().NoError(err)

	s.controller.Shutdown()
	s.clock.Advance(60 * time.Second)

	recovered := s.newController()
	s.Require().NoError(recovered.RecoverActiveMatches(s.ctx))
	defer recovered.Shutdown()

	// The match accepts submissions again, and words played before the
	// restart are still duplicates.
	_, err = recovered.SubmitWord(s.ctx, "player-2", m.ID, "rain")
	s.ErrorIs(err, model.ErrWordAlreadyUsed)

	result, err := recovered.SubmitWord(s.ctx, "player-2", m.ID, "train")
	s.Require().NoError(err)
	s.Equal(5, result.TotalScore)
}

func (s *ControllerSuite) TestRecoveryWithNoActiveMatches() {
	recovered := s.newController()
	s.Require().NoError(recovered.RecoverActiveMatches(s.ctx))
}

// flakyRecordStore can be switched to fail player record reads
type flakyRecordStore struct {
	*memory.Storage
	failReads bool
}

func (f *flakyRecordStore) GetPlayerRecord(ctx context.Context, playerID model.PlayerID) (*model.PlayerRecord, error) {
	if f.failReads {
		return nil, errors.New("connection refused")
	}
	return f.Storage.GetPlayerRecord(ctx, playerID)
}

func (s *ControllerSuite) TestFinalizeSurvivesRecordReadFailure() {
	store := &flakyRecordStore{Storage: s.store}
	cfg := DefaultConfig()
	cfg.TickInterval = 0
	controller := NewController(
		store, s.dict, combo.NewEngine(combo.DefaultConfig()), combo.NewTracker(),
		s.clock, s.random, s.notifier, testutil.NopLogger(), cfg,
	)
	defer controller.Shutdown()

	s.random.QueueString("MATCH0000001")
	m, err := controller.StartMatch(s.ctx, "player-1", "player-2")
	s.Require().NoError(err)
	_, err = controller.SubmitWord(s.ctx, "player-1", m.ID, "rain")
	s.Require().NoError(err)

	store.failReads = true
	result, err := controller.ForceFinalize(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Require().NotNil(result.Winner)

	// The match record is finished; the counter update was skipped, not
	// half-applied.
	store.failReads = false
	stored, err := s.store.GetMatch(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(model.MatchStatusFinished, stored.Status)

	record, err := s.store.GetPlayerRecord(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(0, record.TotalWins)
	s.Equal(0, record.WinStreak)
}

func (s *ControllerSuite) TestRecoveryFinalizesMatchExpiringImmediately() {
	m := s.startMatch()
	s.controller.Shutdown()

	// Restart with the deadline a hair away: the timer fires during or
	// right after registration and must still find the match.
	s.clock.Advance(DefaultConfig().Duration - time.Millisecond)

	recovered := s.newController()
	s.Require().NoError(recovered.RecoverActiveMatches(s.ctx))
	defer recovered.Shutdown()

	s.Require().Eventually(func() bool {
		stored, err := s.store.GetMatch(s.ctx, m.ID)
		return err == nil && stored.Status == model.MatchStatusFinished
	}, time.Second, 5*time.Millisecond)

	_, ok := recovered.ActiveMatchFor("player-1")
	s.False(ok)
}