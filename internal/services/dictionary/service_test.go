package dictionary

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lexiduel/lexiduel/internal/dependencies/mocks"
	"github.com/lexiduel/lexiduel/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	random  *mocks.MockRandom
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.random = mocks.NewMockRandom()
	s.service = New(DefaultConfig(), s.random, testutil.NopLogger())
}

func (s *ServiceSuite) loadWords(words ...string) {
	s.service.LoadWords("en", words)
}

// LoadWords tests

func (s *ServiceSuite) TestLoadWordsNormalizesCase() {
	s.loadWords("CAT", "Dog ")
	s.True(s.service.IsValid("cat", "en"))
	s.True(s.service.IsValid("dog", "en"))
}

func (s *ServiceSuite) TestLoadWordsAppliesLengthBounds() {
	s.loadWords("at", "cat", "pneumonoultramicroscopic")
	s.Equal(1, s.service.WordCount("en"))
	s.False(s.service.IsValid("at", "en"))
	s.True(s.service.IsValid("cat", "en"))
}

func (s *ServiceSuite) TestLoadWordsReplacesVariant() {
	s.loadWords("cat")
	s.loadWords("dog")
	s.False(s.service.IsValid("cat", "en"))
	s.True(s.service.IsValid("dog", "en"))
}

func (s *ServiceSuite) TestIsLoaded() {
	s.False(s.service.IsLoaded())
	s.loadWords("cat")
	s.True(s.service.IsLoaded())
}

// IsValid tests

func (s *ServiceSuite) TestIsValidIsCaseInsensitive() {
	s.loadWords("cat")
	s.True(s.service.IsValid("CAT", "en"))
	s.True(s.service.IsValid("CaT", "en"))
}

func (s *ServiceSuite) TestIsValidUnknownWord() {
	s.loadWords("cat")
	s.False(s.service.IsValid("dog", "en"))
}

func (s *ServiceSuite) TestIsValidUnknownVariant() {
	s.loadWords("cat")
	s.False(s.service.IsValid("cat", "fr"))
}

func (s *ServiceSuite) TestIsValidCachedResultSurvivesRepeatLookups() {
	s.loadWords("cat")
	for i := 0; i < 3; i++ {
		s.True(s.service.IsValid("cat", "en"))
		s.False(s.service.IsValid("dog", "en"))
	}
}

func (s *ServiceSuite) TestCacheIsPurgedOnReload() {
	s.loadWords("cat")
	s.True(s.service.IsValid("cat", "en"))

	s.loadWords("dog")
	s.False(s.service.IsValid("cat", "en"))
}

// CanForm tests

func (s *ServiceSuite) TestCanFormConsumesLetterMultiset() {
	s.True(CanForm("rain", "AEIRSNT"))
	s.True(CanForm("stain", "AEIRSNT"))
	s.False(CanForm("tent", "AEIRSNT")) // needs two Ts
	s.False(CanForm("zoo", "AEIRSNT"))
}

func (s *ServiceSuite) TestCanFormIsCaseInsensitive() {
	s.True(CanForm("RAIN", "aeirsnt"))
}

func (s *ServiceSuite) TestCanFormEmptyWord() {
	s.False(CanForm("", "AEIRSNT"))
}

func (s *ServiceSuite) TestCanFormFullHand() {
	s.True(CanForm("nastier", "AEIRSNT"))
	s.False(CanForm("nastiers", "AEIRSNT"))
}

// CandidateWords tests

func (s *ServiceSuite) TestCandidateWordsFindsAllFormableWords() {
	s.loadWords("ant", "tan", "rat", "tent", "zoo")

	candidates := s.service.CandidateWords("AEIRSNT", "en")

	s.Equal([]string{"ant", "rat", "tan"}, candidates)
}

func (s *ServiceSuite) TestCandidateWordsRespectsLetterCounts() {
	s.loadWords("tent", "ten")

	s.Equal([]string{"ten"}, s.service.CandidateWords("TEN", "en"))
	s.Equal([]string{"ten", "tent"}, s.service.CandidateWords("TENT", "en"))
}

func (s *ServiceSuite) TestCandidateWordsUnknownVariant() {
	s.loadWords("ant")
	s.Nil(s.service.CandidateWords("AEIRSNT", "fr"))
}

// GenerateLetters tests

func (s *ServiceSuite) TestGenerateLettersFallsBackWhenDictionaryIsSparse() {
	s.loadWords("ant", "tan")

	// The zero-valued mock random produces unplayable hands, so after all
	// attempts the known-good fallback set is used.
	letters := s.service.GenerateLetters("en")
	s.Equal("AEIRSNT", letters)
}

func (s *ServiceSuite) TestGenerateLettersHandProperties() {
	cfg := DefaultConfig()
	// Exercise the raw hand builder via a config that accepts any hand
	cfg.MinCandidateWords = 0
	service := New(cfg, s.random, testutil.NopLogger())
	service.LoadWords("en", []string{"ant"})

	letters := service.GenerateLetters("en")

	s.Len(letters, 7)
	vowelCount := 0
	for i := 0; i < len(letters); i++ {
		s.GreaterOrEqual(letters[i], byte('A'))
		s.LessOrEqual(letters[i], byte('Z'))
		if isVowel(letters[i]) {
			vowelCount++
		}
	}
	s.GreaterOrEqual(vowelCount, 2)
	s.LessOrEqual(vowelCount, 4)
}

func (s *ServiceSuite) TestGenerateLettersReturnsPlayableHand() {
	words := []string{
		"ant", "art", "air", "ran", "rat", "tan", "tar", "sat", "sit",
		"tin", "rain", "stain", "train", "saint", "satin", "star", "stir",
		"nest", "rent", "sent", "rate", "tear", "near", "earn", "neat",
		"tins", "rats", "arts", "ants", "rant", "rants", "trains", "strain",
	}
	s.loadWords(words...)

	letters := s.service.GenerateLetters("en")
	candidates := s.service.CandidateWords(letters, "en")

	s.GreaterOrEqual(len(candidates), s.service.cfg.MinCandidateWords)
}