package dictionary

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lexiduel/lexiduel/internal/dependencies/random"
	"github.com/lexiduel/lexiduel/internal/model"
)

// Config holds dictionary and letter-generation settings
type Config struct {
	// MinWordLen and MaxWordLen bound the words kept at load time
	MinWordLen int
	MaxWordLen int
	// HandSize is the number of letters in a generated set
	HandSize int
	// MinCandidateWords is the minimum playable-word count a generated
	// letter set must yield
	MinCandidateWords int
	// MaxGenerateAttempts bounds the generate-and-check loop
	MaxGenerateAttempts int
	// CacheSize is the capacity of the validation LRU cache
	CacheSize int
}

// DefaultConfig returns the standard game settings
func DefaultConfig() Config {
	return Config{
		MinWordLen:          3,
		MaxWordLen:          15,
		HandSize:            7,
		MinCandidateWords:   25,
		MaxGenerateAttempts: 50,
		CacheSize:           1000,
	}
}

// letterWeights is the English letter frequency table used to bias
// generated letter sets toward playable hands.
var letterWeights = map[byte]int{
	'A': 9, 'B': 2, 'C': 2, 'D': 4, 'E': 12, 'F': 2, 'G': 3, 'H': 2, 'I': 9,
	'J': 1, 'K': 1, 'L': 4, 'M': 2, 'N': 6, 'O': 8, 'P': 2, 'Q': 1, 'R': 6,
	'S': 4, 'T': 6, 'U': 4, 'V': 2, 'W': 2, 'X': 1, 'Y': 2, 'Z': 1,
}

const vowels = "AEIOU"

// fallbackLetterSets are hands known to yield many words, used when random
// generation cannot hit the candidate minimum.
var fallbackLetterSets = []string{"AEIRSNT", "ETAOINR", "AEIOURT", "RSTLNEA"}

// Service loads word lists and answers validity, candidate-enumeration and
// letter-generation queries. Word lists are grouped by named variant
// (e.g. "sowpods"); all lookups are case-insensitive.
type Service struct {
	cfg    Config
	random random.Random
	logger *slog.Logger

	mu       sync.RWMutex
	variants map[string]map[string]struct{}

	// cache memoizes IsValid results keyed "variant:word"
	cache *lru.Cache[string, bool]

	weightedLetters []byte
}

// New creates a dictionary service with no variants loaded
func New(cfg Config, rnd random.Random, logger *slog.Logger) *Service {
	cache, _ := lru.New[string, bool](cfg.CacheSize)

	var weighted []byte
	for letter := byte('A'); letter <= 'Z'; letter++ {
		for i := 0; i < letterWeights[letter]; i++ {
			weighted = append(weighted, letter)
		}
	}

	return &Service{
		cfg:             cfg,
		random:          rnd,
		logger:          logger.With(slog.String("component", "dictionary")),
		variants:        make(map[string]map[string]struct{}),
		cache:           cache,
		weightedLetters: weighted,
	}
}

// LoadLists loads one word-list file per variant. Variants that fail to
// load are skipped with a warning; if none load the returned error names
// every failed variant, and the caller must treat it as fatal.
func (s *Service) LoadLists(paths map[string]string) error {
	var failed []string
	loaded := 0
	for variant, path := range paths {
		if err := s.LoadFromFile(variant, path); err != nil {
			s.logger.Warn("word list failed to load",
				slog.String("variant", variant),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			failed = append(failed, variant)
			continue
		}
		loaded++
	}
	if loaded == 0 {
		sort.Strings(failed)
		return fmt.Errorf("no word lists loaded (failed: %s): %w",
			strings.Join(failed, ", "), model.ErrDictionaryNotLoaded)
	}
	return nil
}

// LoadFromFile loads a newline-delimited word list as the given variant
func (s *Service) LoadFromFile(variant, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" {
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	s.LoadWords(variant, words)
	s.logger.Info("word list loaded",
		slog.String("variant", variant),
		slog.Int("words", s.WordCount(variant)),
	)
	return nil
}

// LoadWords loads a slice of words as the given variant, applying the
// configured length bounds. Replaces any prior content for the variant.
func (s *Service) LoadWords(variant string, words []string) {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		normalized := strings.ToLower(strings.TrimSpace(word))
		if len(normalized) < s.cfg.MinWordLen || len(normalized) > s.cfg.MaxWordLen {
			continue
		}
		set[normalized] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.variants[variant] = set
	s.cache.Purge()
}

// IsLoaded reports whether at least one variant has been loaded
func (s *Service) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.variants) > 0
}

// WordCount returns the number of words loaded for a variant
func (s *Service) WordCount(variant string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.variants[variant])
}

// IsValid checks whether a word exists in the given variant. Results are
// memoized in a bounded LRU keyed by normalized word and variant.
func (s *Service) IsValid(word, variant string) bool {
	normalized := strings.ToLower(strings.TrimSpace(word))
	if len(normalized) < s.cfg.MinWordLen || len(normalized) > s.cfg.MaxWordLen {
		return false
	}

	cacheKey := variant + ":" + normalized
	if valid, ok := s.cache.Get(cacheKey); ok {
		return valid
	}

	s.mu.RLock()
	set, ok := s.variants[variant]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	_, valid := set[normalized]
	s.cache.Add(cacheKey, valid)
	return valid
}

// CanForm reports whether word can be assembled from the letter multiset,
// consuming each letter at most as many times as it appears. Cheap
// pre-filter ahead of the dictionary lookup.
func CanForm(word, letters string) bool {
	if word == "" {
		return false
	}
	var counts [26]int
	for _, r := range strings.ToUpper(letters) {
		if r < 'A' || r > 'Z' {
			return false
		}
		counts[r-'A']++
	}
	for _, r := range strings.ToUpper(word) {
		if r < 'A' || r > 'Z' {
			return false
		}
		counts[r-'A']--
		if counts[r-'A'] < 0 {
			return false
		}
	}
	return true
}

// CandidateWords enumerates every dictionary word of the variant formable
// from the letter multiset, deduplicated and sorted lowercase. The search
// walks distinct letters per position over a count table, so the branching
// is bounded by the hand size and no arrangement is visited twice.
func (s *Service) CandidateWords(letters, variant string) []string {
	s.mu.RLock()
	set, ok := s.variants[variant]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	var counts [26]int
	total := 0
	for _, r := range strings.ToUpper(letters) {
		if r >= 'A' && r <= 'Z' {
			counts[r-'A']++
			total++
		}
	}

	found := make(map[string]struct{})
	buf := make([]byte, 0, total)

	var walk func()
	walk = func() {
		if len(buf) >= s.cfg.MinWordLen {
			word := string(buf)
			if _, ok := set[word]; ok {
				found[word] = struct{}{}
			}
		}
		if len(buf) == total {
			return
		}
		for i := 0; i < 26; i++ {
			if counts[i] == 0 {
				continue
			}
			counts[i]--
			buf = append(buf, byte('a'+i))
			walk()
			buf = buf[:len(buf)-1]
			counts[i]++
		}
	}
	walk()

	result := make([]string, 0, len(found))
	for word := range found {
		result = append(result, word)
	}
	sort.Strings(result)
	return result
}

// GenerateLetters produces a hand-size letter multiset biased toward
// English letter frequency, with between two and four vowels, retrying
// until the variant yields at least the configured minimum of candidate
// words. Falls back to the best attempt seen, then to a known-good set.
func (s *Service) GenerateLetters(variant string) string {
	var bestLetters string
	bestCount := -1

	for attempt := 0; attempt < s.cfg.MaxGenerateAttempts; attempt++ {
		letters := s.randomLetters()
		count := len(s.CandidateWords(letters, variant))
		if count >= s.cfg.MinCandidateWords {
			return letters
		}
		if count > bestCount {
			bestLetters = letters
			bestCount = count
		}
	}

	if bestCount >= s.cfg.MinCandidateWords/2 {
		s.logger.Warn("letter generation below candidate minimum, using best attempt",
			slog.String("letters", bestLetters),
			slog.Int("candidates", bestCount),
		)
		return bestLetters
	}

	fallback := fallbackLetterSets[s.random.Intn(len(fallbackLetterSets))]
	s.logger.Warn("letter generation failed, using fallback set",
		slog.String("letters", fallback),
	)
	return fallback
}

// randomLetters builds one weighted hand with the vowel constraints applied
func (s *Service) randomLetters() string {
	result := make([]byte, 0, s.cfg.HandSize)
	vowelCount := 0

	// Seed two vowels so every hand is playable
	for i := 0; i < 2 && len(result) < s.cfg.HandSize; i++ {
		result = append(result, vowels[s.random.Intn(len(vowels))])
		vowelCount++
	}

	for len(result) < s.cfg.HandSize {
		letter := s.weightedLetters[s.random.Intn(len(s.weightedLetters))]
		if isVowel(letter) {
			vowelCount++
		}
		result = append(result, letter)
	}

	// Swap surplus vowels for consonants, at most four vowels per hand
	for i := 0; i < len(result) && vowelCount > 4; i++ {
		if !isVowel(result[i]) {
			continue
		}
		result[i] = s.randomConsonant()
		vowelCount--
	}

	return string(result)
}

// randomConsonant draws from the weight table, skipping vowels
func (s *Service) randomConsonant() byte {
	start := s.random.Intn(len(s.weightedLetters))
	for i := 0; i < len(s.weightedLetters); i++ {
		letter := s.weightedLetters[(start+i)%len(s.weightedLetters)]
		if !isVowel(letter) {
			return letter
		}
	}
	return 'T'
}

func isVowel(letter byte) bool {
	return strings.IndexByte(vowels, letter) >= 0
}
