package command

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"greenroom/internal/domain"
)

// Strategy decides whether a noisy transcript contains a trigger phrase.
// Swappable so the matching behavior can change without touching the
// script machine.
type Strategy interface {
	Matches(transcript string, phrase string) bool
}

// Set classifies transcripts into interview intents using one strategy
// and a fixed phrase per intent.
type Set struct {
	strategy Strategy
	phrases  []intentPhrase
}

type intentPhrase struct {
	intent domain.Intent
	phrase string
}

// Phrases holds the trigger phrase for each intent.
type Phrases struct {
	Ready   string
	Repeat  string
	Advance string
}

func NewSet(strategy Strategy, phrases Phrases) *Set {
	if strategy == nil {
		strategy = FuzzyStrategy{MaxDistance: 3}
	}
	return &Set{
		strategy: strategy,
		phrases: []intentPhrase{
			{intent: domain.IntentReady, phrase: normalize(phrases.Ready)},
			{intent: domain.IntentRepeat, phrase: normalize(phrases.Repeat)},
			{intent: domain.IntentAdvance, phrase: normalize(phrases.Advance)},
		},
	}
}

// Match returns the first intent whose phrase the transcript contains, or
// IntentNone.
func (s *Set) Match(transcript string) domain.Intent {
	text := normalize(transcript)
	if text == "" {
		return domain.IntentNone
	}

	for _, candidate := range s.phrases {
		if candidate.phrase == "" {
			continue
		}
		if s.strategy.Matches(text, candidate.phrase) {
			return candidate.intent
		}
	}
	return domain.IntentNone
}

// NewStrategy builds a strategy by name: "exact", "substring", or "fuzzy".
func NewStrategy(name string, maxDistance int) Strategy {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "exact":
		return ExactStrategy{}
	case "substring":
		return SubstringStrategy{}
	default:
		if maxDistance <= 0 {
			maxDistance = 3
		}
		return FuzzyStrategy{MaxDistance: maxDistance}
	}
}

// ExactStrategy requires the whole transcript to equal the phrase.
type ExactStrategy struct{}

func (ExactStrategy) Matches(transcript string, phrase string) bool {
	return transcript == phrase
}

// SubstringStrategy requires the phrase to appear verbatim anywhere in the
// transcript.
type SubstringStrategy struct{}

func (SubstringStrategy) Matches(transcript string, phrase string) bool {
	return strings.Contains(transcript, phrase)
}

// FuzzyStrategy slides a window of the phrase's word length across the
// transcript and accepts any window within MaxDistance edits.
type FuzzyStrategy struct {
	MaxDistance int
}

func (f FuzzyStrategy) Matches(transcript string, phrase string) bool {
	if strings.Contains(transcript, phrase) {
		return true
	}

	words := strings.Fields(transcript)
	phraseWords := strings.Fields(phrase)
	if len(phraseWords) == 0 || len(words) < len(phraseWords) {
		return false
	}

	for start := 0; start+len(phraseWords) <= len(words); start++ {
		window := strings.Join(words[start:start+len(phraseWords)], " ")
		if levenshtein.ComputeDistance(window, phrase) <= f.MaxDistance {
			return true
		}
	}
	return false
}

// normalize lowercases and strips everything but letters, digits, and
// single spaces so punctuation from the recognizer never blocks a match.
func normalize(text string) string {
	var builder strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			builder.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				builder.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimRight(builder.String(), " ")
}
