package sentiment

import (
	"strings"
	"sync"

	"github.com/jonreiter/govader"
)

// Result is the VADER score of a piece of text.
type Result struct {
	// Polarity is the VADER compound score in [-1, 1].
	Polarity float64
	// Distress is set when an explicit distress phrase was found; Polarity
	// is then forced to -1.
	Distress bool
}

// Phrases that signal distress regardless of the surrounding words.
var distressPhrases = []string{
	"want to die",
	"kill myself",
	"end it all",
	"hate my life",
	"can't go on",
	"no reason to live",
	"give up on everything",
	"nobody cares about me",
}

// The lexicon is loaded once; the analyzer is read-only afterwards.
var analyzer = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

// Polarity returns the polarity of text in [-1, 1].
func Polarity(text string) float64 {
	return Analyze(text).Polarity
}

// Analyze scores text with VADER. Distress phrases override the compound
// score with -1.
func Analyze(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{}
	}

	normalized := strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	for _, phrase := range distressPhrases {
		if strings.Contains(normalized, phrase) {
			return Result{Polarity: -1, Distress: true}
		}
	}

	return Result{Polarity: clamp(analyzer().PolarityScores(text).Compound)}
}

func clamp(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
