// Package intelligence provides the lexical memory engine: tokenization,
// term vectors, cosine similarity, relevance ranking, deduplication and the
// parsing of extracted facts.
package intelligence

import (
	"math"
	"strings"

	"github.com/moomina/companion-go/pkg/storage"
)

const (
	// MinImportance and MaxImportance bound memory importance.
	MinImportance = 1
	MaxImportance = 10

	// DefaultImportance is used when a candidate carries no usable importance.
	DefaultImportance = 5
)

// knownCategories lists every category a stored memory may carry.
var knownCategories = map[storage.Category]struct{}{
	storage.CategoryPreference: {},
	storage.CategoryFact:       {},
	storage.CategoryPerson:     {},
	storage.CategoryEvent:      {},
	storage.CategoryEmotion:    {},
	storage.CategoryGeneral:    {},
}

// NormalizeCategory maps free text onto the fixed category set.
// Anything absent or unrecognized becomes general.
func NormalizeCategory(raw string) storage.Category {
	c := storage.Category(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownCategories[c]; ok {
		return c
	}
	return storage.CategoryGeneral
}

// ClampImportance clamps importance into [1,10]. Zero means "unset" and maps
// to DefaultImportance.
func ClampImportance(importance int) int {
	if importance == 0 {
		return DefaultImportance
	}
	if importance < MinImportance {
		return MinImportance
	}
	if importance > MaxImportance {
		return MaxImportance
	}
	return importance
}

// clampImportanceFloat rounds a decoded JSON number and clamps it.
func clampImportanceFloat(v float64) int {
	if math.IsNaN(v) {
		return DefaultImportance
	}
	if v >= MaxImportance {
		return MaxImportance
	}
	if v <= MinImportance {
		if v == 0 {
			return DefaultImportance
		}
		return MinImportance
	}
	return int(math.Round(v))
}
