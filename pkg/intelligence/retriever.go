package intelligence

import (
	"sort"
	"strings"

	"github.com/moomina/companion-go/pkg/storage"
)

const (
	// DefaultMinRelevance is the score a memory must exceed to be returned.
	DefaultMinRelevance = 0.05

	// DefaultSimilarityWeight and DefaultImportanceWeight blend lexical
	// similarity with normalized importance.
	DefaultSimilarityWeight = 0.8
	DefaultImportanceWeight = 0.2

	// DefaultTopK is the number of memories surfaced per turn.
	DefaultTopK = 7
)

// ScoredMemory is a memory together with its relevance to a query.
type ScoredMemory struct {
	*storage.Memory

	// Score is similarity*SimilarityWeight + (importance/10)*ImportanceWeight.
	Score float64 `json:"score"`
}

// Retriever ranks memories against a query.
//
// Importance contributes a bounded floor so that important but lexically
// unrelated memories can still surface near the threshold.
//
// Example usage:
//
//	r := NewRetriever(WithMinRelevance(0.1))
//	for _, m := range r.Retrieve(memories, "biryani", 5) {
//	    fmt.Printf("%.3f %s\n", m.Score, m.Content)
//	}
type Retriever struct {
	minRelevance     float64
	similarityWeight float64
	importanceWeight float64
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithMinRelevance overrides the minimum score (exclusive).
func WithMinRelevance(min float64) RetrieverOption {
	return func(r *Retriever) {
		r.minRelevance = min
	}
}

// WithWeights overrides the similarity and importance weights.
func WithWeights(similarity, importance float64) RetrieverOption {
	return func(r *Retriever) {
		r.similarityWeight = similarity
		r.importanceWeight = importance
	}
}

// NewRetriever creates a retriever with the default constants, then applies opts.
func NewRetriever(opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		minRelevance:     DefaultMinRelevance,
		similarityWeight: DefaultSimilarityWeight,
		importanceWeight: DefaultImportanceWeight,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MinRelevance returns the configured threshold.
func (r *Retriever) MinRelevance() float64 {
	return r.minRelevance
}

// Retrieve scores every memory against query and returns at most topK of
// them with a score above the threshold, best first. Ties keep input order.
//
// An empty collection, a blank query, or a query made only of stop words
// yields an empty result.
func (r *Retriever) Retrieve(memories []*storage.Memory, query string, topK int) []ScoredMemory {
	if len(memories) == 0 || strings.TrimSpace(query) == "" {
		return []ScoredMemory{}
	}

	queryVec := VectorOf(query)
	if len(queryVec) == 0 {
		return []ScoredMemory{}
	}

	scored := make([]ScoredMemory, 0, len(memories))
	for _, m := range memories {
		importance := m.Importance
		if importance <= 0 {
			importance = DefaultImportance
		}

		sim := CosineSimilarity(queryVec, VectorOf(m.Content))
		score := sim*r.similarityWeight + float64(importance)/10*r.importanceWeight
		if score > r.minRelevance {
			scored = append(scored, ScoredMemory{Memory: m, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK >= 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// Retrieve ranks memories with the default retriever.
func Retrieve(memories []*storage.Memory, query string, topK int) []ScoredMemory {
	return NewRetriever().Retrieve(memories, query, topK)
}
