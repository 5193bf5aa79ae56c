package intelligence

import "math"

// TermVector maps a term to its relative frequency within one text.
// It is rebuilt for each comparison and never persisted.
type TermVector map[string]float64

// BuildTermVector converts a token sequence into an L1-normalized term
// frequency vector. An empty sequence yields an empty vector.
func BuildTermVector(tokens []string) TermVector {
	vec := make(TermVector, len(tokens))
	for _, t := range tokens {
		vec[t]++
	}

	total := float64(len(tokens))
	if total == 0 {
		total = 1
	}
	for t, count := range vec {
		vec[t] = count / total
	}
	return vec
}

// VectorOf tokenizes text and builds its term vector.
func VectorOf(text string) TermVector {
	return BuildTermVector(Tokenize(text))
}

// CosineSimilarity calculates the cosine similarity between two term vectors.
//
// The formula is: similarity = (A · B) / (||A|| * ||B||)
//
// Weights are non-negative, so the result lies in [0,1]. Returns 0 when either
// vector has zero norm.
func CosineSimilarity(a, b TermVector) float64 {
	var dotProduct, normA, normB float64
	for term, wa := range a {
		normA += wa * wa
		dotProduct += wa * b[term]
	}
	for _, wb := range b {
		normB += wb * wb
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// rounding can push identical vectors a hair above 1
	if sim > 1 {
		return 1
	}
	return sim
}
