package intelligence

import (
	"github.com/moomina/companion-go/pkg/storage"
)

// DefaultDuplicateThreshold is the similarity at or above which two memories
// are considered the same fact.
const DefaultDuplicateThreshold = 0.7

// DedupChecker detects near-duplicate memories by lexical similarity.
//
// Example usage:
//
//	checker := NewDedupChecker(0.7)
//	if checker.IsDuplicate(existing, "Loves biryani") {
//	    // skip insert
//	}
type DedupChecker struct {
	// threshold is the similarity threshold for duplicate detection.
	// Memories with similarity >= threshold are considered duplicates.
	threshold float64
}

// NewDedupChecker creates a new deduplication checker.
//
// Parameters:
//   - threshold: Similarity threshold (0.0-1.0). If 0, defaults to 0.7.
func NewDedupChecker(threshold float64) *DedupChecker {
	if threshold == 0 {
		threshold = DefaultDuplicateThreshold
	}
	return &DedupChecker{threshold: threshold}
}

// Threshold returns the configured similarity threshold.
func (d *DedupChecker) Threshold() float64 {
	return d.threshold
}

// IsDuplicate reports whether content overlaps any existing memory at or above
// the threshold. It stops at the first match.
func (d *DedupChecker) IsDuplicate(existing []*storage.Memory, content string) bool {
	_, ok := d.FindDuplicate(existing, content)
	return ok
}

// FindDuplicate returns the first existing memory that content duplicates.
func (d *DedupChecker) FindDuplicate(existing []*storage.Memory, content string) (*storage.Memory, bool) {
	newVec := VectorOf(content)
	for _, m := range existing {
		if CosineSimilarity(newVec, VectorOf(m.Content)) >= d.threshold {
			return m, true
		}
	}
	return nil, false
}

// IsDuplicate checks content against existing memories with the default threshold.
func IsDuplicate(existing []*storage.Memory, content string) bool {
	return NewDedupChecker(DefaultDuplicateThreshold).IsDuplicate(existing, content)
}
