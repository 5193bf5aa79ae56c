package core

import (
	"context"
	"errors"
	"time"

	"github.com/moomina/companion-go/pkg/intelligence"
	"github.com/moomina/companion-go/pkg/llm"
	"github.com/moomina/companion-go/pkg/storage"
)

// extractionTimeout bounds a background extraction run.
const extractionTimeout = 2 * time.Minute

// ExtractionReport summarizes one extraction run.
type ExtractionReport struct {
	// Window is the number of messages read.
	Window int `json:"window"`

	// Skipped is true when the window was too small to extract from.
	Skipped bool `json:"skipped,omitempty"`

	// Candidates is the number of valid facts the model proposed.
	Candidates int `json:"candidates"`

	// Rejected counts proposals without usable content.
	Rejected int `json:"rejected"`

	// Duplicates counts candidates that matched an existing memory.
	Duplicates int `json:"duplicates"`

	// Stored counts memories written by this run.
	Stored int `json:"stored"`

	// Memories are the stored records.
	Memories []*storage.Memory `json:"memories,omitempty"`
}

// ExtractMemories turns the recent conversation into stored memories.
//
// The extraction process:
//  1. Reads the last ExtractionWindow messages; fewer than
//     MinExtractionMessages is a no-op
//  2. Asks the extraction model for a JSON array of facts
//  3. Validates and normalizes the candidates
//  4. Skips candidates that duplicate an existing memory or one stored
//     earlier in the same run
//  5. Stores the rest
//
// A response that is not a JSON array returns an error matching
// intelligence.ErrParse and stores nothing. The report is non-nil whenever
// the window was read.
func (c *Client) ExtractMemories(ctx context.Context) (*ExtractionReport, error) {
	c.extractMu.Lock()
	defer c.extractMu.Unlock()

	cfg := c.config.Intelligence
	recent, err := c.store.RecentMessages(ctx, cfg.ExtractionWindow)
	if err != nil {
		return nil, storageError("ExtractMemories", err)
	}

	report := &ExtractionReport{Window: len(recent)}
	if len(recent) < cfg.MinExtractionMessages {
		report.Skipped = true
		return report, nil
	}

	batch, err := c.extractor.ExtractFacts(ctx, recent, llm.WithModel(c.config.LLM.extractionModel()))
	if err != nil {
		if errors.Is(err, intelligence.ErrParse) {
			return report, NewCompanionError("ExtractMemories", err)
		}
		return report, llmError("ExtractMemories", err)
	}
	report.Candidates = len(batch.Candidates)
	report.Rejected = batch.Rejected

	existing, err := c.store.ListMemories(ctx)
	if err != nil {
		return report, storageError("ExtractMemories", err)
	}

	for _, cand := range batch.Candidates {
		if c.dedup.IsDuplicate(existing, cand.Content) {
			report.Duplicates++
			continue
		}

		memory := &storage.Memory{
			ID:         c.nextID(),
			Content:    cand.Content,
			Category:   cand.Category,
			Importance: cand.Importance,
			CreatedAt:  c.now(),
		}
		if err := c.store.InsertMemory(ctx, memory); err != nil {
			return report, storageError("ExtractMemories", err)
		}

		existing = append(existing, memory)
		report.Memories = append(report.Memories, memory)
		report.Stored++
	}

	if report.Stored > 0 {
		c.logger.InfoContext(ctx, "memories extracted",
			"stored", report.Stored,
			"duplicates", report.Duplicates,
			"rejected", report.Rejected)
	}
	return report, nil
}

// maybeExtract runs extraction when the message count hits the cadence.
// Failures are logged and never reach the turn.
func (c *Client) maybeExtract(ctx context.Context) {
	count, err := c.store.CountMessages(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "count messages for extraction", "error", err)
		return
	}
	every := c.config.Intelligence.ExtractionEvery
	if count == 0 || count%every != 0 {
		return
	}

	if !c.backgroundExtraction {
		c.runExtraction(ctx)
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), extractionTimeout)
		defer cancel()
		c.runExtraction(bg)
	}()
}

func (c *Client) runExtraction(ctx context.Context) {
	if _, err := c.ExtractMemories(ctx); err != nil {
		c.logger.ErrorContext(ctx, "memory extraction failed", "error", err)
	}
}
