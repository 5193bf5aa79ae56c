package intelligence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/moomina/companion-go/pkg/llm"
	"github.com/moomina/companion-go/pkg/storage"
)

// ErrParse is matched by every *ParseError.
var ErrParse = errors.New("extraction response is not a valid fact list")

// ParseError describes why an extraction response was discarded.
type ParseError struct {
	// Reason is a short human readable cause.
	Reason string

	// Err is the underlying decoder or validator error, if any.
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse extraction: %s: %v", e.Reason, e.Err)
	}
	return "parse extraction: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrParse) true for any ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Candidate is one validated, normalized fact ready for deduplication.
type Candidate struct {
	Content    string           `json:"content"`
	Category   storage.Category `json:"category"`
	Importance int              `json:"importance"`
}

// CandidateBatch is the typed result of parsing one extraction response.
type CandidateBatch struct {
	// Candidates are the accepted facts in response order.
	Candidates []Candidate

	// Total is the number of elements in the response array.
	Total int

	// Rejected counts elements dropped for not being objects or for
	// missing or non-text content.
	Rejected int
}

var (
	jsonFenceRe = regexp.MustCompile("(?i)```json\\s*")
	fenceRe     = regexp.MustCompile("```\\s*")
)

// candidateListSchema accepts any array. Element checks are left to
// normalization so a single bad element only drops itself.
var candidateListSchema = jsonschema.MustCompileString("extraction.schema.json", `{
	"type": "array",
	"items": {}
}`)

// FactExtractor extracts categorized facts from conversation using an LLM.
//
// Example usage:
//
//	extractor := NewFactExtractor(provider, "Aahil", "Moomina")
//	batch, err := extractor.ExtractFacts(ctx, recent, llm.WithModel("llama-3.1-8b-instant"))
type FactExtractor struct {
	// llm is the LLM provider for fact extraction.
	llm llm.Provider

	userName      string
	companionName string

	// customPrompt replaces the default instruction when non-empty.
	customPrompt string
}

// NewFactExtractor creates a new fact extractor.
//
// Parameters:
//   - provider: LLM provider for fact extraction (required)
//   - userName: How the user is labelled in the transcript and the instruction
//   - companionName: How the companion is labelled in the transcript
func NewFactExtractor(provider llm.Provider, userName, companionName string) *FactExtractor {
	return &FactExtractor{
		llm:           provider,
		userName:      userName,
		companionName: companionName,
	}
}

// NewFactExtractorWithPrompt creates a fact extractor with a custom instruction.
func NewFactExtractorWithPrompt(provider llm.Provider, userName, companionName, customPrompt string) *FactExtractor {
	e := NewFactExtractor(provider, userName, companionName)
	e.customPrompt = customPrompt
	return e
}

// ExtractFacts asks the LLM for facts about the user found in messages and
// returns the validated candidates.
//
// The extraction process:
//  1. Renders messages as a labelled transcript
//  2. Calls the LLM with the extraction instruction
//  3. Strips code fences and validates the JSON array
//  4. Normalizes category and importance of each candidate
//
// A response that is not a JSON array yields a *ParseError and no
// candidates. Elements that are not usable facts are counted as rejected.
func (e *FactExtractor) ExtractFacts(ctx context.Context, messages []*storage.Message, opts ...llm.GenerateOption) (*CandidateBatch, error) {
	llmMessages := []llm.Message{
		{Role: "system", Content: e.getSystemPrompt()},
		{Role: "user", Content: e.transcript(messages)},
	}

	opts = append([]llm.GenerateOption{
		llm.WithTemperature(0.3),
		llm.WithMaxTokens(500),
	}, opts...)

	response, err := e.llm.GenerateWithMessages(ctx, llmMessages, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to extract facts: %w", err)
	}

	return ParseCandidates(response)
}

// transcript renders messages as "Name: content" lines.
func (e *FactExtractor) transcript(messages []*storage.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		speaker := e.companionName
		if m.Role == storage.RoleUser {
			speaker = e.userName
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, m.Content))
	}
	return strings.Join(lines, "\n")
}

// getSystemPrompt returns the system prompt for fact extraction.
func (e *FactExtractor) getSystemPrompt() string {
	if e.customPrompt != "" {
		return e.customPrompt
	}

	return fmt.Sprintf(`You are a memory extraction system for a personal AI companion. Read the conversation and extract the facts worth remembering about the user (%[1]s).

Return ONLY a valid JSON array of objects. Each object must have:
- "content": a short, clear fact (e.g. "Loves biryani", "Has an exam on Friday")
- "category": one of "preference", "fact", "person", "event", "emotion"
- "importance": a number from 1 to 10 (10 = critical life fact, 1 = trivial mention)

Category guide:
- preference: likes, dislikes, favorites, interests
- fact: personal details, habits, daily life
- person: people mentioned (family, friends)
- event: upcoming or past events, plans, deadlines
- emotion: emotional states, feelings, moods expressed

If there is nothing new worth remembering, return an empty array [].
Return ONLY valid JSON, nothing else. No markdown formatting.`, e.userName)
}

// ParseCandidates validates an extraction response and normalizes each fact.
//
// Rules applied per element:
//   - non-objects are rejected
//   - content must be a non-blank string, otherwise the object is rejected
//   - category is normalized to the fixed set, defaulting to general
//   - importance is clamped to [1,10], defaulting to 5 when absent
func ParseCandidates(response string) (*CandidateBatch, error) {
	raw := removeCodeBlocks(response)

	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, &ParseError{Reason: "invalid JSON", Err: err}
	}
	if err := candidateListSchema.Validate(doc); err != nil {
		return nil, &ParseError{Reason: "not an array", Err: err}
	}

	items := doc.([]interface{})
	batch := &CandidateBatch{
		Candidates: make([]Candidate, 0, len(items)),
		Total:      len(items),
	}

	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			batch.Rejected++
			continue
		}

		content, ok := obj["content"].(string)
		content = strings.TrimSpace(content)
		if !ok || content == "" {
			batch.Rejected++
			continue
		}

		category, _ := obj["category"].(string)
		batch.Candidates = append(batch.Candidates, Candidate{
			Content:    content,
			Category:   NormalizeCategory(category),
			Importance: importanceOf(obj["importance"]),
		})
	}

	return batch, nil
}

// importanceOf reads a loosely typed importance value.
func importanceOf(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return clampImportanceFloat(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return DefaultImportance
		}
		return clampImportanceFloat(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return DefaultImportance
		}
		return clampImportanceFloat(f)
	default:
		return DefaultImportance
	}
}

// removeCodeBlocks removes code fences (```json ... ```) from response.
func removeCodeBlocks(response string) string {
	response = jsonFenceRe.ReplaceAllString(response, "")
	response = fenceRe.ReplaceAllString(response, "")
	return strings.TrimSpace(response)
}
