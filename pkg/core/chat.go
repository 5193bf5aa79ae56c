package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/moomina/companion-go/pkg/intelligence"
	"github.com/moomina/companion-go/pkg/llm"
	"github.com/moomina/companion-go/pkg/mood"
	"github.com/moomina/companion-go/pkg/storage"
)

const (
	// ChatTemperature and ChatMaxTokens keep replies short and lively.
	ChatTemperature = 0.92
	ChatMaxTokens   = 120

	// FillerReply is used when the model returns nothing.
	FillerReply = "hmm 🫣"

	// DegradedReply is returned with any turn that failed after validation.
	DegradedReply = "Sorry jaan, my brain froze for a sec 🥺 Try again?"
)

// ChatResult is the outcome of one turn.
type ChatResult struct {
	// Reply is the full reply with the photo directive removed.
	Reply string `json:"reply"`

	// Parts are the burst segments in delivery order. Set only when the
	// reply was split into more than one burst.
	Parts []string `json:"parts,omitempty"`

	// Mood is the companion mood after this turn.
	Mood mood.Mood `json:"mood"`

	// Energy is the companion energy after this turn.
	Energy int `json:"energy"`

	// ImageURL is set when a photo was produced.
	ImageURL string `json:"image_url,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	// Degraded marks the fixed apology returned on failure.
	Degraded bool `json:"degraded,omitempty"`
}

// degradedResult is the user-visible outcome of a failed turn.
func degradedResult(now time.Time) *ChatResult {
	return &ChatResult{
		Reply:     DegradedReply,
		Mood:      mood.Concerned,
		Timestamp: now,
		Degraded:  true,
	}
}

// Chat runs one conversational turn.
//
// The turn:
//  1. Persists the user message
//  2. Updates mood and energy from the message
//  3. Retrieves the most relevant memories and composes the system prompt
//  4. Calls the completion service with recent history, retrying once with
//     the fallback model when rate limited
//  5. Splits the reply into bursts and handles a photo directive
//  6. Persists the reply and triggers extraction on cadence
//
// A blank message returns ErrInvalidInput before anything is stored. Any
// later failure returns a degraded result (apology, Concerned mood) together
// with the error, so callers always have something to show.
func (c *Client) Chat(ctx context.Context, message string) (*ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, NewCompanionError("Chat", fmt.Errorf("%w: message is required", ErrInvalidInput))
	}

	result, err := c.chat(ctx, message)
	if err != nil {
		c.logger.ErrorContext(ctx, "chat turn failed", "error", err)
		return degradedResult(c.now()), err
	}
	return result, nil
}

func (c *Client) chat(ctx context.Context, message string) (*ChatResult, error) {
	if err := c.appendMessage(ctx, storage.RoleUser, message, "", ""); err != nil {
		return nil, storageError("Chat", err)
	}

	state, err := c.updateState(ctx, message)
	if err != nil {
		return nil, storageError("Chat", err)
	}

	profile, err := c.store.GetProfile(ctx)
	if err != nil {
		return nil, storageError("Chat", err)
	}

	all, err := c.store.ListMemories(ctx)
	if err != nil {
		return nil, storageError("Chat", err)
	}
	relevant := memoriesOf(c.retriever.Retrieve(all, message, c.config.Intelligence.TopK))
	systemPrompt := c.composer.Compose(profile, state, relevant)

	recent, err := c.store.RecentMessages(ctx, c.config.Intelligence.HistoryLimit)
	if err != nil {
		return nil, storageError("Chat", err)
	}

	raw, err := c.complete(ctx, systemPrompt, historyOf(recent))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		raw = FillerReply
	}

	reply := ParseReply(raw)

	var imageURL string
	if reply.HasPhoto {
		imageURL = c.generateImage(ctx, reply.PhotoRequest)
	}

	if err := c.appendMessage(ctx, storage.RoleAssistant, reply.Text, state.Mood, imageURL); err != nil {
		return nil, storageError("Chat", err)
	}

	c.maybeExtract(ctx)

	return &ChatResult{
		Reply:     reply.Text,
		Parts:     burstsOf(reply.Parts),
		Mood:      mood.Mood(state.Mood),
		Energy:    state.Energy,
		ImageURL:  imageURL,
		Timestamp: c.now(),
	}, nil
}

// updateState applies the mood machine to the stored state.
func (c *Client) updateState(ctx context.Context, message string) (*storage.CompanionState, error) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	current, err := c.store.GetState(ctx)
	if err != nil {
		return nil, err
	}

	next, energy := c.moods.Apply(message, mood.Mood(current.Mood), current.Energy)
	if err := c.store.SetState(ctx, string(next), energy); err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "mood updated",
		"from", current.Mood, "to", next,
		"energy_from", current.Energy, "energy_to", energy)

	return &storage.CompanionState{
		Mood:            string(next),
		Energy:          energy,
		LastInteraction: c.now(),
	}, nil
}

// complete calls the primary model and retries once with the fallback model
// when the primary is rate limited.
func (c *Client) complete(ctx context.Context, systemPrompt string, history []llm.Message) (string, error) {
	opts := []llm.GenerateOption{
		llm.WithTemperature(ChatTemperature),
		llm.WithMaxTokens(ChatMaxTokens),
	}

	primary := c.config.LLM.Model
	reply, err := llm.Complete(ctx, c.llm, systemPrompt, history, append(opts, llm.WithModel(primary))...)
	if err == nil {
		return reply, nil
	}

	fallback := c.config.LLM.FallbackModel
	if !llm.IsRateLimited(err) || fallback == "" || fallback == primary {
		return "", llmError("Chat", err)
	}

	c.logger.WarnContext(ctx, "primary model rate limited, falling back",
		"model", primary, "fallback", fallback)

	reply, err = llm.Complete(ctx, c.llm, systemPrompt, history, append(opts, llm.WithModel(fallback))...)
	if err != nil {
		return "", llmError("Chat", err)
	}
	return reply, nil
}

// generateImage asks the image generator for a photo. Failure yields "".
func (c *Client) generateImage(ctx context.Context, description string) string {
	url, err := c.images.Generate(ctx, description)
	if err != nil {
		c.logger.WarnContext(ctx, "image generation failed", "description", description, "error", err)
		return ""
	}
	c.logger.InfoContext(ctx, "photo generated", "description", description, "url", url)
	return url
}

func (c *Client) appendMessage(ctx context.Context, role storage.Role, content, moodLabel, imageURL string) error {
	return c.store.AppendMessage(ctx, &storage.Message{
		ID:        c.nextID(),
		Role:      role,
		Content:   content,
		Mood:      moodLabel,
		HasImage:  imageURL != "",
		ImageURL:  imageURL,
		Timestamp: c.now(),
	})
}

// burstsOf returns parts only when there is more than one to deliver.
func burstsOf(parts []string) []string {
	if len(parts) < 2 {
		return nil
	}
	return parts
}

func memoriesOf(scored []intelligence.ScoredMemory) []*storage.Memory {
	out := make([]*storage.Memory, len(scored))
	for i, s := range scored {
		out[i] = s.Memory
	}
	return out
}

func historyOf(messages []*storage.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}
