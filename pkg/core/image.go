package core

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/moomina/companion-go/pkg/llm"
	"github.com/moomina/companion-go/pkg/media"
	"github.com/moomina/companion-go/pkg/mood"
	"github.com/moomina/companion-go/pkg/storage"
)

const (
	// ImageTemperature is used for reactions to shared images.
	ImageTemperature = 0.9

	// ImageTopK is the number of memories composed into an image turn.
	ImageTopK = 5

	// DefaultImageCaption stands in for a missing caption.
	DefaultImageCaption = "Look at this!"

	// ImageFillerReply is used when the vision model returns nothing.
	ImageFillerReply = "yaar image nahi dikh rahi, phir se bhejo na"

	// DegradedImageReply is returned with any image turn that failed after validation.
	DegradedImageReply = "yaar image nahi dikh rahi 🥺 phir se try karo"

	// imageMessagePrefix marks stored user messages that carried an image.
	imageMessagePrefix = "📷 "

	imageReactionNote = "\n\nThe user just shared an image with you. React to it naturally as their girlfriend would: " +
		"comment on what you see, be expressive and personal. Keep your reaction natural in Hinglish."
)

// ChatWithImage runs one turn in which the user shares an image.
//
// The image is saved to the media store and the user message is stored as
// "📷 <caption>" with the image URL attached. Mood and memory retrieval run
// on the caption, which defaults to DefaultImageCaption. The vision model
// sees the composed system prompt and the image only; history is not sent.
//
// The returned ImageURL is where the upload is served. An empty image
// returns ErrInvalidInput before anything is stored. Any later failure
// returns a degraded result (DegradedImageReply, Concerned mood) together
// with the error.
func (c *Client) ChatWithImage(ctx context.Context, image []byte, caption string) (*ChatResult, error) {
	if len(image) == 0 {
		return nil, NewCompanionError("ChatWithImage", fmt.Errorf("%w: image is required", ErrInvalidInput))
	}

	caption = strings.TrimSpace(caption)
	if caption == "" {
		caption = DefaultImageCaption
	}

	result, err := c.chatWithImage(ctx, image, caption)
	if err != nil {
		c.logger.ErrorContext(ctx, "image turn failed", "error", err)
		degraded := degradedResult(c.now())
		degraded.Reply = DegradedImageReply
		return degraded, err
	}
	return result, nil
}

func (c *Client) chatWithImage(ctx context.Context, image []byte, caption string) (*ChatResult, error) {
	imageURL, err := c.media.Save(ctx, image)
	if err != nil {
		return nil, NewCompanionError("ChatWithImage", err)
	}

	if err := c.appendMessage(ctx, storage.RoleUser, imageMessagePrefix+caption, "", imageURL); err != nil {
		return nil, storageError("ChatWithImage", err)
	}

	state, err := c.updateState(ctx, caption)
	if err != nil {
		return nil, storageError("ChatWithImage", err)
	}

	profile, err := c.store.GetProfile(ctx)
	if err != nil {
		return nil, storageError("ChatWithImage", err)
	}

	all, err := c.store.ListMemories(ctx)
	if err != nil {
		return nil, storageError("ChatWithImage", err)
	}
	relevant := memoriesOf(c.retriever.Retrieve(all, caption, ImageTopK))
	systemPrompt := c.composer.Compose(profile, state, relevant) + imageReactionNote

	raw, err := c.llm.GenerateWithMessages(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: caption, ImageURL: dataURL(image)},
	},
		llm.WithModel(c.config.LLM.visionModel()),
		llm.WithTemperature(ImageTemperature),
		llm.WithMaxTokens(ChatMaxTokens),
	)
	if err != nil {
		return nil, llmError("ChatWithImage", err)
	}
	if strings.TrimSpace(raw) == "" {
		raw = ImageFillerReply
	}

	reply := ParseReply(raw)
	if reply.HasPhoto {
		c.logger.DebugContext(ctx, "photo directive ignored on image turn", "description", reply.PhotoRequest)
	}

	if err := c.appendMessage(ctx, storage.RoleAssistant, reply.Text, state.Mood, ""); err != nil {
		return nil, storageError("ChatWithImage", err)
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

func dataURL(image []byte) string {
	return "data:" + media.ContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image)
}
