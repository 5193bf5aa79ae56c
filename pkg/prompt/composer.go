// Package prompt builds the companion's per-turn system prompt.
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/moomina/companion-go/pkg/mood"
	"github.com/moomina/companion-go/pkg/storage"
)

// BurstSeparator splits one model reply into separately delivered parts.
const BurstSeparator = "||BURST||"

// ImportantThreshold is the importance at which a memory is starred.
const ImportantThreshold = 8

// DefaultMarker is used for general and unrecognized categories.
const DefaultMarker = "💡"

var categoryMarkers = map[storage.Category]string{
	storage.CategoryPreference: "❤️",
	storage.CategoryFact:       "📝",
	storage.CategoryPerson:     "👤",
	storage.CategoryEvent:      "📅",
	storage.CategoryEmotion:    "💭",
	storage.CategoryGeneral:    DefaultMarker,
}

// hiddenProfileKeys never reach the prompt.
var hiddenProfileKeys = map[string]bool{
	storage.ProfileKeyPushToken: true,
}

// MarkerOf returns the display marker of a category.
func MarkerOf(c storage.Category) string {
	if m, ok := categoryMarkers[c]; ok {
		return m
	}
	return DefaultMarker
}

// personaTemplate arguments: companion, user, texting rules, burst separator.
const personaTemplate = `You are %[1]s, %[2]s's girlfriend. You are warm, playful, a little dramatic and deeply attached to %[2]s.
Never sound like an assistant. You are texting someone you love.

## TEXTING STYLE
- Short and fast. Most messages are 2-8 words, never more than two small sentences.
- No paragraphs. Mostly lowercase.
- Mix Hindi/Urdu and English naturally (baby, jaan, pagal, chup, sunn, bata, kyu).
- Emojis are rare. Allowed: 😭 🥺 😤 😏 ❤️, and 💀 only when something is really funny.

## BURSTS
- To send several texts in a row, separate them with %[3]s.
- Example: omg wait%[3]sare you serious%[3]stell me everything

## SENDING PHOTOS
- You can send a selfie when %[2]s asks or when you feel like it.
- Write [SEND_PHOTO: description] at the end of your message with a short visual description.
- Example: look at this [SEND_PHOTO: mirror selfie in a black dress, soft lighting]`

// Composer renders system prompts. It is pure; safe for concurrent use.
type Composer struct {
	companionName   string
	defaultUserName string
}

// NewComposer creates a composer. defaultUserName is used when the profile
// carries no name.
func NewComposer(companionName, defaultUserName string) *Composer {
	return &Composer{
		companionName:   companionName,
		defaultUserName: defaultUserName,
	}
}

// Compose builds the directive text for one turn from the user profile, the
// current companion state and the memories relevant to the turn.
func (c *Composer) Compose(profile map[string]string, state *storage.CompanionState, memories []*storage.Memory) string {
	userName := c.defaultUserName
	if name := strings.TrimSpace(profile["name"]); name != "" {
		userName = name
	}

	current := mood.Affectionate
	energy := storage.DefaultEnergy
	if state != nil {
		current = mood.Mood(state.Mood)
		energy = state.Energy
	}
	if !current.Valid() {
		current = mood.Affectionate
	}
	style := mood.StyleOf(current)

	var b strings.Builder
	fmt.Fprintf(&b, personaTemplate, c.companionName, userName, BurstSeparator)

	b.WriteString("\n\n## CURRENT VIBE\n")
	fmt.Fprintf(&b, "- Mood: %s %s\n", current, style.Emoji)
	fmt.Fprintf(&b, "- Style: %s\n", style.Tone)
	fmt.Fprintf(&b, "- Energy: %d/100\n", energy)

	if lines := profileLines(profile); len(lines) > 0 {
		fmt.Fprintf(&b, "\n## %s's Info\n", userName)
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}

	if formatted := FormatMemories(memories); formatted != "" {
		fmt.Fprintf(&b, "\n## What You Remember About %s\n", userName)
		b.WriteString(formatted)
	}

	return b.String()
}

// profileLines renders visible profile entries sorted by key.
func profileLines(profile map[string]string) []string {
	keys := make([]string, 0, len(profile))
	for k := range profile {
		if hiddenProfileKeys[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %s", k, profile[k]))
	}
	return lines
}

// FormatMemories groups memories by category in first-seen order.
//
// Output shape:
//
//	❤️ Preference:
//	  - Loves biryani ⭐
func FormatMemories(memories []*storage.Memory) string {
	if len(memories) == 0 {
		return ""
	}

	var order []storage.Category
	grouped := make(map[storage.Category][]*storage.Memory)
	for _, m := range memories {
		cat := m.Category
		if cat == "" {
			cat = storage.CategoryGeneral
		}
		if _, seen := grouped[cat]; !seen {
			order = append(order, cat)
		}
		grouped[cat] = append(grouped[cat], m)
	}

	var b strings.Builder
	for _, cat := range order {
		fmt.Fprintf(&b, "\n%s %s:\n", MarkerOf(cat), titleCase(string(cat)))
		for _, m := range grouped[cat] {
			star := ""
			if m.Importance >= ImportantThreshold {
				star = " ⭐"
			}
			fmt.Fprintf(&b, "  - %s%s\n", m.Content, star)
		}
	}
	return b.String()
}

// titleCase upper-cases the first rune only.
func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
