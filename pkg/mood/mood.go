// Package mood implements the companion's mood and energy state machine.
//
// The machine is a fixed, ordered list of keyword rules. The first rule whose
// keywords appear in the message decides the next mood and the energy delta;
// when none match the mood is kept and energy decays by one.
package mood

import (
	"fmt"
	"strings"
)

// Mood is one of the closed set of companion moods.
type Mood string

const (
	Affectionate Mood = "Affectionate"
	Happy        Mood = "Happy"
	Concerned    Mood = "Concerned"
	Tired        Mood = "Tired"
	Excited      Mood = "Excited"
	Playful      Mood = "Playful"
	Jealous      Mood = "Jealous"
	Missing      Mood = "Missing"
	Seductive    Mood = "Seductive"
)

// Style describes how a mood should color the companion's replies.
// It is only consumed by prompt composition.
type Style struct {
	Emoji string
	Tone  string
}

var styles = map[Mood]Style{
	Affectionate: {Emoji: "🥺", Tone: "extra clingy, soft, uses pet names a lot"},
	Happy:        {Emoji: "😊", Tone: "bubbly, excited, uses haha and lol naturally"},
	Concerned:    {Emoji: "🥺", Tone: "worried, asks short follow-ups, wants to help"},
	Tired:        {Emoji: "😴", Tone: "sleepy one-word replies, lazy texting"},
	Excited:      {Emoji: "😭", Tone: "ALL CAPS sometimes, chaotic energy"},
	Playful:      {Emoji: "😏", Tone: "teasing, sarcastic, flirty"},
	Jealous:      {Emoji: "😤", Tone: "passive aggressive, short replies"},
	Missing:      {Emoji: "🥺", Tone: "clingy, soft and a little sad"},
	Seductive:    {Emoji: "💋", Tone: "warm, bold, flirty, \"come here\" energy"},
}

// All returns every mood in declaration order.
func All() []Mood {
	return []Mood{Affectionate, Happy, Concerned, Tired, Excited, Playful, Jealous, Missing, Seductive}
}

// StyleOf returns the style of m. Unknown moods get the Affectionate style.
func StyleOf(m Mood) Style {
	if s, ok := styles[m]; ok {
		return s
	}
	return styles[Affectionate]
}

// Valid reports whether m belongs to the enumeration.
func (m Mood) Valid() bool {
	_, ok := styles[m]
	return ok
}

// ParseMood converts a stored label into a Mood.
func ParseMood(label string) (Mood, error) {
	m := Mood(label)
	if !m.Valid() {
		return "", fmt.Errorf("unknown mood %q", label)
	}
	return m, nil
}

// Energy bounds.
const (
	MinEnergy = 0
	MaxEnergy = 100

	// IdleDecay is applied when no rule matches.
	IdleDecay = -1
)

// ClampEnergy clamps energy into [0,100].
func ClampEnergy(energy int) int {
	if energy < MinEnergy {
		return MinEnergy
	}
	if energy > MaxEnergy {
		return MaxEnergy
	}
	return energy
}

// Rule maps a keyword set to a mood and an energy delta.
type Rule struct {
	Keywords    []string
	Mood        Mood
	EnergyDelta int
}

// Matches reports whether any keyword is a substring of the lowercased message.
func (r Rule) Matches(lowered string) bool {
	for _, k := range r.Keywords {
		if strings.Contains(lowered, k) {
			return true
		}
	}
	return false
}

// DefaultRules is the priority-ordered rule list. Order matters: a message
// can match several rules and only the first one counts.
var DefaultRules = []Rule{
	{Keywords: []string{"miss you", "love you", "thinking about you"}, Mood: Affectionate, EnergyDelta: 10},
	{Keywords: []string{"hot", "sexy", "kiss", "naughty", "bed", "want you"}, Mood: Seductive, EnergyDelta: 20},
	{Keywords: []string{"sad", "stressed", "tired", "bad day", "upset"}, Mood: Concerned, EnergyDelta: -5},
	{Keywords: []string{"guess what", "amazing", "great news", "awesome"}, Mood: Excited, EnergyDelta: 15},
	{Keywords: []string{"haha", "lol", "funny", "joke"}, Mood: Playful, EnergyDelta: 5},
	{Keywords: []string{"she", "her ", "girl", "female friend"}, Mood: Jealous, EnergyDelta: 0},
	{Keywords: []string{"sorry", "busy", "later", "ttyl"}, Mood: Missing, EnergyDelta: -10},
	{Keywords: []string{"good morning", "hi", "hello", "hey"}, Mood: Happy, EnergyDelta: 5},
}

// Transition is the outcome of classifying one message.
type Transition struct {
	Mood Mood

	// EnergyDelta is unclamped; the caller clamps after applying it.
	EnergyDelta int

	// Matched is false when the idle decay was applied.
	Matched bool
}

// Machine evaluates an ordered rule list.
type Machine struct {
	rules []Rule
}

// NewMachine creates a machine over rules. A nil slice uses DefaultRules.
func NewMachine(rules []Rule) *Machine {
	if rules == nil {
		rules = DefaultRules
	}
	lowered := make([]Rule, len(rules))
	for i, r := range rules {
		kws := make([]string, len(r.Keywords))
		for j, k := range r.Keywords {
			kws[j] = strings.ToLower(k)
		}
		lowered[i] = Rule{Keywords: kws, Mood: r.Mood, EnergyDelta: r.EnergyDelta}
	}
	return &Machine{rules: lowered}
}

// Determine classifies message given the current mood. Energy does not
// influence the outcome; it is accepted so callers pass the whole state.
func (m *Machine) Determine(message string, current Mood, energy int) Transition {
	lowered := strings.ToLower(message)
	for _, r := range m.rules {
		if r.Matches(lowered) {
			return Transition{Mood: r.Mood, EnergyDelta: r.EnergyDelta, Matched: true}
		}
	}
	return Transition{Mood: current, EnergyDelta: IdleDecay}
}

var defaultMachine = NewMachine(nil)

// DetermineMood classifies message with DefaultRules.
//
// Example:
//
//	next, delta := DetermineMood("I miss you so much", Happy, 50) // Affectionate, +10
func DetermineMood(message string, current Mood, energy int) (Mood, int) {
	t := defaultMachine.Determine(message, current, energy)
	return t.Mood, t.EnergyDelta
}

// Apply runs Determine and clamps the resulting energy.
func (m *Machine) Apply(message string, current Mood, energy int) (Mood, int) {
	t := m.Determine(message, current, energy)
	return t.Mood, ClampEnergy(energy + t.EnergyDelta)
}
