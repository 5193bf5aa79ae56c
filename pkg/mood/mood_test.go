package mood_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moomina/companion-go/pkg/mood"
)

func TestDetermineMood(t *testing.T) {
	tests := []struct {
		name    string
		message string
		current mood.Mood
		want    mood.Mood
		delta   int
	}{
		{name: "affection", message: "I miss you so much", current: mood.Happy, want: mood.Affectionate, delta: 10},
		{name: "case insensitive", message: "LOVE YOU", current: mood.Tired, want: mood.Affectionate, delta: 10},
		{name: "concern", message: "work was so stressful, bad day", current: mood.Happy, want: mood.Concerned, delta: -5},
		{name: "excited", message: "guess what", current: mood.Happy, want: mood.Excited, delta: 15},
		{name: "playful", message: "lol", current: mood.Happy, want: mood.Playful, delta: 5},
		{name: "missing", message: "sorry, busy", current: mood.Happy, want: mood.Missing, delta: -10},
		{name: "greeting", message: "good morning", current: mood.Concerned, want: mood.Happy, delta: 5},
		{name: "jealous has no energy change", message: "went out with a girl from work", current: mood.Happy, want: mood.Jealous, delta: 0},
		{name: "no match keeps mood", message: "ok cool", current: mood.Playful, want: mood.Playful, delta: mood.IdleDecay},
		{name: "empty keeps mood", message: "", current: mood.Tired, want: mood.Tired, delta: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, delta := mood.DetermineMood(tt.message, tt.current, 50)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.delta, delta)
		})
	}
}

func TestDetermineMoodFirstRuleWins(t *testing.T) {
	// matches both the affection and the greeting rules
	got, delta := mood.DetermineMood("hey, I love you", mood.Happy, 50)
	assert.Equal(t, mood.Affectionate, got)
	assert.Equal(t, 10, delta)

	// matches concern ("tired") before playful ("lol")
	got, delta = mood.DetermineMood("so tired lol", mood.Happy, 50)
	assert.Equal(t, mood.Concerned, got)
	assert.Equal(t, -5, delta)
}

func TestMachineApplyClamps(t *testing.T) {
	m := mood.NewMachine(nil)

	next, energy := m.Apply("you're so hot", mood.Happy, 95)
	assert.Equal(t, mood.Seductive, next)
	assert.Equal(t, 100, energy)

	next, energy = m.Apply("ttyl", mood.Happy, 4)
	assert.Equal(t, mood.Missing, next)
	assert.Equal(t, 0, energy)

	next, energy = m.Apply("ok", mood.Excited, 0)
	assert.Equal(t, mood.Excited, next)
	assert.Equal(t, 0, energy)
}

func TestMachineCustomRules(t *testing.T) {
	m := mood.NewMachine([]mood.Rule{
		{Keywords: []string{"CRICKET"}, Mood: mood.Excited, EnergyDelta: 3},
	})

	tr := m.Determine("India won the cricket match", mood.Tired, 20)
	assert.True(t, tr.Matched)
	assert.Equal(t, mood.Excited, tr.Mood)
	assert.Equal(t, 3, tr.EnergyDelta)

	tr = m.Determine("I miss you", mood.Tired, 20)
	assert.False(t, tr.Matched)
	assert.Equal(t, mood.Tired, tr.Mood)
}

func TestClampEnergy(t *testing.T) {
	assert.Equal(t, 100, mood.ClampEnergy(105))
	assert.Equal(t, 0, mood.ClampEnergy(-5))
	assert.Equal(t, 50, mood.ClampEnergy(50))
}

func TestParseMood(t *testing.T) {
	for _, m := range mood.All() {
		parsed, err := mood.ParseMood(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
		assert.NotEmpty(t, mood.StyleOf(m).Emoji)
	}

	_, err := mood.ParseMood("Grumpy")
	assert.Error(t, err)
	assert.Equal(t, mood.StyleOf(mood.Affectionate), mood.StyleOf("Grumpy"))
}
