package core

import (
	"regexp"
	"strings"

	"github.com/moomina/companion-go/pkg/prompt"
)

// photoDirectiveRe matches [SEND_PHOTO: description] with any tag casing.
var photoDirectiveRe = regexp.MustCompile(`(?i)\[SEND_PHOTO:\s*(.*?)\]`)

// Reply is a model reply split into deliverable parts.
type Reply struct {
	// Text is the parts joined with a space, directive removed.
	Text string

	// Parts are the non-empty burst segments in order.
	Parts []string

	// HasPhoto is true when a photo directive was found.
	HasPhoto bool

	// PhotoRequest is the directive payload.
	PhotoRequest string
}

// ParseReply extracts the first photo directive, then splits what remains on
// the burst separator. Only the first directive is honored; later ones stay in
// the text. A separator inside the directive is part of its payload.
func ParseReply(raw string) Reply {
	var r Reply

	if loc := photoDirectiveRe.FindStringSubmatchIndex(raw); loc != nil {
		r.HasPhoto = true
		r.PhotoRequest = strings.Join(strings.Fields(
			strings.ReplaceAll(raw[loc[2]:loc[3]], prompt.BurstSeparator, " ")), " ")

		left := strings.TrimRight(raw[:loc[0]], " \t")
		right := strings.TrimLeft(raw[loc[1]:], " \t")
		raw = left + " " + right
	}

	r.Parts = splitBursts(raw)
	r.Text = strings.Join(r.Parts, " ")
	return r
}

func splitBursts(raw string) []string {
	segments := strings.Split(raw, prompt.BurstSeparator)
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}
