package chat

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"RoutineBuilder/internal/session"
)

// Labels printed in front of rendered messages.
const (
	UserLabel      = "You:"
	AssistantLabel = "Advisor:"
)

// Render writes the visible conversation. System messages are never written.
func Render(w io.Writer, messages []session.Message) error {
	for _, m := range Visible(messages) {
		var label string
		switch m.Role {
		case session.RoleUser:
			label = UserLabel
		case session.RoleAssistant:
			label = AssistantLabel
		default:
			label = m.Role + ":"
		}
		if _, err := fmt.Fprintf(w, "%s %s\n\n", label, m.Content); err != nil {
			return err
		}
	}
	return nil
}

// RenderString is Render into a string.
func RenderString(messages []session.Message) string {
	var b strings.Builder
	_ = Render(&b, messages)
	return b.String()
}

var (
	boldStars       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderscores = regexp.MustCompile(`__(.+?)__`)
	heading         = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]+(.+?)[ \t]*#*[ \t]*$`)
	bullet          = regexp.MustCompile(`(?m)^([ \t]*)[*-][ \t]+`)
	blankRuns       = regexp.MustCompile(`\n{3,}`)
	trailingSpace   = regexp.MustCompile(`(?m)[ \t]+$`)
)

// FormatRoutine turns the markdown the model tends to produce into plain terminal text.
func FormatRoutine(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = heading.ReplaceAllStringFunc(text, func(line string) string {
		m := heading.FindStringSubmatch(line)
		return strings.ToUpper(m[1])
	})
	text = boldStars.ReplaceAllString(text, "$1")
	text = boldUnderscores.ReplaceAllString(text, "$1")
	text = bullet.ReplaceAllString(text, "${1}• ")
	text = trailingSpace.ReplaceAllString(text, "")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
