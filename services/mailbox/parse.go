package mailbox

import (
	"io"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// extractPlainText parses a raw RFC 5322 message and returns its text body.
// The plain-text part wins; HTML-only messages are stripped down to text.
func extractPlainText(r io.Reader) (string, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse message")
	}

	if text := strings.TrimSpace(env.Text); text != "" {
		return text, nil
	}
	if env.HTML != "" {
		return stripHTML(env.HTML), nil
	}
	return "", nil
}

func stripHTML(html string) string {
	text := htmlTagRegex.ReplaceAllString(html, " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", `"`)

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, strings.Join(strings.Fields(trimmed), " "))
		}
	}
	return strings.Join(lines, "\n")
}
