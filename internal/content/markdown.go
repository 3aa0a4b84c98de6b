package content

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// Format is the input format of a text element.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

var markdown = goldmark.New()

// RenderMarkdown converts markdown to HTML. The result still has to be sanitized.
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}
