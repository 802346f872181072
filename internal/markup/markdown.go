// Package markup renders poem results as HTML for exported cards.
package markup

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// verse keeps every line break of the body. Raw HTML in the input is never passed through.
var verse = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// VerseToHTML converts a poem body to HTML paragraphs, one <br> per line break. Inline
// emphasis (**bold**, *italic*, ~~strike~~) is rendered; block syntax at line start is
// treated as text, so a line such as "- Mẹ ơi" stays a verse line instead of a list.
func VerseToHTML(body string) (string, error) {
	body = strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))
	if body == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := verse.Convert([]byte(escapeBlockMarkers(body)), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// escapeBlockMarkers backslash-escapes line starts that would open a heading, list, quote,
// rule or code block. Inline emphasis at line start, such as "*Mẹ ơi*", is left alone.
func escapeBlockMarkers(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if opensBlock(trimmed) {
			lines[i] = `\` + trimmed
			continue
		}
		// ordered list: digits followed by . or )
		j := 0
		for j < len(trimmed) && j < 9 && trimmed[j] >= '0' && trimmed[j] <= '9' {
			j++
		}
		if j > 0 && j < len(trimmed) && (trimmed[j] == '.' || trimmed[j] == ')') {
			lines[i] = trimmed[:j] + `\` + trimmed[j:]
			continue
		}
		lines[i] = trimmed
	}
	return strings.Join(lines, "\n")
}

func opensBlock(line string) bool {
	if line == "" {
		return false
	}
	switch c := line[0]; c {
	case '#', '>', '=':
		return true
	case '`':
		return strings.HasPrefix(line, "```")
	case '~':
		return strings.HasPrefix(line, "~~~")
	case '-', '+', '*', '_':
		if c != '_' && (len(line) == 1 || line[1] == ' ' || line[1] == '\t') {
			return true
		}
		return isRule(line, c)
	}
	return false
}

// isRule reports whether line is a thematic break made of c, or a run of dashes that
// would underline the previous line as a heading.
func isRule(line string, c byte) bool {
	if c == '+' {
		return false
	}
	n := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case c:
			n++
		case ' ', '\t':
		default:
			return false
		}
	}
	return n >= 3 || c == '-'
}
