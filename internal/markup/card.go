package markup

import (
	"fmt"
	"html/template"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
	"github.com/snappy-loop/poems/internal/models"
)

// Card is the template data of an exported poem card.
type Card struct {
	Title        string
	Verse        template.HTML
	Illustration template.URL
	Narration    template.URL
}

// NewCard renders r for the card template. Media URIs other than inline data or http(s)
// links are dropped.
func NewCard(r models.PoemResult) (Card, error) {
	v, err := VerseToHTML(r.Body)
	if err != nil {
		return Card{}, fmt.Errorf("failed to render poem body: %w", err)
	}
	return Card{
		Title:        r.Title,
		Verse:        template.HTML(v), // goldmark output, raw HTML omitted
		Illustration: mediaURL(r.IllustrationURI, "image/"),
		Narration:    mediaURL(r.NarrationURI, "audio/"),
	}, nil
}

func mediaURL(uri, dataPrefix string) template.URL {
	switch {
	case uri == "":
		return ""
	case strings.HasPrefix(uri, "data:"+dataPrefix) && strings.Contains(uri, ";base64,"):
		return template.URL(uri)
	case strings.HasPrefix(uri, "https://"), strings.HasPrefix(uri, "http://"):
		return template.URL(uri)
	}
	return ""
}

// Filename derives the download name of a card from the poem title: path separators,
// reserved and control characters become spaces, whitespace collapses to single dashes.
// Vietnamese letters are kept.
func Filename(title, ext string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r), strings.ContainsRune(`/\:*?"<>|`, r):
			return ' '
		}
		return r
	}, title)
	name := strings.Join(strings.Fields(cleaned), "-")
	name = strings.Trim(truncateGraphemes(strings.Trim(name, ".-"), 80), ".-")
	if name == "" {
		name = "bai-tho"
	}
	return name + ext
}

// truncateGraphemes keeps at most n user-perceived characters of s.
func truncateGraphemes(s string, n int) string {
	g := uniseg.NewGraphemes(s)
	end := 0
	for i := 0; i < n && g.Next(); i++ {
		_, end = g.Positions()
	}
	return s[:end]
}
