package markup

import (
	"strings"
	"testing"
)

func TestVerseToHTML_KeepsLineBreaks(t *testing.T) {
	got, err := VerseToHTML("Bố là cây cao\nMẹ là bóng mát\n\nCon là chồi non")
	if err != nil {
		t.Fatal(err)
	}
	want := "<p>Bố là cây cao<br>\nMẹ là bóng mát</p>\n<p>Con là chồi non</p>\n"
	if got != want {
		t.Errorf("VerseToHTML() = %q, want %q", got, want)
	}
}

func TestVerseToHTML_Empty(t *testing.T) {
	got, err := VerseToHTML(" \r\n ")
	if err != nil || got != "" {
		t.Errorf("VerseToHTML(blank) = %q, %v", got, err)
	}
}

func TestVerseToHTML_InlineEmphasis(t *testing.T) {
	got, err := VerseToHTML("Mèo con **tinh nghịch**\nChạy *quanh* nhà")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "<strong>tinh nghịch</strong>") || !strings.Contains(got, "<em>quanh</em>") {
		t.Errorf("emphasis not rendered: %s", got)
	}
}

func TestVerseToHTML_EmphasisAtLineStart(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"*Mẹ ơi*", "<p><em>Mẹ ơi</em></p>\n"},
		{"_Bé_ ngoan", "<p><em>Bé</em> ngoan</p>\n"},
		{"**Ông trăng** tròn", "<p><strong>Ông trăng</strong> tròn</p>\n"},
		{"~~Mưa~~ tạnh rồi", "<p><del>Mưa</del> tạnh rồi</p>\n"},
		{"Gà gáy\n*Ò ó o*", "<p>Gà gáy<br>\n<em>Ò ó o</em></p>\n"},
	}
	for _, tt := range tests {
		got, err := VerseToHTML(tt.input)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("VerseToHTML(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestVerseToHTML_BlockSyntaxIsText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"dash", "- Mẹ ơi", "- Mẹ ơi"},
		{"heading", "# Trời mưa", "# Trời mưa"},
		{"ordered", "1. Một con vịt", "1. Một con vịt"},
		{"quote", "> Lời bà", "&gt; Lời bà"},
		{"indented", "    Gió thổi", "Gió thổi"},
		{"star list", "* Mẹ ơi", "* Mẹ ơi"},
		{"plus list", "+ Bố ơi", "+ Bố ơi"},
		{"bare dash", "-", "-"},
		{"star rule", "***", "***"},
		{"spaced rule", "- - -", "- - -"},
		{"underscore rule", "___", "___"},
		{"fence", "```", "```"},
		{"setext underline", "Mưa rơi\n--", "Mưa rơi<br>\n--"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VerseToHTML(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if want := "<p>" + tt.want + "</p>\n"; got != want {
				t.Errorf("VerseToHTML(%q) = %q, want %q", tt.input, got, want)
			}
		})
	}
}

func TestVerseToHTML_NoRawHTML(t *testing.T) {
	inputs := []string{
		"<script>alert(1)</script>",
		"Bé ngoan <img src=x onerror=alert(1)>",
		"<a href=\"javascript:alert(1)\">bấm</a>",
	}
	for _, in := range inputs {
		got, err := VerseToHTML(in)
		if err != nil {
			t.Fatal(err)
		}
		for _, bad := range []string{"<script", "<img", "onerror=", "javascript:"} {
			if strings.Contains(got, bad) {
				t.Errorf("VerseToHTML(%q) leaked %q: %s", in, bad, got)
			}
		}
	}
}
