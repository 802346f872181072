package storage

import (
	"testing"

	"github.com/google/uuid"
)

func TestPublicURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"", ""},
		{"http://localhost:9000/poem-cards", "http://localhost:9000/poem-cards/cards/a.html"},
		{"http://localhost:9000/poem-cards/", "http://localhost:9000/poem-cards/cards/a.html"},
	}
	for _, tt := range tests {
		c := &Client{publicURL: tt.base}
		if got := c.PublicURL("cards/a.html"); got != tt.want {
			t.Errorf("PublicURL with base %q = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestCardKey(t *testing.T) {
	sid := uuid.MustParse("6f1c1c7e-8a43-4b0e-9d3a-0f7c2b8e5a11")

	got := CardKey(sid, 3, "bai-tho.html")
	want := "cards/6f1c1c7e-8a43-4b0e-9d3a-0f7c2b8e5a11/3/bai-tho.html"
	if got != want {
		t.Errorf("CardKey = %q, want %q", got, want)
	}

	// Path components in the filename never escape the card folder.
	got = CardKey(sid, 3, "../../etc/passwd")
	want = "cards/6f1c1c7e-8a43-4b0e-9d3a-0f7c2b8e5a11/3/passwd"
	if got != want {
		t.Errorf("CardKey = %q, want %q", got, want)
	}
}
