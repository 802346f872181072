package models

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
)

// AgeGroup is one of the fixed age brackets.
type AgeGroup string

const (
	Age3To4 AgeGroup = "3-4"
	Age4To5 AgeGroup = "4-5"
	Age5To6 AgeGroup = "5-6"
)

// Theme is a selectable poem topic. ID is what goes into the prompt.
type Theme struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// AgeOption is a selectable age bracket with its display label.
type AgeOption struct {
	ID    AgeGroup `json:"id"`
	Label string   `json:"label"`
}

// Catalog lists everything the form offers.
type Catalog struct {
	Themes []Theme     `json:"themes"`
	Ages   []AgeOption `json:"ages"`
}

var themes = []Theme{
	{ID: "gia đình", Label: "Gia đình"},
	{ID: "trường học", Label: "Trường lớp"},
	{ID: "động vật", Label: "Động vật"},
	{ID: "thiên nhiên", Label: "Thiên nhiên"},
	{ID: "đồ vật", Label: "Đồ vật"},
	{ID: "thời tiết", Label: "Thời tiết"},
}

var ages = []AgeOption{
	{ID: Age3To4, Label: "3-4 tuổi"},
	{ID: Age4To5, Label: "4-5 tuổi"},
	{ID: Age5To6, Label: "5-6 tuổi"},
}

// DefaultCatalog returns a copy of the theme and age vocabulary.
func DefaultCatalog() Catalog {
	return Catalog{
		Themes: append([]Theme(nil), themes...),
		Ages:   append([]AgeOption(nil), ages...),
	}
}

// IsTheme reports whether id is a known theme id.
func IsTheme(id string) bool {
	for _, t := range themes {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Valid reports whether a is one of the fixed brackets.
func (a AgeGroup) Valid() bool {
	for _, o := range ages {
		if o.ID == a {
			return true
		}
	}
	return false
}

// HasIdea reports whether the request carries a non-blank custom idea.
func (r GenerationRequest) HasIdea() bool {
	return strings.TrimSpace(r.CustomIdea) != ""
}

// Validate checks the request against the catalog. The idea length is counted in
// user-perceived characters, so decomposed Vietnamese diacritics count once.
// maxIdeaChars <= 0 disables the length check.
func (r GenerationRequest) Validate(maxIdeaChars int) error {
	if !IsTheme(r.Theme) {
		return fmt.Errorf("invalid theme %q", r.Theme)
	}
	if !r.AgeGroup.Valid() {
		return fmt.Errorf("invalid age_group %q: must be 3-4, 4-5, or 5-6", r.AgeGroup)
	}
	if maxIdeaChars > 0 && uniseg.GraphemeClusterCount(r.CustomIdea) > maxIdeaChars {
		return fmt.Errorf("custom_idea exceeds maximum length of %d characters", maxIdeaChars)
	}
	return nil
}
