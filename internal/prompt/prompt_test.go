package prompt

import (
	"strings"
	"testing"

	"github.com/snappy-loop/poems/internal/models"
)

func TestPoem(t *testing.T) {
	tests := []struct {
		name        string
		req         models.GenerationRequest
		mustContain []string
		mustNot     []string
	}{
		{
			name:        "theme and age",
			req:         models.GenerationRequest{Theme: "gia đình", AgeGroup: models.Age3To4},
			mustContain: []string{"3-4 tuổi", "Chủ đề: gia đình.", "4-8 câu", `"title"`, `"content"`, `\n`},
			mustNot:     []string{"Ý tưởng bổ sung"},
		},
		{
			name:        "idea spliced",
			req:         models.GenerationRequest{Theme: "trường học", AgeGroup: models.Age5To6, CustomIdea: "Bé đi học lần đầu"},
			mustContain: []string{"5-6 tuổi", "Ý tưởng bổ sung", "Bé đi học lần đầu"},
		},
		{
			name:    "blank idea ignored",
			req:     models.GenerationRequest{Theme: "động vật", AgeGroup: models.Age4To5, CustomIdea: "   "},
			mustNot: []string{"Ý tưởng bổ sung"},
		},
		{
			name:        "malformed theme passed through",
			req:         models.GenerationRequest{Theme: `"}<script>`, AgeGroup: models.Age4To5},
			mustContain: []string{`Chủ đề: "}<script>.`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Poem(tt.req)
			for _, s := range tt.mustContain {
				if !strings.Contains(got, s) {
					t.Errorf("Poem() missing %q in:\n%s", s, got)
				}
			}
			for _, s := range tt.mustNot {
				if strings.Contains(got, s) {
					t.Errorf("Poem() unexpectedly contains %q", s)
				}
			}
		})
	}
}

func TestPoem_Deterministic(t *testing.T) {
	req := models.GenerationRequest{Theme: "thời tiết", AgeGroup: models.Age4To5, CustomIdea: "mưa"}
	if Poem(req) != Poem(req) {
		t.Error("Poem() must be deterministic")
	}
}

func TestIllustration(t *testing.T) {
	body := "Mèo con ngủ trưa\nNắng vàng đong đưa"
	got := Illustration(body)
	for _, s := range []string{"cartoon", "bright", "square", "Do not include any text", body} {
		if !strings.Contains(got, s) {
			t.Errorf("Illustration() missing %q", s)
		}
	}
}

func TestNarration(t *testing.T) {
	body := "Con cò bay lả\nBay la"
	got := Narration(body)
	if !strings.HasPrefix(got, NarrationPrefix) {
		t.Errorf("Narration() should start with the narration prefix, got %q", got)
	}
	if !strings.HasSuffix(got, body) {
		t.Errorf("Narration() should end with the body, got %q", got)
	}
}
