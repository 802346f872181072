// Package prompt builds the instructions sent to the generation provider.
// Every function is pure: same input, same output, no I/O.
package prompt

import (
	"fmt"
	"strings"

	"github.com/snappy-loop/poems/internal/models"
)

// NarrationPrefix opens every narration instruction.
const NarrationPrefix = "Đọc diễn cảm bài thơ sau cho trẻ em nghe bằng tiếng Việt, giọng ấm áp, nhẹ nhàng, chậm rãi như cô giáo mầm non: "

// Poem returns the poem instruction for a request. Theme and idea are spliced verbatim.
func Poem(req models.GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hãy sáng tác một bài thơ ngắn cho trẻ mầm non độ tuổi %s tuổi.\n", req.AgeGroup)
	fmt.Fprintf(&b, "Chủ đề: %s.\n", req.Theme)
	if req.HasIdea() {
		// supplementary only: theme stays the main topic
		fmt.Fprintf(&b, "Ý tưởng bổ sung từ giáo viên (dùng để gợi ý thêm, chủ đề vẫn là chính): %s\n", req.CustomIdea)
	}
	b.WriteString(`Yêu cầu:
- Thơ ngắn (khoảng 4-8 câu).
- Ngôn ngữ đơn giản, trong sáng, dễ nhớ, vần điệu.
- Nội dung giáo dục nhẹ nhàng hoặc vui tươi.
- Trả về định dạng JSON với cấu trúc: {"title": "Tên bài thơ", "content": "Nội dung bài thơ (dùng xuống dòng \n)"}`)
	return b.String()
}

// Illustration returns the image instruction for a generated poem body.
func Illustration(body string) string {
	return fmt.Sprintf(`A cute, friendly cartoon illustration for a children's poem, suitable for preschoolers.
Style: soft rounded shapes, bright cheerful colors, simple background, storybook look.
Aspect ratio: square (1:1).
Do not include any text, letters, numbers or words in the image.
The poem (in Vietnamese) to illustrate:
%s`, body)
}

// Narration returns the speech instruction for a generated poem body.
func Narration(body string) string {
	return NarrationPrefix + body
}
