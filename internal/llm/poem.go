package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
)

// DefaultPoemTitle is used when the model response carries no usable title.
const DefaultPoemTitle = "Bài thơ của bé"

// Poem is a generated poem. Degraded is set when the response could not be parsed and the
// raw text was used as the body.
type Poem struct {
	Title    string
	Body     string
	Degraded bool
	Model    string
}

// GeneratePoem sends the poem instruction and parses the {"title","content"} reply.
// A reply that is not valid JSON is not an error: it yields a degraded poem.
// Errors are *Error with KindTransport, KindEmptyResponse or KindUnavailable.
func (c *Client) GeneratePoem(ctx context.Context, instruction string) (*Poem, error) {
	log.Debug().
		Str("model", c.modelText).
		Int("instruction_length", len(instruction)).
		Msg("Generating poem")

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	raw, err := c.generatePoemText(ctx, instruction)
	if err != nil {
		return nil, err
	}
	logGeminiResponse("GeneratePoem", raw)

	if strings.TrimSpace(raw) == "" {
		return nil, &Error{Op: "GeneratePoem", Kind: KindEmptyResponse}
	}

	poem := ParsePoemResponse(raw)
	poem.Model = c.modelText
	if poem.Degraded {
		log.Warn().
			Str("model", c.modelText).
			Str("response_preview", preview(raw, 120)).
			Msg("Poem response was not the expected JSON, using raw text as body")
	}
	log.Info().
		Str("title", poem.Title).
		Int("body_length", len(poem.Body)).
		Bool("degraded", poem.Degraded).
		Msg("Poem generation complete")
	return poem, nil
}

// generatePoemText returns the raw model text. Uses genai with a response schema when the
// genai client is available; otherwise langchaingo with JSON MIME type (no schema).
func (c *Client) generatePoemText(ctx context.Context, instruction string) (string, error) {
	if c.genaiClient != nil {
		model := c.genaiClient.GenerativeModel(c.modelText)
		model.SetTemperature(0.9)
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = poemResponseSchema()

		resp, err := model.GenerateContent(ctx, genai.Text(instruction))
		if err != nil {
			return "", &Error{Op: "GeneratePoem", Kind: KindTransport, Err: err}
		}
		return extractText(resp), nil
	}

	if c.llmText != nil {
		resp, err := c.llmText.GenerateContent(ctx,
			[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, instruction)},
			llms.WithTemperature(0.9),
			llms.WithResponseMIMEType("application/json"),
		)
		if err != nil {
			return "", &Error{Op: "GeneratePoem", Kind: KindTransport, Err: err}
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		return resp.Choices[0].Content, nil
	}

	return "", &Error{Op: "GeneratePoem", Kind: KindUnavailable, Err: fmt.Errorf("no text model initialized")}
}

// extractText returns the concatenated text from the first candidate's parts.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

// poemResponseSchema returns the genai.Schema for {"title": "...", "content": "..."}.
func poemResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {
				Type:        genai.TypeString,
				Description: "Tên bài thơ",
			},
			"content": {
				Type:        genai.TypeString,
				Description: "Nội dung bài thơ, mỗi câu thơ trên một dòng (xuống dòng bằng \\n)",
			},
		},
		Required: []string{"title", "content"},
	}
}

// ParsePoemResponse turns a model reply into a Poem. Markdown code fences are stripped before
// decoding. When the reply is not a JSON object with content, the whole raw reply becomes the
// body under DefaultPoemTitle; stray formatting in that body is kept as-is.
func ParsePoemResponse(raw string) *Poem {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var result struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return &Poem{Title: DefaultPoemTitle, Body: raw, Degraded: true}
	}
	body := strings.TrimSpace(normalizeNewlines(result.Content))
	if body == "" {
		return &Poem{Title: DefaultPoemTitle, Body: raw, Degraded: true}
	}

	title := strings.TrimSpace(result.Title)
	if title == "" {
		title = DefaultPoemTitle
	}
	return &Poem{Title: title, Body: body}
}

// normalizeNewlines converts CRLF and literal "\n" sequences left by double-escaping into real line breaks.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, `\n`, "\n")
}
