package llm

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
)

// Image represents a generated illustration
type Image struct {
	Data     []byte
	MimeType string // e.g. "image/png", "image/jpeg" (from Gemini blob.MIMEType)
	Model    string
}

// DataURI returns the image as a data: URI.
func (i *Image) DataURI() string {
	return dataURI(i.MimeType, i.Data)
}

// GenerateImage generates an illustration with strict IMAGE modality.
// Errors are *Error with KindTransport, KindNoMedia or KindUnavailable.
func (c *Client) GenerateImage(ctx context.Context, instruction string) (*Image, error) {
	log.Debug().
		Str("prompt", preview(instruction, 50)).
		Msg("Generating image")

	if c.genaiClient == nil {
		return nil, &Error{Op: "GenerateImage", Kind: KindUnavailable, Err: fmt.Errorf("genai client not initialized")}
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	model := c.genaiClient.GenerativeModel(c.modelImage)
	// Strict modality: request native image output
	setResponseModality(model, []string{"TEXT", "IMAGE"})

	resp, err := model.GenerateContent(ctx, genai.Text(instruction))
	if err != nil {
		log.Error().Err(err).
			Str("model", c.modelImage).
			Str("prompt_preview", preview(instruction, 80)).
			Msg("Genai image generation failed")
		return nil, &Error{Op: "GenerateImage", Kind: KindTransport, Err: err}
	}

	logGeminiResponse("GenerateImage", fmt.Sprintf("candidates=%d", len(resp.Candidates)))
	for i, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for j, part := range cand.Content.Parts {
			blob, ok := part.(genai.Blob)
			if !ok || len(blob.Data) == 0 {
				continue
			}
			mimeType := blob.MIMEType
			if mimeType == "" {
				mimeType = "image/png"
			}
			log.Info().
				Str("caller", "GenerateImage").
				Int("image_size_bytes", len(blob.Data)).
				Str("mime_type", mimeType).
				Int("candidate", i).
				Int("part", j).
				Msg("Gemini response (image blob)")
			return &Image{Data: blob.Data, MimeType: mimeType, Model: c.modelImage}, nil
		}
	}

	log.Warn().
		Str("model", c.modelImage).
		Int("candidates", len(resp.Candidates)).
		Msg("No image blob in Gemini response")
	return nil, &Error{Op: "GenerateImage", Kind: KindNoMedia, Err: fmt.Errorf("no image blob in response")}
}

// setResponseModality sets model.ResponseModality when the genai SDK exposes it.
// Uses reflection so it no-ops on SDK versions that don't have the field.
func setResponseModality(model *genai.GenerativeModel, modalities []string) {
	v := reflect.ValueOf(model).Elem()
	f := v.FieldByName("ResponseModality")
	if !f.IsValid() || !f.CanSet() {
		log.Debug().Msg("ResponseModality not available on GenerativeModel")
		return
	}
	if f.Kind() == reflect.Slice && f.Type().Elem().Kind() == reflect.String {
		f.Set(reflect.ValueOf(modalities))
		log.Debug().Strs("modality", modalities).Msg("Set ResponseModality on GenerativeModel")
	}
}
