package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	unifiedgenai "google.golang.org/genai"
)

// Audio represents synthesized narration
type Audio struct {
	Data     []byte
	MimeType string // "audio/wav" after PCM conversion
	Model    string
}

// DataURI returns the audio as a data: URI.
func (a *Audio) DataURI() string {
	return dataURI(a.MimeType, a.Data)
}

// SynthesizeSpeech reads the instruction aloud using the unified genai SDK with
// response_modalities: ["audio"] and a prebuilt voice.
// Errors are *Error with KindTransport, KindNoMedia or KindUnavailable.
func (c *Client) SynthesizeSpeech(ctx context.Context, instruction string) (*Audio, error) {
	log.Debug().
		Str("model", c.modelTTS).
		Str("voice", c.ttsVoice).
		Int("instruction_length", len(instruction)).
		Msg("Synthesizing speech")

	if c.unifiedClient == nil {
		return nil, &Error{Op: "SynthesizeSpeech", Kind: KindUnavailable, Err: fmt.Errorf("unified genai client not initialized")}
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	contents := []*unifiedgenai.Content{
		{
			Role:  "user",
			Parts: []*unifiedgenai.Part{unifiedgenai.NewPartFromText(instruction)},
		},
	}
	config := &unifiedgenai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &unifiedgenai.SpeechConfig{
			VoiceConfig: &unifiedgenai.VoiceConfig{
				PrebuiltVoiceConfig: &unifiedgenai.PrebuiltVoiceConfig{
					VoiceName: c.ttsVoice,
				},
			},
		},
	}

	// Collect audio data from streaming response
	var audioBuffer bytes.Buffer
	var lastMimeType string

	for resp, err := range c.unifiedClient.Models.GenerateContentStream(ctx, c.modelTTS, contents, config) {
		if err != nil {
			return nil, &Error{Op: "SynthesizeSpeech", Kind: KindTransport, Err: err}
		}
		if len(resp.Candidates) == 0 {
			continue
		}
		cand := resp.Candidates[0]
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				audioBuffer.Write(part.InlineData.Data)
				if part.InlineData.MIMEType != "" {
					lastMimeType = part.InlineData.MIMEType
				}
			}
		}
	}

	if audioBuffer.Len() == 0 {
		return nil, &Error{Op: "SynthesizeSpeech", Kind: KindNoMedia, Err: fmt.Errorf("TTS returned no audio data")}
	}

	audioBytes, outMime := toPlayable(audioBuffer.Bytes(), lastMimeType)

	log.Info().
		Str("caller", "SynthesizeSpeech").
		Int("audio_size_bytes", len(audioBytes)).
		Str("voice", c.ttsVoice).
		Str("mime_type", outMime).
		Msg("TTS audio generated")

	return &Audio{Data: audioBytes, MimeType: outMime, Model: c.modelTTS}, nil
}

// toPlayable wraps raw PCM (audio/L16;...) into WAV; other formats pass through.
// An empty MIME type is treated as raw 16-bit PCM at 24kHz, which is what the TTS models emit.
func toPlayable(data []byte, mimeType string) ([]byte, string) {
	if mimeType == "" || strings.HasPrefix(mimeType, "audio/L") || strings.HasPrefix(mimeType, "audio/pcm") {
		log.Debug().Str("mime_type", mimeType).Msg("Converting raw PCM to WAV")
		return convertToWAV(data, mimeType), "audio/wav"
	}
	return data, mimeType
}

// convertToWAV converts raw little-endian mono PCM audio data to WAV format.
func convertToWAV(audioData []byte, mimeType string) []byte {
	params := parseAudioMimeType(mimeType)
	bitsPerSample := params.bitsPerSample
	sampleRate := params.rate
	numChannels := 1
	dataSize := len(audioData)
	bytesPerSample := bitsPerSample / 8
	blockAlign := numChannels * bytesPerSample
	byteRate := sampleRate * blockAlign

	header := new(bytes.Buffer)
	header.WriteString("RIFF")
	binary.Write(header, binary.LittleEndian, uint32(36+dataSize))
	header.WriteString("WAVE")
	header.WriteString("fmt ")
	binary.Write(header, binary.LittleEndian, uint32(16))
	binary.Write(header, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(header, binary.LittleEndian, uint16(numChannels))
	binary.Write(header, binary.LittleEndian, uint32(sampleRate))
	binary.Write(header, binary.LittleEndian, uint32(byteRate))
	binary.Write(header, binary.LittleEndian, uint16(blockAlign))
	binary.Write(header, binary.LittleEndian, uint16(bitsPerSample))
	header.WriteString("data")
	binary.Write(header, binary.LittleEndian, uint32(dataSize))

	return append(header.Bytes(), audioData...)
}

type audioParams struct {
	bitsPerSample int
	rate          int
}

var pcmBitsRe = regexp.MustCompile(`audio/L(\d+)`)

// parseAudioMimeType parses bits per sample and rate from an audio MIME type.
func parseAudioMimeType(mimeType string) audioParams {
	params := audioParams{bitsPerSample: 16, rate: 24000}

	for _, part := range strings.Split(mimeType, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(strings.ToLower(part), "rate=") {
			if rate, err := strconv.Atoi(part[len("rate="):]); err == nil && rate > 0 {
				params.rate = rate
			}
		} else if m := pcmBitsRe.FindStringSubmatch(part); len(m) > 1 {
			if bits, err := strconv.Atoi(m[1]); err == nil && bits > 0 && bits%8 == 0 {
				params.bitsPerSample = bits
			}
		}
	}
	return params
}

func dataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
