package llm

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"google.golang.org/api/option"
	unifiedgenai "google.golang.org/genai"
)

// maxGeminiResponseLogBytes is the max length of a Gemini response body to log in full (to avoid huge logs).
const maxGeminiResponseLogBytes = 8192

// httpClientForEndpoint returns an http.Client that rewrites request URLs to the given base endpoint (e.g. http://host.docker.internal:31300/gemini).
func httpClientForEndpoint(baseEndpoint string) *http.Client {
	base, err := url.Parse(baseEndpoint)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", baseEndpoint).Msg("Invalid GEMINI_API_ENDPOINT, using default")
		return nil
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	return &http.Client{
		Transport: &endpointRoundTripper{base: base, next: http.DefaultTransport},
	}
}

// endpointRoundTripper rewrites request URLs to a custom base (scheme, host, path prefix).
type endpointRoundTripper struct {
	base *url.URL
	next http.RoundTripper
}

func (e *endpointRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	req2.URL.Scheme = e.base.Scheme
	req2.URL.Host = e.base.Host
	req2.URL.Path = path.Join(e.base.Path, strings.TrimPrefix(req.URL.Path, "/"))
	if req.URL.RawQuery != "" {
		req2.URL.RawQuery = req.URL.RawQuery
	}
	return e.next.RoundTrip(req2)
}

// logGeminiResponse logs Gemini response text, truncating if over maxGeminiResponseLogBytes.
func logGeminiResponse(caller, raw string) {
	if len(raw) <= maxGeminiResponseLogBytes {
		log.Info().Str("caller", caller).Str("gemini_response", raw).Msg("Gemini response")
		return
	}
	log.Info().
		Str("caller", caller).
		Str("gemini_response", raw[:maxGeminiResponseLogBytes]+"... [truncated]").
		Int("gemini_response_len", len(raw)).
		Msg("Gemini response")
}

// Client wraps the Gemini APIs used for one poem: text, illustration and narration.
// Each operation is a single remote call; nothing is retried.
type Client struct {
	modelText   string // poem text, e.g. gemini-3-flash-preview
	modelImage  string // illustration, e.g. gemini-2.5-flash-image
	modelTTS    string // narration, e.g. gemini-2.5-flash-preview-tts
	ttsVoice    string // prebuilt voice, e.g. Kore
	callTimeout time.Duration

	llmText       llms.Model           // langchaingo model, poem text when genaiClient is unavailable
	genaiClient   *genai.Client        // poem text with response schema, illustration with IMAGE modality
	unifiedClient *unifiedgenai.Client // unified genai SDK for TTS
}

// NewClient creates a new LLM client.
// apiEndpoint: optional Gemini API base URL; when set, all Gemini calls use this endpoint.
// callTimeout: per-call deadline; zero leaves calls bounded only by the caller's context.
func NewClient(apiKey, apiEndpoint, modelText, modelImage, modelTTS, ttsVoice string, callTimeout time.Duration) *Client {
	if modelText == "" {
		modelText = "gemini-3-flash-preview"
	}
	if modelImage == "" {
		modelImage = "gemini-2.5-flash-image"
	}
	if modelTTS == "" {
		modelTTS = "gemini-2.5-flash-preview-tts"
	}
	if ttsVoice == "" {
		ttsVoice = "Kore"
	}

	// Optional custom HTTP client for langchaingo when using a custom endpoint
	var langchaingoHTTPClient *http.Client
	if apiEndpoint != "" {
		langchaingoHTTPClient = httpClientForEndpoint(apiEndpoint)
	}

	textOpts := []googleai.Option{googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(modelText)}
	if langchaingoHTTPClient != nil {
		textOpts = append(textOpts, googleai.WithHTTPClient(langchaingoHTTPClient))
	}
	var llmText llms.Model
	if m, err := googleai.New(context.Background(), textOpts...); err != nil {
		log.Error().Err(err).Str("model", modelText).Msg("Failed to initialize langchaingo text model")
	} else {
		llmText = m
	}

	// genai client for structured poem JSON and strict IMAGE modality; requires API key
	var genaiClient *genai.Client
	if apiKey != "" {
		genaiOpts := []option.ClientOption{option.WithAPIKey(apiKey)}
		if apiEndpoint != "" {
			genaiOpts = append(genaiOpts, option.WithEndpoint(apiEndpoint))
		}
		var err error
		genaiClient, err = genai.NewClient(context.Background(), genaiOpts...)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize genai client")
		}
	}

	// Unified genai client for TTS with response_modalities: audio
	var unifiedClient *unifiedgenai.Client
	if apiKey != "" {
		unifiedCfg := &unifiedgenai.ClientConfig{APIKey: apiKey, Backend: unifiedgenai.BackendGeminiAPI}
		if apiEndpoint != "" {
			unifiedCfg.HTTPOptions = unifiedgenai.HTTPOptions{BaseURL: apiEndpoint}
		}
		var err error
		unifiedClient, err = unifiedgenai.NewClient(context.Background(), unifiedCfg)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize unified genai client for TTS")
		}
	}

	log.Info().
		Str("model_text", modelText).
		Str("model_image", modelImage).
		Str("model_tts", modelTTS).
		Str("tts_voice", ttsVoice).
		Str("api_endpoint", apiEndpoint).
		Dur("call_timeout", callTimeout).
		Bool("genai_client", genaiClient != nil).
		Bool("unified_tts", unifiedClient != nil).
		Msg("LLM client initialized")

	return &Client{
		modelText:     modelText,
		modelImage:    modelImage,
		modelTTS:      modelTTS,
		ttsVoice:      ttsVoice,
		callTimeout:   callTimeout,
		llmText:       llmText,
		genaiClient:   genaiClient,
		unifiedClient: unifiedClient,
	}
}

// Close releases the genai client connection.
func (c *Client) Close() error {
	if c.genaiClient != nil {
		return c.genaiClient.Close()
	}
	return nil
}

// callContext applies the configured per-call timeout.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
