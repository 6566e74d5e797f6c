// Package titan renders icon prompts to images through the hosted Titan
// image model. Unlike the reasoning capabilities there is no identity
// substitute for an image, so every failure here is a hard error.
package titan

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"uniicon/internal/infra"
)

// ErrMissingConfig indicates the client has no endpoint or credentials.
var ErrMissingConfig = errors.New("titan: model endpoint and api key are required")

// MaxPromptLength is the model's hard cap on prompt characters.
const MaxPromptLength = 512

// Guidance scales: standard icons use the lower value, emoji-style requests
// the higher one for stronger expression detail.
const (
	GuidanceStandard   = 7.5
	GuidanceExpressive = 8.5
)

// DefaultNegativePrompt keeps text, branding, and clutter out of icons.
const DefaultNegativePrompt = "blurry, low quality, distorted, watermark, signature, text, words, letters, copyright, logo, brand name, cluttered, messy, chaotic, dark background"

// EmojiNegativePrompt extends the default for emoji-style renders.
const EmojiNegativePrompt = DefaultNegativePrompt + ", realistic human face, photographic, multiple faces, scary, horror"

// Options configures the Titan image client.
type Options struct {
	BaseURL        string
	APIKey         string
	ModelID        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	// Rand supplies seeds; nil means math/rand global. Tests inject a fixed
	// source.
	Rand *rand.Rand
}

// Client performs HTTP calls to the Titan image generation endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	modelID    string
	httpClient *http.Client
	logger     *infra.Logger
	rand       *rand.Rand
}

// GenerateRequest captures one synthesis call.
type GenerateRequest struct {
	Prompt         string
	NegativePrompt string
	GuidanceScale  float64
}

type modelRequest struct {
	TaskType          string            `json:"taskType"`
	TextToImageParams textToImageParams `json:"textToImageParams"`
	ImageGenConfig    imageGenConfig    `json:"imageGenerationConfig"`
}

type textToImageParams struct {
	Text         string `json:"text"`
	NegativeText string `json:"negativeText,omitempty"`
}

type imageGenConfig struct {
	NumberOfImages int     `json:"numberOfImages"`
	Height         int     `json:"height"`
	Width          int     `json:"width"`
	CfgScale       float64 `json:"cfgScale"`
	Seed           int     `json:"seed"`
}

type modelResponse struct {
	Images []string `json:"images"`
	Error  string   `json:"error,omitempty"`
}

// NewClient constructs a Titan client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	modelID := strings.TrimSpace(opts.ModelID)
	if modelID == "" {
		modelID = "amazon.titan-image-generator-v1"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		apiKey:     strings.TrimSpace(opts.APIKey),
		modelID:    modelID,
		httpClient: httpClient,
		logger:     logger,
		rand:       opts.Rand,
	}, nil
}

// Configured reports whether the client can perform remote calls.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// TruncatePrompt enforces the model's prompt cap, replacing the tail with an
// ellipsis. Rune-safe: a multi-byte rune at the boundary is dropped whole.
func TruncatePrompt(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= MaxPromptLength {
		return prompt
	}
	return string(runes[:MaxPromptLength-3]) + "..."
}

func (c *Client) seed() int {
	if c.rand != nil {
		return c.rand.Intn(1000000)
	}
	return rand.Intn(1000000)
}

// Generate renders one 1024x1024 image and returns its decoded bytes.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrMissingConfig
	}
	prompt := TruncatePrompt(strings.TrimSpace(req.Prompt))
	if prompt == "" {
		return nil, errors.New("titan: prompt is required")
	}
	negative := req.NegativePrompt
	if negative == "" {
		negative = DefaultNegativePrompt
	}
	guidance := req.GuidanceScale
	if guidance == 0 {
		guidance = GuidanceStandard
	}

	payload := modelRequest{
		TaskType: "TEXT_IMAGE",
		TextToImageParams: textToImageParams{
			Text:         prompt,
			NegativeText: negative,
		},
		ImageGenConfig: imageGenConfig{
			NumberOfImages: 1,
			Height:         1024,
			Width:          1024,
			CfgScale:       guidance,
			Seed:           c.seed(),
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("titan: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/model/%s/invoke", c.baseURL, c.modelID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("titan: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("titan: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("titan: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("titan: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded modelResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("titan: decode response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("titan: %s", decoded.Error)
	}
	if len(decoded.Images) == 0 {
		return nil, errors.New("titan: no images generated")
	}
	image, err := base64.StdEncoding.DecodeString(decoded.Images[0])
	if err != nil {
		return nil, fmt.Errorf("titan: decode image: %w", err)
	}

	c.logger.Debug().
		Str("model", c.modelID).
		Int("prompt_chars", len(prompt)).
		Int("image_bytes", len(image)).
		Msg("titan: generated image")
	return image, nil
}
