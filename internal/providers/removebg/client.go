// Package removebg calls the Remove.bg API to strip backgrounds from
// generated icons. Quota, bad-input, and bad-key responses are soft results
// that hand the original image back untouched.
package removebg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"uniicon/internal/infra"
)

// Soft-failure reasons carried back with the original image.
const (
	ReasonQuotaExceeded = "quota_exceeded"
	ReasonInvalidImage  = "invalid_image"
	ReasonInvalidAPIKey = "invalid_api_key"
)

// Options configures the Remove.bg client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the Remove.bg API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// RemoveOptions tune one removal call. Zero values mean the API defaults the
// original add-on used: auto size, auto type, png, rgba.
type RemoveOptions struct {
	Size     string
	Type     string
	Format   string
	Channels string
}

// Result is the outcome of a removal attempt. When Removed is false, Data is
// the caller's original image and Reason says why removal was skipped.
type Result struct {
	Data    []byte
	Removed bool
	Reason  string
}

// Quota reports remaining API credits.
type Quota struct {
	Available int `json:"available"`
	Total     int `json:"total"`
}

type accountResponse struct {
	Data struct {
		Attributes struct {
			API struct {
				FreeCalls int `json:"free_calls"`
				Sizes     struct {
					Regular int `json:"regular"`
				} `json:"sizes"`
			} `json:"api"`
		} `json:"attributes"`
	} `json:"data"`
}

// NewClient constructs a Remove.bg client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.remove.bg/v1.0"
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
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// TestConnection reports whether the removal service is reachable with the
// configured key. Without a key it is false without any network call.
func (c *Client) TestConnection(ctx context.Context) bool {
	if !c.Configured() {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/account", nil)
	if err != nil {
		return false
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Msg("removebg: connection test failed")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// Remove strips the background from the image. Quota exhaustion, rejected
// input, and an invalid key return the original bytes with Removed=false and
// nil error; transport failures and other statuses return an error.
func (c *Client) Remove(ctx context.Context, image []byte, opts RemoveOptions) (*Result, error) {
	if len(image) == 0 {
		return nil, errors.New("removebg: image is required")
	}
	if !c.Configured() {
		return nil, errors.New("removebg: api key is required")
	}
	if opts.Size == "" {
		opts.Size = "auto"
	}
	if opts.Type == "" {
		opts.Type = "auto"
	}
	if opts.Format == "" {
		opts.Format = "png"
	}
	if opts.Channels == "" {
		opts.Channels = "rgba"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image_file", "image.png")
	if err != nil {
		return nil, fmt.Errorf("removebg: build form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("removebg: write image: %w", err)
	}
	for field, value := range map[string]string{
		"size":     opts.Size,
		"type":     opts.Type,
		"format":   opts.Format,
		"channels": opts.Channels,
	} {
		if err := writer.WriteField(field, value); err != nil {
			return nil, fmt.Errorf("removebg: write field %s: %w", field, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("removebg: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/removebg", &body)
	if err != nil {
		return nil, fmt.Errorf("removebg: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("removebg: http request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusPaymentRequired:
		c.logger.Warn().Msg("removebg: quota exceeded, keeping original image")
		return &Result{Data: image, Reason: ReasonQuotaExceeded}, nil
	case http.StatusBadRequest:
		c.logger.Warn().Msg("removebg: invalid image, keeping original image")
		return &Result{Data: image, Reason: ReasonInvalidImage}, nil
	case http.StatusForbidden:
		c.logger.Warn().Msg("removebg: invalid api key, keeping original image")
		return &Result{Data: image, Reason: ReasonInvalidAPIKey}, nil
	default:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return nil, fmt.Errorf("removebg: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	cleaned, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("removebg: read response: %w", err)
	}
	c.logger.Debug().
		Int("input_bytes", len(image)).
		Int("output_bytes", len(cleaned)).
		Msg("removebg: background removed")
	return &Result{Data: cleaned, Removed: true}, nil
}

// RemainingQuota fetches the account's remaining credits.
func (c *Client) RemainingQuota(ctx context.Context) (*Quota, error) {
	if !c.Configured() {
		return &Quota{}, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/account", nil)
	if err != nil {
		return nil, fmt.Errorf("removebg: build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("removebg: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("removebg: account status %d", resp.StatusCode)
	}

	var decoded accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("removebg: decode account: %w", err)
	}
	return &Quota{
		Available: decoded.Data.Attributes.API.FreeCalls,
		Total:     decoded.Data.Attributes.API.Sizes.Regular,
	}, nil
}
