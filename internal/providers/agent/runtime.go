// Package agent talks to the remote reasoning runtime that hosts the
// pipeline's text capabilities (extract, interpret, planner, validator).
// Each capability wraps one hosted agent; invocations stream back chunked
// completions that are collected into a single string before anything else
// sees them.
package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"uniicon/internal/infra"
)

// ErrMissingBaseURL indicates the runtime was configured without an endpoint.
var ErrMissingBaseURL = errors.New("agent: runtime base url is required")

// Options configures the reasoning runtime client.
type Options struct {
	BaseURL        string
	Region         string
	APIKey         string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Runtime performs HTTP calls against the hosted agent runtime.
type Runtime struct {
	baseURL    string
	region     string
	apiKey     string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewRuntime constructs a runtime client with sane defaults.
func NewRuntime(opts Options) (*Runtime, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Runtime{
		baseURL:    baseURL,
		region:     strings.TrimSpace(opts.Region),
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type invokeRequest struct {
	SessionID string `json:"sessionId"`
	InputText string `json:"inputText"`
}

// chunkEvent is one newline-delimited event of the completion stream. Events
// without a chunk payload (traces, pings) are skipped.
type chunkEvent struct {
	Chunk *struct {
		Bytes string `json:"bytes"`
	} `json:"chunk"`
}

// ChunkStream is the finite, non-restartable completion stream of one
// invocation. It must be consumed to completion and closed exactly once.
type ChunkStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func newChunkStream(body io.ReadCloser) *ChunkStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &ChunkStream{body: body, scanner: scanner}
}

// Next returns the next decoded chunk, or io.EOF when the stream is done.
func (s *ChunkStream) Next() ([]byte, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var event chunkEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("agent: decode stream event: %w", err)
		}
		if event.Chunk == nil || event.Chunk.Bytes == "" {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(event.Chunk.Bytes)
		if err != nil {
			return nil, fmt.Errorf("agent: decode chunk: %w", err)
		}
		return decoded, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("agent: read stream: %w", err)
	}
	return nil, io.EOF
}

// Close releases the underlying response body.
func (s *ChunkStream) Close() error {
	return s.body.Close()
}

// Collect drains the stream and concatenates every chunk in arrival order.
// The stream is closed regardless of outcome, so a partial completion can
// never leak out of the adapter.
func (s *ChunkStream) Collect() (string, error) {
	defer s.Close()
	var b strings.Builder
	for {
		chunk, err := s.Next()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		b.Write(chunk)
	}
}

// Invoke starts one agent invocation and returns its completion stream.
func (r *Runtime) Invoke(ctx context.Context, agentID, aliasID, sessionID, inputText string) (*ChunkStream, error) {
	if agentID == "" {
		return nil, errors.New("agent: agent id is required")
	}
	payload := invokeRequest{SessionID: sessionID, InputText: inputText}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("agent: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/agents/%s/agentAliases/%s/sessions/%s/text", r.baseURL, agentID, aliasID, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("agent: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
	if r.region != "" {
		req.Header.Set("X-Runtime-Region", r.region)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent: http request: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return nil, fmt.Errorf("agent: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	r.logger.Debug().
		Str("agent_id", agentID).
		Str("session_id", sessionID).
		Msg("agent: invocation started")
	return newChunkStream(resp.Body), nil
}
