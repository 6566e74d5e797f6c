package agent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chunkLine(t *testing.T, text string) string {
	t.Helper()
	payload := map[string]any{"chunk": map[string]any{"bytes": base64.StdEncoding.EncodeToString([]byte(text))}}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal chunk: %v", err)
	}
	return string(raw)
}

func TestRuntimeInvokeCollectsChunksInOrder(t *testing.T) {
	var gotPath string
	var gotBody invokeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, chunkLine(t, "hello "))
		fmt.Fprintln(w, `{"trace":{"step":"reasoning"}}`)
		fmt.Fprintln(w, chunkLine(t, "icon "))
		fmt.Fprintln(w, chunkLine(t, "world"))
	}))
	defer server.Close()

	rt, err := NewRuntime(Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	stream, err := rt.Invoke(context.Background(), "AGENT1", "ALIAS1", "session-1", "describe")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	collected, err := stream.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if collected != "hello icon world" {
		t.Fatalf("collected = %q, want %q", collected, "hello icon world")
	}
	if !strings.Contains(gotPath, "/agents/AGENT1/agentAliases/ALIAS1/sessions/session-1/") {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody.InputText != "describe" || gotBody.SessionID != "session-1" {
		t.Fatalf("body = %+v", gotBody)
	}
}

func TestRuntimeInvokeRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent not found", http.StatusNotFound)
	}))
	defer server.Close()

	rt, err := NewRuntime(Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if _, err := rt.Invoke(context.Background(), "A", "B", "s", "x"); err == nil {
		t.Fatalf("expected error for status 404")
	}
}

func TestNewRuntimeRequiresBaseURL(t *testing.T) {
	if _, err := NewRuntime(Options{}); err != ErrMissingBaseURL {
		t.Fatalf("err = %v, want ErrMissingBaseURL", err)
	}
}

func TestChunkStreamRejectsMalformedEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "{not json")
	}))
	defer server.Close()

	rt, err := NewRuntime(Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	stream, err := rt.Invoke(context.Background(), "A", "B", "s", "x")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if _, err := stream.Collect(); err == nil {
		t.Fatalf("expected decode error")
	}
}
