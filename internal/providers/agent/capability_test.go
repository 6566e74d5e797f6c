package agent

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"uniicon/internal/pipeline"
)

func testSession(baseURL string) *Session {
	return NewSession(func() (*Runtime, error) {
		return NewRuntime(Options{BaseURL: baseURL})
	})
}

func TestCapabilityPassesInputThroughWhenNotConfigured(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	cap := NewCapability(RoleExtract, Ref{}, testSession(server.URL), nil)
	if cap.Configured() {
		t.Fatalf("capability without agent id must report unconfigured")
	}
	result := cap.Invoke(context.Background(), "a rocket ship")
	if result.Kind() != pipeline.KindDegraded {
		t.Fatalf("kind = %v, want degraded", result.Kind())
	}
	if result.Value() != "a rocket ship" {
		t.Fatalf("value = %q, want identity pass-through", result.Value())
	}
	if result.Reason() != "not_configured" {
		t.Fatalf("reason = %q", result.Reason())
	}
	if calls.Load() != 0 {
		t.Fatalf("remote must not be called without configuration, got %d calls", calls.Load())
	}
}

func TestCapabilityCollectsCompletion(t *testing.T) {
	sessions := map[string]bool{}
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		sessions[r.URL.Path] = true
		mu.Unlock()
		fmt.Fprintln(w, chunkLine(t, "rocket ship, "))
		fmt.Fprintln(w, chunkLine(t, "flat style"))
	}))
	defer server.Close()

	cap := NewCapability(RoleExtract, Ref{AgentID: "EXTRACT1"}, testSession(server.URL), nil)
	result := cap.Invoke(context.Background(), "describe a rocket")
	if result.Kind() != pipeline.KindOk {
		t.Fatalf("kind = %v, want ok (reason %q)", result.Kind(), result.Reason())
	}
	if result.Value() != "rocket ship, flat style" {
		t.Fatalf("value = %q", result.Value())
	}

	// A second invocation must use a fresh session id.
	cap.Invoke(context.Background(), "describe a rocket")
	if len(sessions) != 2 {
		t.Fatalf("expected a distinct session path per invocation, got %d", len(sessions))
	}
}

func TestCapabilityDegradesOnRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	cap := NewCapability(RolePlanner, Ref{AgentID: "PLAN1"}, testSession(server.URL), nil)
	result := cap.Invoke(context.Background(), "plan this")
	if result.Kind() != pipeline.KindDegraded {
		t.Fatalf("kind = %v, want degraded", result.Kind())
	}
	if result.Value() != "plan this" {
		t.Fatalf("value = %q, want identity pass-through", result.Value())
	}
	if result.Reason() != "invoke" {
		t.Fatalf("reason = %q, want invoke", result.Reason())
	}
}

func TestCapabilityDegradesOnEmptyCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, chunkLine(t, "   "))
	}))
	defer server.Close()

	cap := NewCapability(RoleInterpret, Ref{AgentID: "INT1"}, testSession(server.URL), nil)
	result := cap.Invoke(context.Background(), "interpret this")
	if result.Kind() != pipeline.KindDegraded || result.Reason() != "empty_completion" {
		t.Fatalf("result = kind %v reason %q", result.Kind(), result.Reason())
	}
}

func TestCapabilityDefaultsAliasID(t *testing.T) {
	cap := NewCapability(RoleValidator, Ref{AgentID: "VAL1"}, testSession("http://unused"), nil)
	if cap.ref.AliasID != DefaultAliasID {
		t.Fatalf("alias = %q, want %q", cap.ref.AliasID, DefaultAliasID)
	}
}

func TestSessionBuildsRuntimeOnce(t *testing.T) {
	var builds atomic.Int32
	session := NewSession(func() (*Runtime, error) {
		builds.Add(1)
		return NewRuntime(Options{BaseURL: "http://example.test"})
	})

	var wg sync.WaitGroup
	runtimes := make([]*Runtime, 16)
	for i := range runtimes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rt, err := session.Runtime()
			if err != nil {
				t.Errorf("runtime: %v", err)
				return
			}
			runtimes[i] = rt
		}(i)
	}
	wg.Wait()

	if builds.Load() != 1 {
		t.Fatalf("runtime built %d times, want 1", builds.Load())
	}
	for i, rt := range runtimes {
		if rt != runtimes[0] {
			t.Fatalf("runtime %d differs from the shared instance", i)
		}
	}
}
