package removebg

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, apiKey string, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Options{APIKey: apiKey, BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestTestConnectionFalseWithoutKey(t *testing.T) {
	called := false
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	if client.TestConnection(context.Background()) {
		t.Fatalf("expected false without api key")
	}
	if called {
		t.Fatalf("no network call expected without api key")
	}
}

func TestTestConnectionProbesAccount(t *testing.T) {
	client := newTestClient(t, "key", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/account" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "key" {
			t.Errorf("missing api key header")
		}
		w.WriteHeader(http.StatusOK)
	})
	if !client.TestConnection(context.Background()) {
		t.Fatalf("expected reachable")
	}
}

func TestRemoveSendsMultipartForm(t *testing.T) {
	original := []byte("fake-png")
	cleaned := []byte("cleaned-png")
	client := newTestClient(t, "key", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/removebg" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		for field, want := range map[string]string{"size": "auto", "type": "auto", "format": "png", "channels": "rgba"} {
			if got := r.FormValue(field); got != want {
				t.Errorf("%s = %q, want %q", field, got, want)
			}
		}
		file, _, err := r.FormFile("image_file")
		if err != nil {
			t.Errorf("image_file missing: %v", err)
			return
		}
		defer file.Close()
		w.Write(cleaned)
	})

	result, err := client.Remove(context.Background(), original, RemoveOptions{})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !result.Removed {
		t.Fatalf("expected removed result")
	}
	if !bytes.Equal(result.Data, cleaned) {
		t.Fatalf("data mismatch")
	}
}

func TestRemoveSoftFailures(t *testing.T) {
	original := []byte("original-bytes")
	cases := []struct {
		name   string
		status int
		reason string
	}{
		{"quota", http.StatusPaymentRequired, ReasonQuotaExceeded},
		{"bad input", http.StatusBadRequest, ReasonInvalidImage},
		{"bad key", http.StatusForbidden, ReasonInvalidAPIKey},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, "key", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})
			result, err := client.Remove(context.Background(), original, RemoveOptions{})
			if err != nil {
				t.Fatalf("soft failure must not error: %v", err)
			}
			if result.Removed {
				t.Fatalf("removed must be false")
			}
			if !bytes.Equal(result.Data, original) {
				t.Fatalf("original bytes must be returned unchanged")
			}
			if result.Reason != tc.reason {
				t.Fatalf("reason = %q, want %q", result.Reason, tc.reason)
			}
		})
	}
}

func TestRemoveHardFailureOnUnexpectedStatus(t *testing.T) {
	client := newTestClient(t, "key", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	if _, err := client.Remove(context.Background(), []byte("img"), RemoveOptions{}); err == nil {
		t.Fatalf("expected error for unexpected status")
	}
}

func TestRemainingQuotaParsesAccount(t *testing.T) {
	client := newTestClient(t, "key", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"attributes":{"api":{"free_calls":42,"sizes":{"regular":50}}}}}`))
	})
	quota, err := client.RemainingQuota(context.Background())
	if err != nil {
		t.Fatalf("quota: %v", err)
	}
	if quota.Available != 42 || quota.Total != 50 {
		t.Fatalf("quota = %+v", quota)
	}
}

func TestRemainingQuotaZeroWithoutKey(t *testing.T) {
	client, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	quota, err := client.RemainingQuota(context.Background())
	if err != nil {
		t.Fatalf("quota: %v", err)
	}
	if quota.Available != 0 || quota.Total != 0 {
		t.Fatalf("quota = %+v, want zero", quota)
	}
}
