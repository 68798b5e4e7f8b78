package agents

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDataSourcesClientStreams(t *testing.T) {
	chunks := []string{"Filing volume ", "rose sharply ", "in Q2."}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query"); got != "filing trends?" {
			t.Errorf("unexpected query param: %q", got)
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("test server does not support flushing")
		}
		for _, c := range chunks {
			fmt.Fprint(w, c)
			flusher.Flush()
		}
	}))
	defer srv.Close()

	var seen []string
	full, err := NewDataSourcesClient(srv.URL).Ask(context.Background(), "filing trends?", func(acc string) {
		seen = append(seen, acc)
	})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if full != "Filing volume rose sharply in Q2." {
		t.Errorf("unexpected full reply: %q", full)
	}
	if len(seen) == 0 {
		t.Fatal("expected at least one chunk callback")
	}
	// Each callback carries the accumulated text so far; the last one
	// must equal the full reply.
	if seen[len(seen)-1] != full {
		t.Errorf("final callback %q does not match full reply %q", seen[len(seen)-1], full)
	}
	for i := 1; i < len(seen); i++ {
		if len(seen[i]) < len(seen[i-1]) {
			t.Errorf("accumulated text shrank between callbacks: %q -> %q", seen[i-1], seen[i])
		}
	}
}

func TestDataSourcesClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewDataSourcesClient(srv.URL).Ask(context.Background(), "q", nil); err == nil {
		t.Fatal("expected an error for a 502 response")
	}
}

func TestDataSourcesClientNilCallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "whole reply")
	}))
	defer srv.Close()

	full, err := NewDataSourcesClient(srv.URL).Ask(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if full != "whole reply" {
		t.Errorf("unexpected reply: %q", full)
	}
}
