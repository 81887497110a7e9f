package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientCompleteSuccess(t *testing.T) {
	t.Parallel()

	var gotPath, gotContentType string
	var gotReq Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Response{Text: "Here is your answer."})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	text, err := c.Complete(context.Background(), Request{
		Turns:    []Turn{{Role: "user", Content: "hi"}},
		Context:  "general",
		Language: "de",
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "Here is your answer." {
		t.Errorf("text = %q", text)
	}

	if gotPath != "/v1/complete" {
		t.Errorf("path = %q, want /v1/complete", gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotReq.Context != "general" || gotReq.Language != "de" {
		t.Errorf("request = %+v", gotReq)
	}
	if len(gotReq.Turns) != 1 || gotReq.Turns[0].Role != "user" {
		t.Errorf("turns = %+v", gotReq.Turns)
	}
}

func TestClientCompleteNonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Complete(context.Background(), Request{Context: "general"})
	if !errors.Is(err, errStatus) {
		t.Fatalf("err = %v, want errStatus", err)
	}
}

func TestClientCompleteErrorPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Response{Error: "model unavailable"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Complete(context.Background(), Request{Context: "general"})
	if !errors.Is(err, errPayload) {
		t.Fatalf("err = %v, want errPayload", err)
	}
}

func TestClientCompleteEmptyText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Response{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Complete(context.Background(), Request{Context: "general"})
	if !errors.Is(err, errMalformed) {
		t.Fatalf("err = %v, want errMalformed", err)
	}
}

func TestClientCompleteMalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Complete(context.Background(), Request{Context: "general"})
	if !errors.Is(err, errMalformed) {
		t.Fatalf("err = %v, want errMalformed", err)
	}
}

func TestClientCompleteContextCancelled(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.Complete(ctx, Request{Context: "general"}); err == nil {
		t.Fatal("expected an error after context timeout")
	}
}
