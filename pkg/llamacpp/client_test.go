package llamacpp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func fakeServer(t *testing.T, content any, status int) (*httptest.Server, *ChatCompletionRequest) {
	t.Helper()
	var got ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		if status != http.StatusOK {
			http.Error(w, "model not loaded", status)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
		})
	}))
	return srv, &got
}

func TestLocate(t *testing.T) {
	reply := `{"locations":[{"label":"Gym","confidence":0.7,"box":{"x":0.5,"y":0.5,"w":0.1,"h":0.2}}]}`
	srv, req := fakeServer(t, reply, http.StatusOK)
	defer srv.Close()

	c, err := NewClient(srv.URL + "/")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	res, err := c.Locate(context.Background(), "qwen2-vl", "find", "aW1n")
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if len(res.Locations) != 1 || res.Locations[0].Label != "Gym" {
		t.Errorf("Unexpected result %+v", res)
	}
	if req.Model != "qwen2-vl" || len(req.Messages) != 1 {
		t.Errorf("Unexpected request %+v", req)
	}
	parts, _ := req.Messages[0].Content.([]any)
	if len(parts) != 2 {
		t.Errorf("Expected text and image parts, got %v", req.Messages[0].Content)
	}
}

func TestSimpleQueryPartsContent(t *testing.T) {
	srv, _ := fakeServer(t, []any{map[string]any{"type": "text", "text": "a floor plan"}}, http.StatusOK)
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	got, err := c.SimpleQuery(context.Background(), "m", "what?", "")
	if err != nil {
		t.Fatalf("SimpleQuery failed: %v", err)
	}
	if got != "a floor plan" {
		t.Errorf("Unexpected answer %q", got)
	}
}

func TestErrors(t *testing.T) {
	if _, err := NewClient("localhost:8080"); err == nil {
		t.Error("Expected error for URL without scheme")
	}
	if c, err := NewClient(""); err != nil || c.baseURL != "http://localhost:8080" {
		t.Errorf("Expected default URL, got %v %v", c, err)
	}

	srv, _ := fakeServer(t, "", http.StatusServiceUnavailable)
	defer srv.Close()
	c, _ := NewClient(srv.URL)
	if _, err := c.Locate(context.Background(), "m", "p", ""); err == nil {
		t.Error("Expected error for failed request")
	}

	empty, _ := fakeServer(t, "", http.StatusOK)
	defer empty.Close()
	c, _ = NewClient(empty.URL)
	if _, err := c.SimpleQuery(context.Background(), "m", "p", ""); err == nil {
		t.Error("Expected error for empty content")
	}
}
