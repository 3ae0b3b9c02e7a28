package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func fakeOllama(t *testing.T, reply string, seen *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model":   "test",
			"message": map[string]any{"role": "assistant", "content": reply},
			"done":    true,
		})
	}))
}

func TestLocate(t *testing.T) {
	var req map[string]any
	srv := fakeOllama(t, `{"locations":[{"label":"Lobby","confidence":0.8,"box":{"x":0.1,"y":0.1,"w":0.2,"h":0.2}}],"description":"plan"}`, &req)
	defer srv.Close()

	c, err := NewClient(srv.URL + "/api/chat")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	img := base64.StdEncoding.EncodeToString([]byte("fake image bytes"))
	res, err := c.Locate(context.Background(), "minicpm-v4.5", "find rooms", img)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if len(res.Locations) != 1 || res.Locations[0].Label != "Lobby" {
		t.Errorf("Unexpected result %+v", res)
	}
	if req["model"] != "minicpm-v4.5" {
		t.Errorf("Unexpected model %v", req["model"])
	}
	if opts, _ := req["options"].(map[string]any); opts["num_ctx"] == nil {
		t.Errorf("Expected MiniCPM options, got %v", req["options"])
	}
}

func TestSimpleQuery(t *testing.T) {
	srv := fakeOllama(t, "A floor plan with four rooms.", nil)
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	got, err := c.SimpleQuery(context.Background(), "llava", "what is this?", "")
	if err != nil {
		t.Fatalf("SimpleQuery failed: %v", err)
	}
	if got != "A floor plan with four rooms." {
		t.Errorf("Unexpected answer %q", got)
	}
}

func TestBadInput(t *testing.T) {
	if _, err := NewClient("not a url"); err == nil {
		t.Error("Expected error for URL without scheme")
	}

	srv := fakeOllama(t, "", nil)
	defer srv.Close()
	c, _ := NewClient(srv.URL)
	if _, err := c.Locate(context.Background(), "llava", "p", "%%%"); err == nil {
		t.Error("Expected base64 error")
	}
	if _, err := c.Locate(context.Background(), "llava", "p", ""); err == nil {
		t.Error("Expected error for empty response")
	}
}
