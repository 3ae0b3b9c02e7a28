package suggest

import (
	"testing"

	"github.com/menta2k/tour-viewer/pkg/llamacpp"
	"github.com/menta2k/tour-viewer/pkg/ollama"
)

func TestNewClientBackends(t *testing.T) {
	c, err := NewClient("ollama", "")
	if err != nil {
		t.Fatalf("ollama: %v", err)
	}
	if _, ok := c.(*ollama.Client); !ok {
		t.Errorf("Expected *ollama.Client, got %T", c)
	}

	c, err = NewClient("llamacpp", "http://127.0.0.1:9000")
	if err != nil {
		t.Fatalf("llamacpp: %v", err)
	}
	if _, ok := c.(*llamacpp.Client); !ok {
		t.Errorf("Expected *llamacpp.Client, got %T", c)
	}

	if _, err := NewClient("llamacpp", "localhost:9000"); err == nil {
		t.Error("Expected error for URL without scheme")
	}
	if _, err := NewClient("openai", ""); err == nil {
		t.Error("Expected error for unknown backend")
	}
}
