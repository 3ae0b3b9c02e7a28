package suggest

import (
	"fmt"

	"github.com/menta2k/tour-viewer/pkg/client"
	"github.com/menta2k/tour-viewer/pkg/llamacpp"
	"github.com/menta2k/tour-viewer/pkg/ollama"
)

// Default server URLs per backend
const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultLlamaCppURL = "http://localhost:8080"
)

// NewClient creates the vision client for backend ("ollama" or
// "llamacpp"). An empty url selects the backend's default.
func NewClient(backend, url string) (client.VisionClient, error) {
	switch backend {
	case "ollama":
		if url == "" {
			url = DefaultOllamaURL
		}
		c, err := ollama.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return c, nil
	case "llamacpp":
		if url == "" {
			url = DefaultLlamaCppURL
		}
		c, err := llamacpp.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama' or 'llamacpp')", backend)
	}
}
