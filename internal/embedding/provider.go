package embedding

import "context"

// DefaultOllamaURL is Ollama's local HTTP endpoint. Since 0.1.26 Ollama
// exposes an OpenAI-compatible /v1/embeddings route alongside its native
// /api/embeddings one, so it can be driven with the same client as LMStudio.
const DefaultOllamaURL = "http://localhost:11434"

// noopEmbedder satisfies Embedder for a disabled provider. Embed always
// fails loudly rather than silently returning zero vectors, so a caller
// that forgets to check Available() notices immediately.
type noopEmbedder struct{}

func (noopEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errEmbeddingDisabled
}
func (noopEmbedder) Available() bool    { return false }
func (noopEmbedder) ProviderID() string { return "off" }
func (noopEmbedder) Dimensions() int    { return 0 }

var errEmbeddingDisabled = providerError("embedding provider is disabled")

type providerError string

func (e providerError) Error() string { return string(e) }

// NewProvider constructs the Embedder named by provider ("lmstudio",
// "ollama", or "off"), configured for model and dimensions.
func NewProvider(provider, model string, dimensions int) Embedder {
	switch provider {
	case "ollama":
		opts := []LMStudioOption{WithLMStudioBaseURL(DefaultOllamaURL)}
		if model != "" {
			opts = append(opts, WithLMStudioModel(model))
		}
		if dimensions > 0 {
			opts = append(opts, WithLMStudioDimensions(dimensions))
		}
		return NewLMStudioClient(opts...)
	case "lmstudio":
		var opts []LMStudioOption
		if model != "" {
			opts = append(opts, WithLMStudioModel(model))
		}
		if dimensions > 0 {
			opts = append(opts, WithLMStudioDimensions(dimensions))
		}
		return NewLMStudioClient(opts...)
	default:
		return noopEmbedder{}
	}
}
