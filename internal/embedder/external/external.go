// Package external adapts remote embedding APIs (OpenAI, Google Gemini)
// behind the core Embedder interface, grounded directly on
// memory/vector_store.go's OpenAIProvider: same API-key-from-env fallback,
// same context-with-timeout call shape, same float64->float32 conversion.
// These are optional, non-default embedders (the core's only required
// defaults are HashBag and StaticVector); callers opt in explicitly.
package external

import (
	"context"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/coldforge/membrain/internal/vecmath"
)

// OpenAI adapts OpenAI's embeddings endpoint.
type OpenAI struct {
	client *openai.Client
	model  string
	dim    int
}

// NewOpenAI constructs an OpenAI embedder. apiKey falls back to the
// OPENAI_API_KEY environment variable when empty.
func NewOpenAI(apiKey, model string, dim int) (*OpenAI, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("external: OpenAI API key required")
	}
	if dim <= 0 {
		dim = 1536
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model, dim: dim}, nil
}

func (o *OpenAI) Dimension() int { return o.dim }

// Embed returns the L2-normalised embedding for text, or a zero vector on
// any API failure (the core's Embedder contract is a total function with no
// error result). The failure itself is not reported: callers, including the
// brain orchestrator, receive the zero vector as if it were an embedding.
func (o *OpenAI) Embed(text string) []float32 {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(o.model),
		Input: text,
	})
	if err != nil || len(resp.Data) == 0 {
		return make([]float32, o.dim)
	}
	result := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		result[i] = float32(v)
	}
	return vecmath.Normalize(result)
}

// Gemini adapts Google's genai embeddings endpoint.
type Gemini struct {
	client *genai.Client
	model  string
	dim    int
}

// NewGemini constructs a Gemini embedder against the given client and model.
func NewGemini(client *genai.Client, model string, dim int) *Gemini {
	if dim <= 0 {
		dim = 768
	}
	return &Gemini{client: client, model: model, dim: dim}
}

func (g *Gemini) Dimension() int { return g.dim }

func (g *Gemini) Embed(text string) []float32 {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	resp, err := g.client.Models.EmbedContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil || len(resp.Embeddings) == 0 {
		return make([]float32, g.dim)
	}
	values := resp.Embeddings[0].Values
	result := make([]float32, len(values))
	copy(result, values)
	return vecmath.Normalize(result)
}
