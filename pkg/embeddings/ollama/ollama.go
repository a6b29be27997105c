// Package ollama embeds text via a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	// DefaultURL is the standard local Ollama endpoint.
	DefaultURL = "http://localhost:11434"

	// DefaultModel is a small embedding model that ships with Ollama.
	DefaultModel = "nomic-embed-text"

	defaultTimeout = 30 * time.Second
)

// Config holds connection settings for the Ollama server.
type Config struct {
	URL   string
	Model string
}

// Embedder calls the Ollama embeddings API.
type Embedder struct {
	url    string
	model  string
	client *http.Client

	// dims caches the embedding width after the first successful call.
	dims atomic.Int64
}

// New creates an Embedder; empty config fields fall back to defaults.
func New(cfg Config) *Embedder {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Embedder{
		url:    cfg.URL,
		model:  cfg.Model,
		client: &http.Client{Timeout: defaultTimeout},
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("encoding embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.url+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding")
	}

	e.dims.Store(int64(len(out.Embedding)))
	return out.Embedding, nil
}

// EmbedBatch loops over Embed; the embeddings API has no batch endpoint.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, emb)
	}
	return out, nil
}

func (e *Embedder) Dimensions() int {
	return int(e.dims.Load())
}
