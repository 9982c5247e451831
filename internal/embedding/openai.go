// File path: internal/embedding/openai.go
package embedding

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/marginalia-dev/redline/internal/common"
)

func init() {
	Register("openai", func(cfg Config) (Provider, error) {
		return NewOpenAIProvider(cfg)
	})
}

// Dimensions of the published OpenAI embedding models. Unknown models fall
// back to the large-model width.
var openAIModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIProvider embeds text through the OpenAI embeddings endpoint.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	dimension int
	hasKey    bool
}

// NewOpenAIProvider constructs the backend from configuration. A missing API
// key is not a construction error: the provider reports not-ready and the
// chain skips it.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	model := strings.TrimSpace(cfg.OpenAIModel)
	if model == "" {
		model = DefaultConfig().OpenAIModel
	}
	dimension, ok := openAIModelDimensions[model]
	if !ok {
		dimension = openAIModelDimensions["text-embedding-3-large"]
	}
	var opts []option.RequestOption
	hasKey := strings.TrimSpace(cfg.OpenAIKey) != ""
	if hasKey {
		opts = append(opts, option.WithAPIKey(cfg.OpenAIKey))
	}
	provider := &OpenAIProvider{
		client:    openai.NewClient(opts...),
		model:     model,
		dimension: dimension,
		hasKey:    hasKey,
	}
	common.Logger().Info("embedding: openai backend configured", "model", model, "dimension", dimension, "credentials", hasKey)
	return provider, nil
}

func (o *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("openai embedding returned no data")
	}
	return vectors[0], nil
}

func (o *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if !o.hasKey {
		return nil, fmt.Errorf("openai embedding backend has no credentials")
	}
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: expected %d vectors, got %d", len(texts), len(resp.Data))
	}
	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(vectors) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", idx)
		}
		vector := make([]float32, len(item.Embedding))
		for i, value := range item.Embedding {
			vector[i] = float32(value)
		}
		vectors[idx] = vector
	}
	return vectors, nil
}

func (o *OpenAIProvider) Dimension() int {
	return o.dimension
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}

// Ready reports whether the backend holds credentials. Transport health is
// left to per-call fallback rather than a probe request.
func (o *OpenAIProvider) Ready(context.Context) bool {
	return o != nil && o.hasKey
}

var _ Provider = (*OpenAIProvider)(nil)
