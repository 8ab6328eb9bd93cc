package knowledge

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/adapter/llm"
)

// EmbeddingModel describes the vectors a provider produces.
type EmbeddingModel struct {
	Name       string
	Dimensions int
}

// String identifies the model in persisted chunks, e.g. "feature-hash/256".
func (m EmbeddingModel) String() string {
	return fmt.Sprintf("%s/%d", m.Name, m.Dimensions)
}

// Provider turns texts into vectors.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() EmbeddingModel
}

// LLMProvider embeds through the configured OpenAI / Azure client.
type LLMProvider struct {
	embedder llm.Embedder
	model    EmbeddingModel
}

var _ Provider = (*LLMProvider)(nil)

// NewLLMProvider creates an LLMProvider.
func NewLLMProvider(embedder llm.Embedder, name string, dimensions int) *LLMProvider {
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &LLMProvider{embedder: embedder, model: EmbeddingModel{Name: name, Dimensions: dimensions}}
}

func (p *LLMProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := p.embedder.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, errors.Wrap(err, "embedding request failed")
	}
	return vecs, nil
}

func (p *LLMProvider) Model() EmbeddingModel { return p.model }

// HashProvider embeds offline by hashing lower-cased word tokens into a fixed
// number of buckets. Vectors are L2-normalised.
type HashProvider struct {
	dims int
}

var _ Provider = (*HashProvider)(nil)

// NewHashProvider creates a HashProvider.
func NewHashProvider(dims int) *HashProvider {
	if dims <= 0 {
		dims = 256
	}
	return &HashProvider{dims: dims}
}

func (p *HashProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.embed(text)
	}
	return out, nil
}

func (p *HashProvider) embed(text string) []float32 {
	vec := make([]float32, p.dims)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%uint32(p.dims)]++
	}
	normalize(vec)
	return vec
}

func (p *HashProvider) Model() EmbeddingModel {
	return EmbeddingModel{Name: "feature-hash", Dimensions: p.dims}
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// relevance maps the L2 distance between a and b into (0, 1]. Vectors of
// different lengths come from different models and score 0.
func relevance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return 1 / (1 + math.Sqrt(sum))
}
