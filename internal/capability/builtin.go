package capability

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/adapter/llm"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/knowledge"
)

//go:embed records.yaml
var recordsYAML []byte

// Records are the canned policy, claimant and vehicle databases.
type Records struct {
	Policies  map[string]map[string]any `yaml:"policies"`
	Claimants map[string]map[string]any `yaml:"claimants"`
	Vehicles  map[string]map[string]any `yaml:"vehicles"`
}

// LoadRecords parses the embedded records.
func LoadRecords() (*Records, error) {
	var r Records
	if err := yaml.Unmarshal(recordsYAML, &r); err != nil {
		return nil, errors.Wrap(err, "failed to parse capability records")
	}
	return &r, nil
}

// Searcher is the part of the knowledge source the search capability needs.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, minRelevance float64) ([]knowledge.Result, error)
}

// Deps are the dependencies of the built-in capabilities.
type Deps struct {
	Records      *Records
	Knowledge    Searcher
	TopK         int
	MinRelevance float64
	Vision       llm.LLMClient
	VisionModel  string
	// DataDir anchors relative image paths.
	DataDir string
	// ImageRoots are the directories analyze_image may read from.
	ImageRoots []string
	Gate       Gate
}

// NewBuiltinRegistry registers every built-in capability.
func NewBuiltinRegistry(deps Deps) (*Registry, error) {
	if deps.Records == nil {
		recs, err := LoadRecords()
		if err != nil {
			return nil, err
		}
		deps.Records = recs
	}
	if deps.TopK <= 0 {
		deps.TopK = knowledge.DefaultTopK
	}

	resolve := pathResolver(deps.DataDir)
	r := NewRegistry()
	caps := []Capability{
		{
			Name:        "get_policy_details",
			Description: "Retrieve detailed policy information for a given policy number.",
			Parameters:  stringParam("policy_number", "The policy number, e.g. POL-2024-001"),
			Exec:        lookupExecutor("policy_number", deps.Records.Policies, "Policy %s not found in database"),
		},
		{
			Name:        "get_claimant_history",
			Description: "Retrieve historical claim information for a given claimant.",
			Parameters:  stringParam("claimant_id", "The claimant identifier, e.g. CLM-001"),
			Exec:        lookupExecutor("claimant_id", deps.Records.Claimants, "Claimant %s not found in database"),
		},
		{
			Name:        "get_vehicle_details",
			Description: "Retrieve vehicle information for a given VIN number.",
			Parameters:  stringParam("vin", "The vehicle identification number"),
			Exec:        lookupExecutor("vin", deps.Records.Vehicles, "Vehicle with VIN %s not found in database"),
		},
		{
			Name:        "search_policy_documents",
			Description: "Search through all policy documents to find relevant information.",
			Parameters:  stringParam("query", "What to look for in the policy wording"),
			Exec:        searchExecutor(deps.Knowledge, deps.TopK, deps.MinRelevance),
		},
		{
			Name:        "analyze_image",
			Description: "Classify a claim image as claim_form, invoice or damage_photo and extract structured data from it.",
			Parameters:  stringParam("image_path", "Path to a local image file"),
			Exec:        imageExecutor(deps.Vision, deps.VisionModel, resolve),
		},
	}
	for _, c := range caps {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}

	if deps.Gate != nil {
		roots := make([]string, 0, len(deps.ImageRoots))
		for _, root := range deps.ImageRoots {
			if root == "" {
				continue
			}
			roots = append(roots, strings.TrimSuffix(resolve(root), string(filepath.Separator))+string(filepath.Separator))
		}
		r.SetGate(GateConfig{Gate: deps.Gate, Roots: roots, Resolve: resolve})
	}
	return r, nil
}

func stringParam(name, description string) json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			name: map[string]any{"type": "string", "description": description},
		},
		"required": []string{name},
	}
	b, _ := json.Marshal(schema)
	return b
}

func stringArg(args json.RawMessage, name string) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(args, &m); err != nil {
		return "", errors.Wrap(err, "invalid arguments")
	}
	v, ok := m[name].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return strings.TrimSpace(v), nil
}

// lookupExecutor answers from a canned table. Unknown keys are reported as an
// error object in the result.
func lookupExecutor(arg string, table map[string]map[string]any, notFound string) ExecutorFunc {
	return func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		key, err := stringArg(args, arg)
		if err != nil {
			return nil, err
		}
		rec, ok := table[key]
		if !ok {
			return json.Marshal(map[string]string{"error": fmt.Sprintf(notFound, key)})
		}
		return json.Marshal(rec)
	}
}

type searchHit struct {
	PolicyType     string  `json:"policy_type"`
	Section        string  `json:"section"`
	Content        string  `json:"content"`
	RelevanceScore float64 `json:"relevance_score"`
}

type searchResponse struct {
	Status       string      `json:"status"`
	Query        string      `json:"query"`
	Message      string      `json:"message,omitempty"`
	TotalResults int         `json:"total_results,omitempty"`
	Results      []searchHit `json:"results,omitempty"`
}

func searchExecutor(src Searcher, topK int, minRelevance float64) ExecutorFunc {
	return func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		query, err := stringArg(args, "query")
		if err != nil {
			return nil, err
		}
		if src == nil {
			return json.Marshal(searchResponse{
				Status:  "error",
				Query:   query,
				Message: "Policy index not initialized. Index may not be built.",
			})
		}

		results, err := src.Search(ctx, query, topK, minRelevance)
		if errors.Is(err, domain.ErrKnowledgeSourceUnavailable) {
			return json.Marshal(searchResponse{
				Status:  "error",
				Query:   query,
				Message: "Policy index not initialized. Index may not be built.",
			})
		}
		if err != nil {
			log.Error().Err(err).Str("query", query).Msg("policy search failed")
			return json.Marshal(searchResponse{
				Status:  "error",
				Query:   query,
				Message: fmt.Sprintf("Search failed: %v", err),
			})
		}
		if len(results) == 0 {
			return json.Marshal(searchResponse{
				Status:  "no_results_found",
				Query:   query,
				Message: fmt.Sprintf("No relevant policy information found for query: '%s'", query),
			})
		}

		hits := make([]searchHit, 0, len(results))
		for _, res := range results {
			hits = append(hits, searchHit{
				PolicyType:     res.PolicyType,
				Section:        res.Section,
				Content:        res.Content,
				RelevanceScore: math.Round(res.Relevance*1000) / 1000,
			})
		}
		return json.Marshal(searchResponse{
			Status:       "results_found",
			Query:        query,
			TotalResults: len(hits),
			Results:      hits,
		})
	}
}

func pathResolver(dataDir string) func(string) string {
	return func(p string) string {
		if !filepath.IsAbs(p) && dataDir != "" {
			p = filepath.Join(dataDir, p)
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		return filepath.Clean(p)
	}
}
