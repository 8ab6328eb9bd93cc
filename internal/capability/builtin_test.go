package capability

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/adapter/llm"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/knowledge"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/policy"
)

func newTestRegistry(t *testing.T, deps Deps) *Registry {
	t.Helper()
	r, err := NewBuiltinRegistry(deps)
	require.NoError(t, err)
	return r
}

func decode(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestLookupKnownRecords(t *testing.T) {
	r := newTestRegistry(t, Deps{})
	ctx := context.Background()

	out, err := r.Execute(ctx, "get_policy_details", json.RawMessage(`{"policy_number":"POL-2024-001"}`))
	require.NoError(t, err)
	assert.Equal(t, "John Smith", decode(t, out)["policy_holder"])

	out, err = r.Execute(ctx, "get_claimant_history", json.RawMessage(`{"claimant_id":"CLM-004"}`))
	require.NoError(t, err)
	assert.Equal(t, "Jan de Vries", decode(t, out)["name"])

	out, err = r.Execute(ctx, "get_vehicle_details", json.RawMessage(`{"vin":"WVWZZZ1JZXW123456"}`))
	require.NoError(t, err)
	assert.Equal(t, "Volkswagen", decode(t, out)["make"])
}

func TestLookupMissingRecordIsData(t *testing.T) {
	r := newTestRegistry(t, Deps{})
	ctx := context.Background()

	cases := map[string]struct {
		args string
		want string
	}{
		"get_policy_details":   {`{"policy_number":"NOPE"}`, "Policy NOPE not found in database"},
		"get_claimant_history": {`{"claimant_id":"X"}`, "Claimant X not found in database"},
		"get_vehicle_details":  {`{"vin":"123"}`, "Vehicle with VIN 123 not found in database"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := r.Execute(ctx, name, json.RawMessage(tc.args))
			require.NoError(t, err)
			assert.Equal(t, tc.want, decode(t, out)["error"])
		})
	}
}

func TestExecuteErrorsAreCapabilityErrors(t *testing.T) {
	r := newTestRegistry(t, Deps{})
	ctx := context.Background()

	_, err := r.Execute(ctx, "get_policy_details", json.RawMessage(`{}`))
	var capErr *domain.CapabilityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "get_policy_details", capErr.Capability)

	_, err = r.Execute(ctx, "launch_rocket", nil)
	require.True(t, errors.As(err, &capErr))
	assert.Contains(t, capErr.Error(), "no executor registered for launch_rocket")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	exec := func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) { return args, nil }
	require.NoError(t, r.Register(Capability{Name: "a", Exec: exec}))
	assert.Error(t, r.Register(Capability{Name: "a", Exec: exec}))
	assert.Error(t, r.Register(Capability{Name: "", Exec: exec}))
	assert.Error(t, r.Register(Capability{Name: "b"}))
}

func TestDefinitions(t *testing.T) {
	r := newTestRegistry(t, Deps{})
	defs, err := r.Definitions([]string{"get_vehicle_details", "analyze_image"})
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "get_vehicle_details", defs[0].Name)

	var schema struct {
		Required []string `json:"required"`
	}
	require.NoError(t, json.Unmarshal(defs[1].Parameters, &schema))
	assert.Equal(t, []string{"image_path"}, schema.Required)

	_, err = r.Definitions([]string{"missing"})
	assert.Error(t, err)
}

func TestSearchPolicyDocumentsStatuses(t *testing.T) {
	ctx := context.Background()
	idx := knowledge.NewIndex(knowledge.Options{Provider: knowledge.NewHashProvider(512)})
	r := newTestRegistry(t, Deps{Knowledge: idx, MinRelevance: 0.3})

	out, err := r.Execute(ctx, "search_policy_documents", json.RawMessage(`{"query":"collision"}`))
	require.NoError(t, err)
	assert.Equal(t, "error", decode(t, out)["status"])

	_, err = idx.Rebuild(ctx, knowledge.RebuildOptions{})
	require.NoError(t, err)

	out, err = r.Execute(ctx, "search_policy_documents", json.RawMessage(`{"query":"collision coverage"}`))
	require.NoError(t, err)
	res := decode(t, out)
	assert.Equal(t, "results_found", res["status"])
	hits := res["results"].([]any)
	require.NotEmpty(t, hits)
	assert.LessOrEqual(t, len(hits), 5)
	first := hits[0].(map[string]any)
	score := first["relevance_score"].(float64)
	assert.GreaterOrEqual(t, score, 0.3)
	assert.InDelta(t, score, float64(int(score*1000+0.5))/1000, 1e-9)

	strict := newTestRegistry(t, Deps{Knowledge: idx, MinRelevance: 1.01})
	out, err = strict.Execute(ctx, "search_policy_documents", json.RawMessage(`{"query":"collision"}`))
	require.NoError(t, err)
	assert.Equal(t, "no_results_found", decode(t, out)["status"])
}

func TestAnalyzeImageGate(t *testing.T) {
	ctx := context.Background()
	gate, err := policy.NewCapabilityPolicy(ctx)
	require.NoError(t, err)

	dataDir := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "claims"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "claims", "invoice.png"), []byte("\x89PNG\r\n\x1a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.png"), []byte("\x89PNG\r\n\x1a\n"), 0o644))

	r := newTestRegistry(t, Deps{
		Vision:     llm.NewMockClient(),
		DataDir:    dataDir,
		ImageRoots: []string{dataDir},
		Gate:       gate,
	})

	out, err := r.Execute(ctx, "analyze_image", json.RawMessage(`{"image_path":"claims/invoice.png"}`))
	require.NoError(t, err)
	res := decode(t, out)
	assert.Equal(t, "success", res["status"])
	assert.Equal(t, "invoice", res["category"])

	out, err = r.Execute(ctx, "analyze_image", json.RawMessage(`{"image_path":"claims/missing.jpg"}`))
	require.NoError(t, err)
	assert.Equal(t, "error", decode(t, out)["status"])

	before := r.Calls()
	args, _ := json.Marshal(map[string]string{"image_path": filepath.Join(outside, "secret.png")})
	_, err = r.Execute(ctx, "analyze_image", args)
	var capErr *domain.CapabilityError
	require.True(t, errors.As(err, &capErr))
	assert.Contains(t, capErr.Err.Error(), "outside the allowed directories")
	assert.Equal(t, before, r.Calls())

	_, err = r.Execute(ctx, "analyze_image", json.RawMessage(`{"image_path":"../../etc/passwd"}`))
	require.True(t, errors.As(err, &capErr))
}

func TestGateLeavesOtherCapabilitiesAlone(t *testing.T) {
	ctx := context.Background()
	gate, err := policy.NewCapabilityPolicy(ctx)
	require.NoError(t, err)
	r := newTestRegistry(t, Deps{Gate: gate, ImageRoots: []string{t.TempDir()}})

	_, err = r.Execute(ctx, "get_vehicle_details", json.RawMessage(`{"vin":"1HGBH41JXMN109186"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.Calls())
}

type fixedVision struct {
	content string
}

func (f fixedVision) CreateChatCompletion(context.Context, *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	return &llm.ChatCompletionResponse{Message: llm.ChatMessage{Role: "assistant", Content: f.content}}, nil
}

func TestAnalyzeImageCategories(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "photo.jpg"), []byte("\xff\xd8\xff"), 0o644))

	cases := map[string]string{
		`{"category":"selfie","summary":"a person"}`:           "unknown",
		`{"category":"Damage_Photo","summary":"front bumper"}`: "damage_photo",
		`{"category":"invoice"}`:                               "invoice",
		`not json`:                                             "unknown",
	}
	for reply, want := range cases {
		r := newTestRegistry(t, Deps{Vision: fixedVision{content: reply}, DataDir: dataDir})
		out, err := r.Execute(ctx, "analyze_image", json.RawMessage(`{"image_path":"photo.jpg"}`))
		require.NoError(t, err)
		res := decode(t, out)
		assert.Equal(t, "success", res["status"], reply)
		assert.Equal(t, want, res["category"], reply)
	}
}
