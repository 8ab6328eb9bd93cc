package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var team = []string{"claim_assessor", "policy_checker", "risk_analyst", "communication_agent"}

func newDispatch(t *testing.T) *DispatchPolicy {
	t.Helper()
	p, err := NewDispatchPolicy(context.Background())
	require.NoError(t, err)
	return p
}

func TestDispatchFollowsSequence(t *testing.T) {
	p := newDispatch(t)
	ctx := context.Background()

	d, err := p.Decide(ctx, DispatchInput{Workers: team})
	require.NoError(t, err)
	assert.Equal(t, ActionDispatch, d.Action)
	assert.Equal(t, "claim_assessor", d.Worker)

	d, err = p.Decide(ctx, DispatchInput{
		Workers:   team,
		Completed: []string{"claim_assessor"},
		Reports:   map[string]string{"claim_assessor": "Damage is consistent. VALID"},
	})
	require.NoError(t, err)
	assert.Equal(t, "policy_checker", d.Worker)
}

func TestDispatchSkipsUnregisteredWorkers(t *testing.T) {
	p := newDispatch(t)
	d, err := p.Decide(context.Background(), DispatchInput{Workers: []string{"risk_analyst"}})
	require.NoError(t, err)
	assert.Equal(t, "risk_analyst", d.Worker)
}

func TestDispatchApprovedWithoutOutreach(t *testing.T) {
	p := newDispatch(t)
	d, err := p.Decide(context.Background(), DispatchInput{
		Workers:   team,
		Completed: []string{"claim_assessor", "policy_checker", "risk_analyst"},
		Reports: map[string]string{
			"claim_assessor": "Assessment: VALID",
			"policy_checker": "Coverage: COVERED",
			"risk_analyst":   "Risk: LOW_RISK",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, ActionTerminate, d.Action)
	assert.Equal(t, "APPROVED", d.Recommendation)
	assert.Equal(t, "HIGH", d.Confidence)
	assert.Equal(t, "COVERED", d.Verdicts["policy_checker"])
}

func TestDispatchOutreachOnGaps(t *testing.T) {
	p := newDispatch(t)
	ctx := context.Background()
	in := DispatchInput{
		Workers:   team,
		Completed: []string{"claim_assessor", "policy_checker", "risk_analyst"},
		Reports: map[string]string{
			"claim_assessor": "Photos are missing. QUESTIONABLE",
			"policy_checker": "COVERED",
			"risk_analyst":   "Claimant X not found in database",
		},
	}

	d, err := p.Decide(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, ActionDispatch, d.Action)
	assert.Equal(t, "communication_agent", d.Worker)

	in.Completed = append(in.Completed, "communication_agent")
	in.Reports["communication_agent"] = "Dear customer, please send photos."
	d, err = p.Decide(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, ActionTerminate, d.Action)
	assert.Equal(t, "REQUIRES_INVESTIGATION", d.Recommendation)
	assert.Equal(t, "MEDIUM", d.Confidence)
}

func TestDispatchDeniedWins(t *testing.T) {
	p := newDispatch(t)
	d, err := p.Decide(context.Background(), DispatchInput{
		Workers:   team[:3],
		Completed: team[:3],
		Reports: map[string]string{
			"claim_assessor": "VALID",
			"policy_checker": "NOT_COVERED",
			"risk_analyst":   "LOW_RISK",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "DENIED", d.Recommendation)
	assert.Equal(t, "NOT_COVERED", d.Verdicts["policy_checker"])
}

func TestDispatchNoVerdicts(t *testing.T) {
	p := newDispatch(t)
	d, err := p.Decide(context.Background(), DispatchInput{})
	require.NoError(t, err)
	assert.Equal(t, ActionTerminate, d.Action)
	assert.Equal(t, "REQUIRES_INVESTIGATION", d.Recommendation)
	assert.Equal(t, "LOW", d.Confidence)
}

func TestCapabilityGate(t *testing.T) {
	ctx := context.Background()
	p, err := NewCapabilityPolicy(ctx)
	require.NoError(t, err)

	d, err := p.Check(ctx, CapabilityInput{
		Capability: "analyze_image",
		Args:       map[string]any{"image_path": "/data/claims/a.jpg"},
		Roots:      []string{"/data/"},
	})
	require.NoError(t, err)
	assert.True(t, d.Allow)

	d, err = p.Check(ctx, CapabilityInput{
		Capability: "analyze_image",
		Args:       map[string]any{"image_path": "/etc/passwd"},
		Roots:      []string{"/data/"},
	})
	require.NoError(t, err)
	assert.False(t, d.Allow)
	assert.NotEmpty(t, d.Reason)

	d, err = p.Check(ctx, CapabilityInput{
		Capability: "get_policy_details",
		Args:       map[string]any{"policy_number": "/etc/passwd"},
	})
	require.NoError(t, err)
	assert.True(t, d.Allow)
}
