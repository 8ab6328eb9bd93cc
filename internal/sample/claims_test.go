package sample

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
)

func load(t *testing.T) *Catalogue {
	t.Helper()
	c, err := Load()
	require.NoError(t, err)
	return c
}

func TestListSampleClaims(t *testing.T) {
	c := load(t)
	assert.Equal(t, []string{"CLM-2024-001", "CLM-2024-002", "CLM-2024-004"}, c.IDs())

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, "John Smith", list[0].ClaimantName)
	assert.Equal(t, 45000.0, list[1].EstimatedDamage)
}

func TestGetKnownClaim(t *testing.T) {
	c := load(t)
	claim, err := c.Get("CLM-2024-004")
	require.NoError(t, err)
	assert.Equal(t, "UNAuto-02-2024-567890", claim.String("policy_number"))

	vehicle := claim["vehicle_info"].(map[string]any)
	assert.Equal(t, "WVWZZZ1JZXW123456", vehicle["vin"])

	// Callers get a copy.
	vehicle["vin"] = "changed"
	again, err := c.Get("CLM-2024-004")
	require.NoError(t, err)
	assert.Equal(t, "WVWZZZ1JZXW123456", again["vehicle_info"].(map[string]any)["vin"])
}

func TestGetUnknownClaim(t *testing.T) {
	_, err := load(t).Get("CLM-9999")
	var unknown *domain.UnknownClaimError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "Claim ID 'CLM-9999' not found. Available sample claim IDs: [CLM-2024-001, CLM-2024-002, CLM-2024-004]", err.Error())
}

func TestResolve(t *testing.T) {
	c := load(t)

	claim, err := c.Resolve(domain.Claim{"claim_id": "CLM-2024-001", "supporting_images": []any{"claims/other.png"}})
	require.NoError(t, err)
	assert.Equal(t, "POL-2024-001", claim.String("policy_number"))
	assert.Equal(t, []any{"claims/other.png"}, claim["supporting_images"])

	_, err = c.Resolve(domain.Claim{"claim_id": "NOPE"})
	assert.Error(t, err)

	full := domain.Claim{"policy_number": "POL-X"}
	claim, err = c.Resolve(full)
	require.NoError(t, err)
	assert.Equal(t, "POL-X", claim.String("policy_number"))

	claim, err = c.Resolve(domain.Claim{"description": "no id"})
	require.NoError(t, err)
	assert.Equal(t, "no id", claim.String("description"))
}

func TestResolveUnknownIDWithFields(t *testing.T) {
	c := load(t)

	claim, err := c.Resolve(domain.Claim{"claim_id": "CLM-DOES-NOT-EXIST", "description": "x"})
	assert.Nil(t, claim)
	var unknown *domain.UnknownClaimError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "CLM-DOES-NOT-EXIST", unknown.ClaimID)
	assert.Contains(t, unknown.Known, "CLM-2024-001")
}
