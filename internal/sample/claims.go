// Package sample holds the canned demo claims.
package sample

import (
	_ "embed"
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
)

//go:embed claims.yaml
var claimsYAML []byte

// Usage is the hint shown next to the sample catalogue.
const Usage = "Use POST /api/v1/workflow/run with {'claim_id': 'CLM-2024-001'} to process a sample claim"

// Summary is the catalogue view of a sample claim.
type Summary struct {
	ClaimID         string  `json:"claim_id"`
	ClaimantName    string  `json:"claimant_name"`
	ClaimType       string  `json:"claim_type"`
	EstimatedDamage float64 `json:"estimated_damage"`
	Description     string  `json:"description"`
}

// Catalogue is an ordered set of sample claims.
type Catalogue struct {
	claims []domain.Claim
}

// Load parses the embedded sample claims.
func Load() (*Catalogue, error) {
	var doc struct {
		Claims []map[string]any `yaml:"claims"`
	}
	if err := yaml.Unmarshal(claimsYAML, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse sample claims")
	}
	c := &Catalogue{}
	for i, raw := range doc.Claims {
		claim := domain.Claim(raw)
		if claim.ID() == "" {
			return nil, fmt.Errorf("sample claim %d has no claim_id", i)
		}
		c.claims = append(c.claims, claim)
	}
	return c, nil
}

// IDs returns the claim ids in catalogue order.
func (c *Catalogue) IDs() []string {
	out := make([]string, 0, len(c.claims))
	for _, claim := range c.claims {
		out = append(out, claim.ID())
	}
	return out
}

// List returns a summary of every sample claim.
func (c *Catalogue) List() []Summary {
	out := make([]Summary, 0, len(c.claims))
	for _, claim := range c.claims {
		damage, _ := claim["estimated_damage"].(float64)
		out = append(out, Summary{
			ClaimID:         claim.ID(),
			ClaimantName:    claim.String("claimant_name"),
			ClaimType:       claim.String("claim_type"),
			EstimatedDamage: damage,
			Description:     claim.String("description"),
		})
	}
	return out
}

// Get returns a copy of the sample claim with the given id.
func (c *Catalogue) Get(id string) (domain.Claim, error) {
	for _, claim := range c.claims {
		if claim.ID() == id {
			return clone(claim).(map[string]any), nil
		}
	}
	return nil, &domain.UnknownClaimError{ClaimID: id, Known: c.IDs()}
}

// Resolve turns a request body into the claim to process. A known claim_id
// loads the sample and applies the remaining fields on top of it. An unknown
// claim_id is always an UnknownClaimError, whatever else the body carries.
func (c *Catalogue) Resolve(req domain.Claim) (domain.Claim, error) {
	id := req.ID()
	if id == "" {
		return req, nil
	}
	base, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	for k, v := range req {
		if k == "claim_id" || v == nil {
			continue
		}
		base[k] = v
	}
	return base, nil
}

func clone(v any) any {
	switch val := v.(type) {
	case domain.Claim:
		return clone(map[string]any(val))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = clone(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = clone(item)
		}
		return out
	default:
		return v
	}
}
