package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
)

func TestExtractLatestTurnWins(t *testing.T) {
	trace := turns(
		"Preliminary view: APPROVED",
		"nothing to see here",
		"After review the claim is DENIED.",
	)
	assert.Equal(t, TagDenied, NewExtractor().Extract(trace))
}

func TestExtractEmptyTrace(t *testing.T) {
	tag := NewExtractor().Extract(nil)
	assert.Equal(t, TagNone, tag)
	assert.Nil(t, tag.Ptr())
}

func TestExtractNoTag(t *testing.T) {
	assert.Equal(t, TagNone, NewExtractor().Extract(turns("all good", "thanks")))
}

func TestExtractCaseInsensitiveAndUppercased(t *testing.T) {
	tag := NewExtractor().Extract(turns("recommendation: requires_investigation"))
	assert.Equal(t, TagRequiresInvestigation, tag)
	assert.Equal(t, "REQUIRES_INVESTIGATION", *tag.Ptr())
}

func TestExtractWordBoundaries(t *testing.T) {
	assert.Equal(t, TagNone, NewExtractor().Extract(turns("PREAPPROVED", "UNDENIED")))
}

func TestExtractFirstMatchWithinTurn(t *testing.T) {
	trace := turns("PRIMARY RECOMMENDATION: APPROVED. Earlier drafts said DENIED.")
	assert.Equal(t, TagApproved, NewExtractor().Extract(trace))
}

func TestExtractCustomVocabulary(t *testing.T) {
	ex := NewExtractor("PUBLISH", "REJECT")
	trace := turns("listing looks fine, APPROVED", "final: reject")
	assert.Equal(t, Tag("REJECT"), ex.Extract(trace))
}

func TestExtractSeesToolCallText(t *testing.T) {
	trace := []domain.Turn{{
		Role: domain.RoleWorker,
		ToolCalls: []domain.ToolCall{{
			ID:        "c1",
			Name:      "note",
			Arguments: json.RawMessage(`{"status":"DENIED"}`),
		}},
	}}
	assert.Equal(t, TagDenied, NewExtractor().Extract(trace))
}
