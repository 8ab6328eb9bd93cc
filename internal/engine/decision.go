package engine

import (
	"regexp"
	"strings"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
)

// Tag is a decision tag. TagNone means no tag was found.
type Tag string

const (
	TagNone                  Tag = ""
	TagApproved              Tag = "APPROVED"
	TagDenied                Tag = "DENIED"
	TagRequiresInvestigation Tag = "REQUIRES_INVESTIGATION"
)

// DefaultVocabulary is the claims decision vocabulary.
var DefaultVocabulary = []Tag{TagApproved, TagDenied, TagRequiresInvestigation}

// Extractor finds the terminal decision tag of a trace.
type Extractor struct {
	re *regexp.Regexp
}

// NewExtractor compiles an extractor for vocab, or DefaultVocabulary when empty.
func NewExtractor(vocab ...Tag) *Extractor {
	if len(vocab) == 0 {
		vocab = DefaultVocabulary
	}
	alts := make([]string, 0, len(vocab))
	for _, t := range vocab {
		alts = append(alts, regexp.QuoteMeta(string(t)))
	}
	return &Extractor{re: regexp.MustCompile(`(?i)\b(` + strings.Join(alts, "|") + `)\b`)}
}

// Extract scans the trace from the last turn backwards and returns the first
// tag found in the latest turn that contains one.
func (e *Extractor) Extract(trace []domain.Turn) Tag {
	for i := len(trace) - 1; i >= 0; i-- {
		if m := e.re.FindStringSubmatch(trace[i].Text()); m != nil {
			return Tag(strings.ToUpper(m[1]))
		}
	}
	return TagNone
}

// Ptr returns nil for TagNone so it encodes as JSON null.
func (t Tag) Ptr() *string {
	if t == TagNone {
		return nil
	}
	s := string(t)
	return &s
}
