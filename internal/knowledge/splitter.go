package knowledge

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

var separators = []string{"\n\n", "\n", ".", "!", "?", ",", " "}

// Splitter cuts text into overlapping chunks, preferring paragraph, line and
// sentence boundaries.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter creates a Splitter. Overlap is clamped below size.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Splitter{size: size, overlap: overlap}
}

// Split returns the chunks of text. Blank input yields no chunks. No chunk is
// longer than size: the overlap carried into a chunk shrinks to make room for
// the piece that follows it.
func (s *Splitter) Split(text string) []string {
	pieces := s.pieces(strings.TrimSpace(text), 0)

	var chunks []string
	var cur string
	for _, p := range pieces {
		if cur != "" && len(cur)+len(p) > s.size {
			chunks = append(chunks, strings.TrimSpace(cur))
			cur = tail(cur, min(s.overlap, s.size-len(p)))
		}
		cur += p
	}
	if strings.TrimSpace(cur) != "" {
		chunks = append(chunks, strings.TrimSpace(cur))
	}
	return chunks
}

// pieces splits text into parts no longer than size, keeping separators.
func (s *Splitter) pieces(text string, level int) []string {
	if len(text) <= s.size {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	if level >= len(separators) {
		var out []string
		for len(text) > s.size {
			out = append(out, text[:s.size])
			text = text[s.size:]
		}
		if text != "" {
			out = append(out, text)
		}
		return out
	}

	sep := separators[level]
	parts := strings.SplitAfter(text, sep)
	if len(parts) == 1 {
		return s.pieces(text, level+1)
	}
	var out []string
	for _, p := range parts {
		out = append(out, s.pieces(p, level+1)...)
	}
	return out
}

// tail returns at most n trailing bytes of s, starting at a word boundary.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	t := s[len(s)-n:]
	if i := strings.IndexAny(t, " \n"); i >= 0 {
		t = t[i+1:]
	}
	return t
}

// SectionOf returns the label of the first "## Section X:" heading in a
// markdown chunk, or "General".
func SectionOf(filename, chunk string) string {
	if strings.ToLower(filepath.Ext(filename)) != ".md" {
		return "General"
	}
	for _, line := range strings.Split(chunk, "\n") {
		if !strings.HasPrefix(line, "## Section ") && !strings.HasPrefix(line, "### Section ") {
			continue
		}
		head, _, ok := strings.Cut(line, ":")
		if !ok {
			break
		}
		_, label, _ := strings.Cut(head, "Section ")
		if label = strings.TrimSpace(label); label != "" {
			return label
		}
		break
	}
	return "General"
}

// PolicyType derives a display label from a file name, e.g.
// "comprehensive_auto.md" -> "Comprehensive Auto".
func PolicyType(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return cases.Title(language.English).String(strings.ReplaceAll(stem, "_", " "))
}

// Indexable reports whether a file's text can be indexed.
func Indexable(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".txt":
		return true
	}
	return false
}
