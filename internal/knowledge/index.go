package knowledge

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
)

//go:embed policies/*.md
var canonicalPolicies embed.FS

const embedBatchSize = 16

// Index is a SQLite-backed vector index held in memory for search.
type Index struct {
	provider Provider
	store    ChunkStore
	splitter *Splitter
	// policiesDir holds extra canonical policy files next to the embedded set.
	policiesDir string
	uploaded    UploadedLoader

	mu          sync.RWMutex
	chunks      []domain.Chunk
	state       domain.IndexState
	lastBuiltAt *time.Time
	lastErr     string
}

var _ Source = (*Index)(nil)

// Options configures an Index.
type Options struct {
	Provider     Provider
	Store        ChunkStore
	ChunkSize    int
	ChunkOverlap int
	PoliciesDir  string
	Uploaded     UploadedLoader
}

// NewIndex creates an empty index. Call Load or Rebuild before searching.
func NewIndex(opts Options) *Index {
	if opts.Provider == nil {
		opts.Provider = NewHashProvider(0)
	}
	return &Index{
		provider:    opts.Provider,
		store:       opts.Store,
		splitter:    NewSplitter(opts.ChunkSize, opts.ChunkOverlap),
		policiesDir: opts.PoliciesDir,
		uploaded:    opts.Uploaded,
		state:       domain.IndexStateEmpty,
	}
}

// SetUploadedLoader sets the loader used by rebuilds that include uploads.
func (x *Index) SetUploadedLoader(l UploadedLoader) {
	x.mu.Lock()
	x.uploaded = l
	x.mu.Unlock()
}

// Load restores persisted chunks. It reports false when none were found or
// when they were embedded by a different model than the current provider,
// in which case the caller should rebuild.
func (x *Index) Load(ctx context.Context) (bool, error) {
	if x.store == nil {
		return false, nil
	}
	chunks, err := x.store.ListChunks(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to load knowledge chunks")
	}
	if len(chunks) == 0 {
		return false, nil
	}
	want := x.provider.Model().String()
	for _, c := range chunks {
		if c.EmbeddingModel != want {
			log.Warn().
				Str("stored_model", c.EmbeddingModel).
				Str("provider_model", want).
				Msg("persisted knowledge index was built by another embedding model")
			return false, nil
		}
	}
	now := time.Now()
	x.mu.Lock()
	x.chunks = chunks
	x.state = domain.IndexStateReady
	x.lastBuiltAt = &now
	x.lastErr = ""
	x.mu.Unlock()
	log.Info().Int("chunks", len(chunks)).Msg("knowledge index loaded")
	return true, nil
}

// Search returns up to topK chunks with relevance >= minRelevance, most
// relevant first.
func (x *Index) Search(ctx context.Context, query string, topK int, minRelevance float64) ([]Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	x.mu.RLock()
	ready := x.state == domain.IndexStateReady && len(x.chunks) > 0
	x.mu.RUnlock()
	if !ready {
		return nil, domain.ErrKnowledgeSourceUnavailable
	}

	vecs, err := x.provider.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, errors.Errorf("expected 1 query embedding, got %d", len(vecs))
	}
	q := vecs[0]

	x.mu.RLock()
	results := make([]Result, 0, topK)
	for _, c := range x.chunks {
		score := relevance(q, c.Embedding)
		if score < minRelevance {
			continue
		}
		results = append(results, Result{
			Content:    c.Content,
			Section:    c.Section,
			Source:     c.Source,
			PolicyType: c.PolicyType,
			Relevance:  score,
		})
	}
	x.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool { return results[i].Relevance > results[j].Relevance })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Add indexes one document and makes it searchable immediately. Documents
// whose format cannot be read as text are skipped and reported as false.
func (x *Index) Add(ctx context.Context, doc Document) (bool, error) {
	if !Indexable(doc.Filename) {
		return false, nil
	}
	chunks, err := x.embedDocuments(ctx, []Document{doc})
	if err != nil {
		return false, err
	}
	if len(chunks) == 0 {
		return false, nil
	}
	if x.store != nil {
		if err := x.store.AddChunks(ctx, doc.Source, chunks); err != nil {
			return false, errors.Wrap(err, "failed to persist chunks")
		}
	}

	now := time.Now()
	x.mu.Lock()
	kept := x.chunks[:0:0]
	for _, c := range x.chunks {
		if c.Source != doc.Source {
			kept = append(kept, c)
		}
	}
	x.chunks = append(kept, chunks...)
	x.state = domain.IndexStateReady
	x.lastBuiltAt = &now
	x.mu.Unlock()

	log.Info().Str("source", doc.Source).Int("chunks", len(chunks)).Msg("document added to knowledge index")
	return true, nil
}

// Remove drops a document's chunks.
func (x *Index) Remove(ctx context.Context, source string) error {
	if x.store != nil {
		if err := x.store.DeleteChunks(ctx, source); err != nil {
			return errors.Wrap(err, "failed to delete chunks")
		}
	}
	x.mu.Lock()
	kept := x.chunks[:0:0]
	for _, c := range x.chunks {
		if c.Source != source {
			kept = append(kept, c)
		}
	}
	x.chunks = kept
	x.mu.Unlock()
	return nil
}

// Rebuild recomputes the index from the canonical policies, plus uploaded
// documents when requested. A non-forced rebuild of a ready index does
// nothing and returns false.
func (x *Index) Rebuild(ctx context.Context, opts RebuildOptions) (bool, error) {
	x.mu.RLock()
	ready := x.state == domain.IndexStateReady
	loader := x.uploaded
	x.mu.RUnlock()
	if ready && !opts.Force {
		return false, nil
	}

	docs, err := x.canonicalDocuments()
	if err == nil && opts.IncludeUploaded && loader != nil {
		var uploaded []Document
		uploaded, err = loader(ctx)
		docs = append(docs, uploaded...)
	}
	var chunks []domain.Chunk
	if err == nil {
		chunks, err = x.embedDocuments(ctx, docs)
	}
	if err == nil && x.store != nil {
		err = x.store.ReplaceChunks(ctx, chunks)
	}
	if err != nil {
		x.mu.Lock()
		x.state = domain.IndexStateError
		x.lastErr = err.Error()
		x.mu.Unlock()
		return false, errors.Wrap(err, "knowledge index rebuild failed")
	}

	now := time.Now()
	x.mu.Lock()
	x.chunks = chunks
	x.state = domain.IndexStateReady
	x.lastBuiltAt = &now
	x.lastErr = ""
	x.mu.Unlock()

	log.Info().Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("knowledge index rebuilt")
	return true, nil
}

// Status reports the index state.
func (x *Index) Status(ctx context.Context) (domain.IndexStatus, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	sources := make(map[string]struct{})
	for _, c := range x.chunks {
		sources[c.Source] = struct{}{}
	}
	st := domain.IndexStatus{
		State:         x.state,
		Chunks:        len(x.chunks),
		Sources:       len(sources),
		EmbeddingDims: x.provider.Model().Dimensions,
		Error:         x.lastErr,
	}
	if x.lastBuiltAt != nil {
		t := *x.lastBuiltAt
		st.LastBuiltAt = &t
	}
	return st, nil
}

// canonicalDocuments reads the embedded policies and any policy files in
// policiesDir. Files in policiesDir replace embedded ones with the same name.
func (x *Index) canonicalDocuments() ([]Document, error) {
	byName := make(map[string]Document)
	var order []string
	put := func(d Document) {
		if _, ok := byName[d.Filename]; !ok {
			order = append(order, d.Filename)
		}
		byName[d.Filename] = d
	}

	err := fs.WalkDir(canonicalPolicies, "policies", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		b, err := canonicalPolicies.ReadFile(path)
		if err != nil {
			return err
		}
		name := filepath.Base(path)
		put(Document{Source: "policies/" + name, Filename: name, Origin: domain.ChunkOriginCanonical, Text: string(b)})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read embedded policies")
	}

	if x.policiesDir != "" {
		entries, err := os.ReadDir(x.policiesDir)
		if err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read %s", x.policiesDir)
		}
		for _, e := range entries {
			if e.IsDir() || !Indexable(e.Name()) {
				continue
			}
			b, err := os.ReadFile(filepath.Join(x.policiesDir, e.Name()))
			if err != nil {
				return nil, errors.Wrapf(err, "failed to read policy %s", e.Name())
			}
			put(Document{Source: "policies/" + e.Name(), Filename: e.Name(), Origin: domain.ChunkOriginCanonical, Text: string(b)})
		}
	}

	docs := make([]Document, 0, len(order))
	for _, name := range order {
		docs = append(docs, byName[name])
	}
	return docs, nil
}

// embedDocuments splits documents and embeds the chunks in parallel batches.
func (x *Index) embedDocuments(ctx context.Context, docs []Document) ([]domain.Chunk, error) {
	model := x.provider.Model().String()
	var chunks []domain.Chunk
	for _, d := range docs {
		if !Indexable(d.Filename) {
			continue
		}
		origin := d.Origin
		if origin == "" {
			origin = domain.ChunkOriginUploaded
		}
		for i, text := range x.splitter.Split(d.Text) {
			chunks = append(chunks, domain.Chunk{
				ID:             fmt.Sprintf("%s#%d", d.Source, i),
				Source:         d.Source,
				Origin:         origin,
				PolicyType:     PolicyType(d.Filename),
				Section:        SectionOf(d.Filename, text),
				Content:        text,
				EmbeddingModel: model,
			})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		batch := chunks[start:end]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Content
			}
			vecs, err := x.provider.Embed(gctx, texts)
			if err != nil {
				return err
			}
			if len(vecs) != len(batch) {
				return errors.Errorf("expected %d embeddings, got %d", len(batch), len(vecs))
			}
			for i := range batch {
				batch[i].Embedding = vecs[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}
