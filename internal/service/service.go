// Package service implements the claims use cases on top of the engine,
// the knowledge index and the store.
package service

import (
	"github.com/yassinsws/microsoft-agent-hackathon/internal/config"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/engine"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/knowledge"
	store "github.com/yassinsws/microsoft-agent-hackathon/internal/repository"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/sample"
)

type Service struct {
	store     store.Store
	engine    *engine.Engine
	extractor *engine.Extractor
	samples   *sample.Catalogue
	index     *knowledge.Index
	config    *config.Config
}

func New(store store.Store, eng *engine.Engine, samples *sample.Catalogue, index *knowledge.Index, cfg *config.Config) *Service {
	s := &Service{
		store:     store,
		engine:    eng,
		extractor: engine.NewExtractor(),
		samples:   samples,
		index:     index,
		config:    cfg,
	}
	if index != nil {
		index.SetUploadedLoader(s.uploadedDocuments)
	}
	return s
}
