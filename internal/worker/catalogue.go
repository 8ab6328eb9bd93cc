package worker

import (
	_ "embed"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/adapter/llm"
)

//go:embed workers.yaml
var catalogueYAML []byte

// Definition is one catalogue entry.
type Definition struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tools       []string `yaml:"tools"`
	Prompt      string   `yaml:"prompt"`
}

type catalogue struct {
	Workers []Definition `yaml:"workers"`
}

// Catalogue returns the built-in worker definitions in definition order.
func Catalogue() ([]Definition, error) {
	var c catalogue
	if err := yaml.Unmarshal(catalogueYAML, &c); err != nil {
		return nil, errors.Wrap(err, "failed to parse worker catalogue")
	}
	return c.Workers, nil
}

// BuildOptions carries the shared dependencies of catalogue workers.
type BuildOptions struct {
	Client        llm.LLMClient
	Toolbox       Toolbox
	Model         string
	Temperature   *float32
	MaxIterations int
}

// Build constructs the registry of built-in workers.
func Build(opts BuildOptions) (*Registry, error) {
	defs, err := Catalogue()
	if err != nil {
		return nil, err
	}
	workers := make([]Worker, 0, len(defs))
	for _, s := range defs {
		w, err := NewReactWorker(ReactConfig{
			Name:          s.Name,
			Description:   s.Description,
			Prompt:        s.Prompt,
			Tools:         s.Tools,
			Client:        opts.Client,
			Toolbox:       opts.Toolbox,
			Model:         opts.Model,
			Temperature:   opts.Temperature,
			MaxIterations: opts.MaxIterations,
		})
		if err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}
	return NewRegistry(workers...)
}
