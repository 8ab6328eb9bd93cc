// Package config provides configuration for the claims service.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort       int
	RequestTimeout time.Duration

	// Database
	DatabaseURL string

	// Files
	DataDir     string
	PoliciesDir string
	UploadDir   string

	// Model access
	LLMMode             string
	LLMTimeout          time.Duration
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	AzureAPIKey         string
	AzureEndpoint       string
	AzureAPIVersion     string
	Deployment          string
	EmbeddingModel      string
	EmbeddingDimensions int
	Temperature         float64

	// Orchestration
	DispatchMode      string
	MaxSteps          int
	MaxToolIterations int

	// Knowledge
	KnowledgeTopK         int
	KnowledgeMinRelevance float64
	WatchPolicies         bool

	// CORS
	FrontendOrigin string
	AllowAllCORS   bool

	// Logging
	LogLevel  string
	LogFormat string
}

var defaults = map[string]any{
	"http_port":                    8080,
	"request_timeout_ms":           300000,
	"database_url":                 "file:claims.db?cache=shared&mode=rwc",
	"data_dir":                     "data",
	"policies_dir":                 "",
	"upload_dir":                   "",
	"llm_mode":                     "mock",
	"llm_timeout_ms":               120000,
	"openai_api_key":               "",
	"openai_base_url":              "",
	"azure_openai_api_key":         "",
	"azure_openai_endpoint":        "",
	"azure_openai_api_version":     "2024-08-01-preview",
	"azure_openai_deployment_name": "gpt-4.1-mini",
	"azure_openai_embedding_model": "text-embedding-3-large",
	"embedding_dimensions":         0,
	"llm_temperature":              0.1,
	"dispatch_mode":                "",
	"max_steps":                    25,
	"max_tool_iterations":          8,
	"knowledge_top_k":              5,
	"knowledge_min_relevance":      0.3,
	"watch_policies":               false,
	"frontend_origin":              "",
	"allow_all_cors":               false,
	"log_level":                    "info",
	"log_format":                   "console",
}

// Load reads configuration from environment variables and, when configFile
// is set, from that YAML file. Environment variables win.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}

	cfg := &Config{
		HTTPPort:              v.GetInt("http_port"),
		RequestTimeout:        time.Duration(v.GetInt("request_timeout_ms")) * time.Millisecond,
		DatabaseURL:           v.GetString("database_url"),
		DataDir:               v.GetString("data_dir"),
		PoliciesDir:           v.GetString("policies_dir"),
		UploadDir:             v.GetString("upload_dir"),
		LLMMode:               strings.ToLower(v.GetString("llm_mode")),
		LLMTimeout:            time.Duration(v.GetInt("llm_timeout_ms")) * time.Millisecond,
		OpenAIAPIKey:          v.GetString("openai_api_key"),
		OpenAIBaseURL:         v.GetString("openai_base_url"),
		AzureAPIKey:           v.GetString("azure_openai_api_key"),
		AzureEndpoint:         v.GetString("azure_openai_endpoint"),
		AzureAPIVersion:       v.GetString("azure_openai_api_version"),
		Deployment:            v.GetString("azure_openai_deployment_name"),
		EmbeddingModel:        v.GetString("azure_openai_embedding_model"),
		EmbeddingDimensions:   v.GetInt("embedding_dimensions"),
		Temperature:           v.GetFloat64("llm_temperature"),
		DispatchMode:          strings.ToLower(v.GetString("dispatch_mode")),
		MaxSteps:              v.GetInt("max_steps"),
		MaxToolIterations:     v.GetInt("max_tool_iterations"),
		KnowledgeTopK:         v.GetInt("knowledge_top_k"),
		KnowledgeMinRelevance: v.GetFloat64("knowledge_min_relevance"),
		WatchPolicies:         v.GetBool("watch_policies"),
		FrontendOrigin:        v.GetString("frontend_origin"),
		AllowAllCORS:          v.GetBool("allow_all_cors"),
		LogLevel:              v.GetString("log_level"),
		LogFormat:             v.GetString("log_format"),
	}

	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(cfg.DataDir, "uploads")
	}
	if cfg.DispatchMode == "" {
		cfg.DispatchMode = DispatchLLM
		if cfg.LLMMode == "" || cfg.LLMMode == "mock" {
			cfg.DispatchMode = DispatchPolicy
		}
	}
	if cfg.DispatchMode != DispatchLLM && cfg.DispatchMode != DispatchPolicy {
		return nil, errors.Errorf("unknown DISPATCH_MODE %q", cfg.DispatchMode)
	}
	if cfg.MaxSteps <= 0 {
		return nil, errors.Errorf("MAX_STEPS must be positive, got %d", cfg.MaxSteps)
	}
	return cfg, nil
}

const (
	DispatchLLM    = "llm"
	DispatchPolicy = "policy"
)

// DocumentsDir is where uploaded knowledge documents are stored.
func (c *Config) DocumentsDir() string {
	return filepath.Join(c.DataDir, "documents")
}
