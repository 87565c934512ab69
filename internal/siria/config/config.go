// Package config loads the immutable Siria configuration: defaults, an
// optional YAML file validated against an embedded JSON Schema, then
// environment overrides. The resulting struct is passed into the core at
// construction — there is no ambient mutable configuration.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/siria-chat/siria/common/environment"
)

// CompletionConfig configures the completion collaborator.
type CompletionConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the completion timeout as a duration.
func (c CompletionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Config is the complete, immutable application configuration.
type Config struct {
	ListenAddr         string           `yaml:"listen_addr"`
	DatabasePath       string           `yaml:"database_path"`
	SystemPrompt       string           `yaml:"system_prompt"`
	GuestMessageLimit  int              `yaml:"guest_message_limit"`
	HistoryMaxMessages int              `yaml:"history_max_messages"`
	Completion         CompletionConfig `yaml:"completion"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:         ":8080",
		DatabasePath:       "./siria.db",
		SystemPrompt:       DefaultSystemPrompt,
		GuestMessageLimit:  5,
		HistoryMaxMessages: 200,
		Completion: CompletionConfig{
			BaseURL:        "https://api.avalai.ir/v1",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 60,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (when
// path is non-empty), then environment overrides. The file is validated
// against the embedded JSON Schema before decoding, so typos and wrong types
// fail fast with a precise error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Parse validates YAML config data against the schema and decodes it over
// the given config (fields absent from the file keep their current values).
func Parse(data []byte, cfg *Config) error {
	if err := validateSchema(data); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// validateSchema checks the raw YAML document against the embedded JSON
// Schema. The document is round-tripped through encoding/json so the schema
// library sees canonical JSON values.
func validateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		return nil
	}

	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert config to json: %w", err)
	}
	var v any
	if err := json.Unmarshal(jsonDoc, &v); err != nil {
		return fmt.Errorf("convert config to json: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("load config schema: %w", err)
	}
	schema, err := compiler.Compile("config.schema.json")
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyEnv overrides config fields from SIRIA_* environment variables.
func applyEnv(cfg *Config) {
	cfg.ListenAddr = environment.StringOr("SIRIA_LISTEN_ADDR", cfg.ListenAddr)
	cfg.DatabasePath = environment.StringOr("SIRIA_DB_PATH", cfg.DatabasePath)
	cfg.SystemPrompt = environment.StringOr("SIRIA_SYSTEM_PROMPT", cfg.SystemPrompt)
	cfg.GuestMessageLimit = environment.IntOr("SIRIA_GUEST_LIMIT", cfg.GuestMessageLimit)
	cfg.HistoryMaxMessages = environment.IntOr("SIRIA_HISTORY_MAX", cfg.HistoryMaxMessages)

	cfg.Completion.APIKey = environment.StringOr("SIRIA_API_KEY", cfg.Completion.APIKey)
	cfg.Completion.BaseURL = environment.StringOr("SIRIA_API_BASE_URL", cfg.Completion.BaseURL)
	cfg.Completion.Model = environment.StringOr("SIRIA_MODEL", cfg.Completion.Model)
	if d := environment.DurationOr("SIRIA_COMPLETION_TIMEOUT", 0); d > 0 {
		cfg.Completion.TimeoutSeconds = int(d / time.Second)
	}
}

// Validate checks the assembled configuration for structural correctness.
func Validate(cfg *Config) error {
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if cfg.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if cfg.GuestMessageLimit < 1 {
		return fmt.Errorf("guest_message_limit must be at least 1, got %d", cfg.GuestMessageLimit)
	}
	if cfg.HistoryMaxMessages < 1 {
		return fmt.Errorf("history_max_messages must be at least 1, got %d", cfg.HistoryMaxMessages)
	}
	if cfg.Completion.Model == "" {
		return fmt.Errorf("completion.model must not be empty")
	}
	if cfg.Completion.TimeoutSeconds < 1 {
		return fmt.Errorf("completion.timeout_seconds must be at least 1, got %d", cfg.Completion.TimeoutSeconds)
	}
	return nil
}
