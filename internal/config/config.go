// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"docsafe/internal/classifiers"
	"docsafe/internal/llm"
	"docsafe/internal/patterns"
)

// Config represents the configuration file structure
type Config struct {
	// Default settings
	Defaults struct {
		Strategy string `yaml:"strategy"`
		Format   string `yaml:"format"`
		Verbose  bool   `yaml:"verbose"`
		Debug    bool   `yaml:"debug"`
		NoColor  bool   `yaml:"no_color"`
	} `yaml:"defaults"`

	Classifier ClassifierConfig `yaml:"classifier"`
	LLM        LLMConfig        `yaml:"llm"`
	Batch      BatchConfig      `yaml:"batch"`

	// Filters extends the navigation rules with document-specific literals
	Filters struct {
		DocumentTitles     []string `yaml:"document_titles"`
		InternalReferences []string `yaml:"internal_references"`
	} `yaml:"filters"`

	// Patterns appends expressions to the built-in safety categories
	Patterns struct {
		Extra map[string][]string `yaml:"extra"`
	} `yaml:"patterns"`

	StyleGuide struct {
		Path string `yaml:"path"`
	} `yaml:"style_guide"`

	// Store is the sqlite audit database; empty disables it
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`

	Backup struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	// Profiles
	Profiles map[string]Profile `yaml:"profiles"`
}

// ClassifierConfig tunes stage 3
type ClassifierConfig struct {
	Threshold  float64 `yaml:"threshold"`
	ExactTable string  `yaml:"exact_table"`
}

// LLMConfig selects the remote backend
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Host        string        `yaml:"host"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int64         `yaml:"max_tokens"`
}

// BatchConfig tunes the unattended runner
type BatchConfig struct {
	SaveEvery    int    `yaml:"save_every"`
	ProgressFile string `yaml:"progress_file"`
	Workers      int    `yaml:"workers"`
}

// Profile represents a named set of overrides
type Profile struct {
	Strategy    string       `yaml:"strategy"`
	Format      string       `yaml:"format"`
	Verbose     bool         `yaml:"verbose"`
	Debug       bool         `yaml:"debug"`
	NoColor     bool         `yaml:"no_color"`
	Description string       `yaml:"description"`
	LLM         *LLMConfig   `yaml:"llm,omitempty"`
	Batch       *BatchConfig `yaml:"batch,omitempty"`
}

// Output formats accepted for reports
var validFormats = map[string]bool{"text": true, "json": true, "yaml": true}

// LoadConfig loads configuration from a YAML file. An empty path returns the
// defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := defaultConfig()

	if configPath == "" {
		return config, nil
	}

	cleanPath := filepath.Clean(configPath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// The default model belongs to the default provider; switching provider
	// without naming a model lets the backend pick its own default.
	if !containsField(data, "llm", "model") && !strings.EqualFold(config.LLM.Provider, llm.ProviderOllama) {
		config.LLM.Model = ""
	}
	if config.Profiles == nil {
		config.Profiles = make(map[string]Profile)
	}
	if _, ok := config.Profiles["overnight"]; !ok {
		config.Profiles["overnight"] = overnightProfile()
	}

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func defaultConfig() *Config {
	config := &Config{Profiles: make(map[string]Profile)}

	config.Defaults.Strategy = classifiers.StrategyPattern
	config.Defaults.Format = "text"

	config.Classifier.Threshold = classifiers.DefaultThreshold

	config.LLM.Provider = llm.ProviderOllama
	config.LLM.Host = llm.DefaultOllamaHost
	config.LLM.Model = llm.DefaultOllamaModel
	config.LLM.Timeout = 20 * time.Second
	config.LLM.MaxRetries = 3
	config.LLM.Temperature = 0.1

	config.Batch.SaveEvery = 50
	config.Batch.ProgressFile = ".docsafe_progress.json"
	config.Batch.Workers = 1

	config.Backup.Dir = "backups"
	config.Backup.RetentionDays = 30

	config.Profiles["overnight"] = overnightProfile()
	return config
}

// overnightProfile is the built-in unattended batch profile
func overnightProfile() Profile {
	return Profile{
		Strategy:    classifiers.StrategyLLM,
		Format:      "text",
		NoColor:     true,
		Description: "Unattended run against a local model with frequent progress saves",
		Batch:       &BatchConfig{SaveEvery: 50, Workers: 1},
	}
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	for _, name := range []string{"docsafe.yaml", "docsafe.yml", ".docsafe.yaml", ".docsafe.yml"} {
		if fileExists(name) {
			return name
		}
	}

	if dir, err := os.UserConfigDir(); err == nil {
		candidate := filepath.Join(dir, "docsafe", "config.yaml")
		if fileExists(candidate) {
			return candidate
		}
	}

	if runtime.GOOS != "windows" {
		if home, err := os.UserHomeDir(); err == nil {
			candidate := filepath.Join(home, ".docsafe", "config.yaml")
			if fileExists(candidate) {
				return candidate
			}
		}
	}

	return ""
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ListProfiles returns a sorted list of profile names
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles
}

// GetProfile returns a profile by name
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// ApplyProfile overlays a named profile on the defaults. Unset profile
// fields leave the defaults alone.
func (c *Config) ApplyProfile(name string) error {
	p := c.GetProfile(name)
	if p == nil {
		return fmt.Errorf("profile %q not found (available: %s)", name, strings.Join(c.ListProfiles(), ", "))
	}
	if p.Strategy != "" {
		c.Defaults.Strategy = p.Strategy
	}
	if p.Format != "" {
		c.Defaults.Format = p.Format
	}
	c.Defaults.Verbose = c.Defaults.Verbose || p.Verbose
	c.Defaults.Debug = c.Defaults.Debug || p.Debug
	c.Defaults.NoColor = c.Defaults.NoColor || p.NoColor

	if p.LLM != nil {
		mergeLLM(&c.LLM, *p.LLM)
	}
	if p.Batch != nil {
		if p.Batch.SaveEvery > 0 {
			c.Batch.SaveEvery = p.Batch.SaveEvery
		}
		if p.Batch.Workers > 0 {
			c.Batch.Workers = p.Batch.Workers
		}
		if p.Batch.ProgressFile != "" {
			c.Batch.ProgressFile = p.Batch.ProgressFile
		}
	}
	return ValidateConfig(c)
}

func mergeLLM(dst *LLMConfig, src LLMConfig) {
	if src.Provider != "" && !strings.EqualFold(src.Provider, dst.Provider) {
		dst.Provider = src.Provider
		dst.Model = ""
	}
	if src.Host != "" {
		dst.Host = src.Host
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Timeout > 0 {
		dst.Timeout = src.Timeout
	}
	if src.MaxRetries > 0 {
		dst.MaxRetries = src.MaxRetries
	}
	if src.Temperature > 0 {
		dst.Temperature = src.Temperature
	}
	if src.MaxTokens > 0 {
		dst.MaxTokens = src.MaxTokens
	}
}

// containsField checks if a specific field path exists in the YAML data
func containsField(data []byte, path ...string) bool {
	var yamlData map[string]interface{}
	err := yaml.Unmarshal(data, &yamlData)
	if err != nil {
		return false
	}

	current := yamlData
	for i, key := range path {
		if i == len(path)-1 {
			_, exists := current[key]
			return exists
		}
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return false
		}
	}
	return false
}

// ValidateConfig checks every section and reports all problems together
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}
	var errs []error

	switch strings.ToLower(config.Defaults.Strategy) {
	case classifiers.StrategyRule, classifiers.StrategyPattern, classifiers.StrategyLLM:
	default:
		errs = append(errs, fmt.Errorf("defaults.strategy: unknown strategy %q", config.Defaults.Strategy))
	}
	if !validFormats[strings.ToLower(config.Defaults.Format)] {
		errs = append(errs, fmt.Errorf("defaults.format: unknown format %q", config.Defaults.Format))
	}

	if config.Classifier.Threshold < 0 || config.Classifier.Threshold > 1 {
		errs = append(errs, fmt.Errorf("classifier.threshold must be within [0, 1], got %v", config.Classifier.Threshold))
	}

	switch strings.ToLower(config.LLM.Provider) {
	case llm.ProviderOllama, llm.ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", config.LLM.Provider))
	}
	if config.LLM.Timeout < 0 {
		errs = append(errs, fmt.Errorf("llm.timeout must not be negative"))
	}
	if config.LLM.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("llm.max_retries must be at least 1, got %d", config.LLM.MaxRetries))
	}
	if config.LLM.Temperature < 0 || config.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be within [0, 2], got %v", config.LLM.Temperature))
	}

	if config.Batch.SaveEvery < 1 {
		errs = append(errs, fmt.Errorf("batch.save_every must be at least 1, got %d", config.Batch.SaveEvery))
	}
	if config.Batch.Workers < 1 {
		errs = append(errs, fmt.Errorf("batch.workers must be at least 1, got %d", config.Batch.Workers))
	}
	if strings.TrimSpace(config.Batch.ProgressFile) == "" {
		errs = append(errs, fmt.Errorf("batch.progress_file must not be empty"))
	}

	if config.Backup.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("backup.retention_days must not be negative"))
	}

	if len(config.Patterns.Extra) > 0 {
		if _, err := patterns.New(config.Patterns.Extra); err != nil {
			errs = append(errs, fmt.Errorf("patterns.extra: %w", err))
		}
	}

	for _, name := range sortedKeys(config.Profiles) {
		p := config.Profiles[name]
		if p.Format != "" && !validFormats[strings.ToLower(p.Format)] {
			errs = append(errs, fmt.Errorf("profile %s: unknown format %q", name, p.Format))
		}
	}

	return errors.Join(errs...)
}

func sortedKeys(m map[string]Profile) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RemoteConfig translates the llm and classifier sections for the remote classifier
func (c *Config) RemoteConfig() classifiers.RemoteConfig {
	rc := classifiers.DefaultRemoteConfig()
	rc.Threshold = c.Classifier.Threshold
	if c.LLM.MaxRetries > 0 {
		rc.Retry.MaxAttempts = c.LLM.MaxRetries
	}
	if c.LLM.Timeout > 0 {
		rc.Retry.AttemptTimeout = c.LLM.Timeout
	}
	return rc
}

// BackendConfig translates the llm section for llm.New
func (c *Config) BackendConfig() llm.Config {
	return llm.Config{
		Provider:    c.LLM.Provider,
		Host:        c.LLM.Host,
		Model:       c.LLM.Model,
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
	}
}

// Retention returns the backup retention period
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Backup.RetentionDays) * 24 * time.Hour
}

// LoadConfigOrDefault loads the given file, or the first one FindConfigFile
// turns up, and falls back to defaults on any error.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		// callers should not crash on a missing or bad config file
		cfg, _ = LoadConfig("")
	}
	return cfg
}
