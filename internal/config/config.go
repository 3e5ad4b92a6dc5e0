package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level escape.yaml configuration.
type Config struct {
	Import     ImportConfig     `yaml:"import"`
	Duplicates DuplicatesConfig `yaml:"duplicates"`
	Transfers  TransfersConfig  `yaml:"transfers"`
	History    HistoryConfig    `yaml:"history"`
}

// ImportConfig controls the import pipeline's switchable behaviors and
// limits.
type ImportConfig struct {
	NormalizePayee        bool   `yaml:"normalize_payee"`
	ApplyAutoRules        bool   `yaml:"apply_auto_rules"`
	DetectDuplicates      bool   `yaml:"detect_duplicates"`
	SuggestTransfers      bool   `yaml:"suggest_transfers"`
	SaveProcessingHistory bool   `yaml:"save_processing_history"`
	MaxRows               int    `yaml:"max_rows"`
	MaxFileSizeMB         int64  `yaml:"max_file_size_mb"`
	TagDelimiter          string `yaml:"tag_delimiter"`
}

// DuplicatesConfig tunes duplicate detection.
type DuplicatesConfig struct {
	UseNormalizedPayee  bool    `yaml:"use_normalized_payee"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	DateToleranceDays   int     `yaml:"date_tolerance_days"`
}

// TransfersConfig tunes transfer suggestion.
type TransfersConfig struct {
	MaxDaysApart   int     `yaml:"max_days_apart"`
	MinScore       float64 `yaml:"min_score"`
	MaxSuggestions int     `yaml:"max_suggestions"`
	AmountEpsilon  string  `yaml:"amount_epsilon"`
}

// HistoryConfig bounds the processing audit trail.
type HistoryConfig struct {
	MaxDetailedTransactions int `yaml:"max_detailed_transactions"`
	MaxEventsPerTransaction int `yaml:"max_events_per_transaction"`
}

// Load reads an escape.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with the shipped defaults.
func Default() *Config {
	return &Config{
		Import: ImportConfig{
			NormalizePayee:        true,
			ApplyAutoRules:        true,
			DetectDuplicates:      true,
			SuggestTransfers:      true,
			SaveProcessingHistory: true,
			MaxRows:               1_000_000,
			MaxFileSizeMB:         50,
			TagDelimiter:          ",",
		},
		Duplicates: DuplicatesConfig{
			UseNormalizedPayee:  true,
			SimilarityThreshold: 0.85,
			DateToleranceDays:   2,
		},
		Transfers: TransfersConfig{
			MaxDaysApart:   3,
			MinScore:       0.5,
			MaxSuggestions: 50,
			AmountEpsilon:  "1.00",
		},
		History: HistoryConfig{
			MaxDetailedTransactions: 200,
			MaxEventsPerTransaction: 10,
		},
	}
}
