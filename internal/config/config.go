package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gouplift/domain/experiment"
	"gouplift/domain/uplift"
	"gouplift/internal/errors"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Data       DataConfig       `yaml:"data"`
	Experiment ExperimentConfig `yaml:"experiment"`
	Bootstrap  BootstrapConfig  `yaml:"bootstrap"`
	Policy     PolicyConfig     `yaml:"policy"`
	Model      ModelConfig      `yaml:"model"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// DataConfig selects the input file and the modelled outcome
type DataConfig struct {
	Path    string `yaml:"path"`
	Outcome string `yaml:"outcome" validate:"oneof=conversion visit"`
}

// ExperimentConfig holds the split and the compared arm pairs
type ExperimentConfig struct {
	Seed              int64    `yaml:"seed"`
	TrainFraction     float64  `yaml:"train_fraction" validate:"gt=0,lt=1"`
	StratifyByOutcome bool     `yaml:"stratify_by_outcome"`
	ConversionPairs   []string `yaml:"conversion_pairs" validate:"required,min=1"`
	UpliftPairs       []string `yaml:"uplift_pairs" validate:"required,min=1"`
}

// BootstrapConfig controls the spend test resampling
type BootstrapConfig struct {
	Resamples  int     `yaml:"resamples" validate:"gt=0"`
	Seed       int64   `yaml:"seed"`
	Confidence float64 `yaml:"confidence" validate:"gt=0,lt=1"`
	Workers    int     `yaml:"workers" validate:"gte=0"`
}

// PolicyConfig holds the targeting fractions and unit economics
type PolicyConfig struct {
	Ks                  []float64 `yaml:"ks" validate:"required,min=1"`
	MarginPerConversion float64   `yaml:"margin_per_conversion" validate:"gt=0"`
	CostPerEmail        float64   `yaml:"cost_per_email" validate:"gte=0"`
}

// ModelConfig configures the per-arm classifier
type ModelConfig struct {
	Calibration string  `yaml:"calibration" validate:"oneof=isotonic sigmoid platt"`
	Folds       int     `yaml:"folds" validate:"gte=2"`
	L2          float64 `yaml:"l2" validate:"gte=0"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=postgres sqlite"`
	URL    string `yaml:"url"`
}

// ServerConfig holds report server settings
type ServerConfig struct {
	Port    string `yaml:"port" validate:"required"`
	GinMode string `yaml:"gin_mode" validate:"omitempty,oneof=debug release test"`
}

// LogConfig holds the log level name
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Data: DataConfig{Outcome: string(experiment.OutcomeConversion)},
		Experiment: ExperimentConfig{
			Seed:              42,
			TrainFraction:     0.7,
			StratifyByOutcome: true,
			ConversionPairs:   pairStrings(experiment.DefaultConversionPairs()),
			UpliftPairs:       pairStrings(experiment.DefaultTreatmentPairs()),
		},
		Bootstrap: BootstrapConfig{Resamples: 5000, Seed: 42, Confidence: 0.95},
		Policy: PolicyConfig{
			Ks:                  []float64{0.05, 0.1, 0.2, 0.3, 1.0},
			MarginPerConversion: 15,
			CostPerEmail:        0.10,
		},
		Model:    ModelConfig{Calibration: "isotonic", Folds: 3, L2: 1.0},
		Database: DatabaseConfig{Driver: "sqlite", URL: "uplift.db"},
		Server:   ServerConfig{Port: "8080", GinMode: "release"},
		Log:      LogConfig{Level: "INFO"},
	}
}

// Load layers configuration: defaults, then the YAML file at path (if path is
// non-empty), then .env and process environment overrides. The result is
// validated; any failure is a CONFIG_ERROR.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.ConfigError("read config %q: %v", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.ConfigError("parse config %q: %v", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

// Validate checks struct tags and that every pair parses
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s (%s=%s, got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
			}
			return errors.ConfigError("invalid fields: %s", strings.Join(fields, "; "))
		}
		return errors.ConfigError("validate config: %v", err)
	}
	if _, err := c.ConversionArmPairs(); err != nil {
		return err
	}
	if _, err := c.UpliftArmPairs(); err != nil {
		return err
	}
	return nil
}

// Outcome returns the parsed outcome selector
func (c *Config) Outcome() experiment.Outcome {
	o, err := experiment.ParseOutcome(c.Data.Outcome)
	if err != nil {
		return experiment.OutcomeConversion
	}
	return o
}

// Economics returns the unit economics for the policy simulator
func (c *Config) Economics() uplift.EconomicParameters {
	return uplift.EconomicParameters{
		MarginPerConversion: c.Policy.MarginPerConversion,
		CostPerEmail:        c.Policy.CostPerEmail,
	}
}

// ConversionArmPairs parses the conversion test pairs
func (c *Config) ConversionArmPairs() ([]experiment.ArmPair, error) {
	return parsePairs(c.Experiment.ConversionPairs)
}

// UpliftArmPairs parses the spend test and uplift pairs
func (c *Config) UpliftArmPairs() ([]experiment.ArmPair, error) {
	return parsePairs(c.Experiment.UpliftPairs)
}

func parsePairs(raw []string) ([]experiment.ArmPair, error) {
	pairs := make([]experiment.ArmPair, 0, len(raw))
	for _, s := range raw {
		p, err := experiment.ParseArmPair(s)
		if err != nil {
			return nil, errors.ConfigError("arm pair %q: %v", s, err)
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func pairStrings(pairs []experiment.ArmPair) []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = string(p.Treatment) + ":" + string(p.Control)
	}
	return out
}

// applyEnvOverrides replaces values whose environment variable is set.
// Malformed numbers are reported rather than ignored.
func applyEnvOverrides(cfg *Config) error {
	cfg.Data.Path = getEnvOrDefault("UPLIFT_DATA_PATH", cfg.Data.Path)
	cfg.Data.Outcome = getEnvOrDefault("UPLIFT_OUTCOME", cfg.Data.Outcome)
	cfg.Database.Driver = getEnvOrDefault("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.URL = getEnvOrDefault("DATABASE_URL", cfg.Database.URL)
	cfg.Server.Port = getEnvOrDefault("PORT", cfg.Server.Port)
	cfg.Server.GinMode = getEnvOrDefault("GIN_MODE", cfg.Server.GinMode)
	cfg.Log.Level = getEnvOrDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Model.Calibration = getEnvOrDefault("UPLIFT_CALIBRATION", cfg.Model.Calibration)

	var err error
	if cfg.Experiment.Seed, err = getEnvInt64OrDefault("UPLIFT_SEED", cfg.Experiment.Seed); err != nil {
		return err
	}
	if cfg.Experiment.TrainFraction, err = getEnvFloatOrDefault("UPLIFT_TRAIN_FRACTION", cfg.Experiment.TrainFraction); err != nil {
		return err
	}
	if cfg.Bootstrap.Seed, err = getEnvInt64OrDefault("UPLIFT_BOOTSTRAP_SEED", cfg.Bootstrap.Seed); err != nil {
		return err
	}
	resamples, err := getEnvInt64OrDefault("UPLIFT_RESAMPLES", int64(cfg.Bootstrap.Resamples))
	if err != nil {
		return err
	}
	cfg.Bootstrap.Resamples = int(resamples)
	if cfg.Policy.MarginPerConversion, err = getEnvFloatOrDefault("UPLIFT_MARGIN", cfg.Policy.MarginPerConversion); err != nil {
		return err
	}
	if cfg.Policy.CostPerEmail, err = getEnvFloatOrDefault("UPLIFT_COST", cfg.Policy.CostPerEmail); err != nil {
		return err
	}
	if v := os.Getenv("UPLIFT_KS"); v != "" {
		ks, err := ParseKs(v)
		if err != nil {
			return err
		}
		cfg.Policy.Ks = ks
	}
	return nil
}

// ParseKs parses a comma-separated list of targeting fractions
func ParseKs(s string) ([]float64, error) {
	var ks []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, errors.ConfigError("k %q is not a number", part)
		}
		ks = append(ks, k)
	}
	return ks, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errors.ConfigError("%s=%q is not an integer", key, value)
	}
	return v, nil
}

func getEnvFloatOrDefault(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.ConfigError("%s=%q is not a number", key, value)
	}
	return v, nil
}
