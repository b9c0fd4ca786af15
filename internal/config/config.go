package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/matheusrwh/export-potential/internal/epi"
)

// Config is the complete, versioned run configuration. Every model
// parameter the pipeline consumes lives here and is injected into the
// stages; nothing is read from package-level state, so two runs with equal
// configs are reproducible.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Paths       PathsConfig       `yaml:"paths" envconfig:"PATHS"`
	Model       ModelConfig       `yaml:"model" envconfig:"MODEL"`
	Categorizer CategorizerConfig `yaml:"categorizer" envconfig:"CATEGORIZER"`
	Output      OutputConfig      `yaml:"output" envconfig:"OUTPUT"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
}

// PathsConfig locates the input tables and the output directory.
type PathsConfig struct {
	RawGlob          string `yaml:"raw_glob" envconfig:"RAW_GLOB" validate:"required"`
	CountriesFile    string `yaml:"countries_file" envconfig:"COUNTRIES_FILE" validate:"required"`
	ProductsFile     string `yaml:"products_file" envconfig:"PRODUCTS_FILE" validate:"required"`
	LocalizedFile    string `yaml:"localized_file" envconfig:"LOCALIZED_FILE"`
	PopulationFile   string `yaml:"population_file" envconfig:"POPULATION_FILE" validate:"required"`
	GDPFile          string `yaml:"gdp_file" envconfig:"GDP_FILE" validate:"required"`
	RegionSharesFile string `yaml:"region_shares_file" envconfig:"REGION_SHARES_FILE" validate:"required"`
	OutputDir        string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
}

// ModelConfig carries the numeric model parameters. They are deployment
// configuration, not business logic: the mechanism applying them is fixed,
// the values are not.
type ModelConfig struct {
	HomeCountry      string    `yaml:"home_country" envconfig:"HOME_COUNTRY" validate:"required,len=3"`
	HomeRegion       string    `yaml:"home_region" envconfig:"HOME_REGION" validate:"required"`
	BaseYear         int       `yaml:"base_year" envconfig:"BASE_YEAR" validate:"gt=1900"`
	TargetYear       int       `yaml:"target_year" envconfig:"TARGET_YEAR" validate:"gtfield=BaseYear"`
	UnitMultiplier   float64   `yaml:"unit_multiplier" envconfig:"UNIT_MULTIPLIER" validate:"gt=0"`
	Elasticity       float64   `yaml:"elasticity" envconfig:"ELASTICITY" validate:"gt=0"`
	HomeGrowthFactor float64   `yaml:"home_growth_factor" envconfig:"HOME_GROWTH_FACTOR" validate:"gte=0"`
	Weights          []float64 `yaml:"weights" envconfig:"WEIGHTS" validate:"min=1"`
}

// CategorizerConfig selects and parameterizes the bucketing policy.
type CategorizerConfig struct {
	Policy      string    `yaml:"policy" envconfig:"POLICY" validate:"oneof=fixed-threshold adaptive-cluster"`
	Tiers       []string  `yaml:"tiers" envconfig:"TIERS" validate:"min=2"`
	Thresholds  []float64 `yaml:"thresholds" envconfig:"THRESHOLDS"`
	MaxClusters int       `yaml:"max_clusters" envconfig:"MAX_CLUSTERS"`
}

// OutputConfig controls the optional output extras.
type OutputConfig struct {
	// FocusProduct, when set, additionally writes an Excel extract of the
	// EPI rows for that single product code.
	FocusProduct string `yaml:"focus_product" envconfig:"FOCUS_PRODUCT"`
}

// Default returns the deployed defaults. File and environment values layer
// on top of these.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Paths: PathsConfig{
			RawGlob:          "data/raw/*.csv",
			CountriesFile:    "references/countries.csv",
			ProductsFile:     "references/products.csv",
			PopulationFile:   "references/pop_growth.xlsx",
			GDPFile:          "references/gdp_growth.xlsx",
			RegionSharesFile: "references/region_shares.xlsx",
			OutputDir:        "data/processed",
		},
		Model: ModelConfig{
			HomeCountry:    "BRA",
			HomeRegion:     "SC",
			BaseYear:       2023,
			TargetYear:     2027,
			UnitMultiplier: 1000,
			Elasticity:     1.201,
			Weights:        []float64{0.2, 0.4, 0.6, 0.8, 1.0},
		},
		Categorizer: CategorizerConfig{
			Policy:      "fixed-threshold",
			Tiers:       []string{"Baixo", "Médio-baixo", "Médio", "Médio-alto", "Alto"},
			Thresholds:  []float64{0, 0.02, 0.04, 0.06, 0.2, 1.01},
			MaxClusters: 5,
		},
	}
}

// Load builds the effective configuration: defaults, overlaid by the YAML
// file when one exists at path, overlaid by EPI_* environment variables.
// Validation failures here are fatal; the pipeline never starts on a bad
// configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("EPI", &cfg); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration with struct tags plus the model-level
// rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	// The epi parameter types own the deeper invariants (weight monotonicity,
	// threshold ordering); surface their verdicts at load time.
	if err := c.ModelParams().Validate(); err != nil {
		return err
	}
	if err := c.CategorizerParams().Validate(); err != nil {
		return err
	}
	return nil
}

// ModelParams converts the configuration into the pipeline parameter struct.
func (c *Config) ModelParams() epi.Params {
	return epi.Params{
		HomeCountry:      c.Model.HomeCountry,
		HomeRegion:       c.Model.HomeRegion,
		UnitMultiplier:   c.Model.UnitMultiplier,
		Elasticity:       c.Model.Elasticity,
		HomeGrowthFactor: c.Model.HomeGrowthFactor,
		Weights:          epi.WeightSchedule(c.Model.Weights),
		Horizon: epi.Horizon{
			BaseYear:   c.Model.BaseYear,
			TargetYear: c.Model.TargetYear,
		},
	}
}

// CategorizerParams converts the categorizer section.
func (c *Config) CategorizerParams() epi.CategorizerParams {
	return epi.CategorizerParams{
		Policy:      epi.CategorizerPolicy(c.Categorizer.Policy),
		Tiers:       c.Categorizer.Tiers,
		Thresholds:  c.Categorizer.Thresholds,
		MaxClusters: c.Categorizer.MaxClusters,
	}
}

// OutputPath resolves a file name inside the configured output directory.
func (c *Config) OutputPath(name string) string {
	return filepath.Join(c.Paths.OutputDir, name)
}
