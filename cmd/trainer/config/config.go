// Package config implements the trafficcast offline trainer config.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/HatiCode/trafficcast/pkg/models"
)

// Config holds all trainer configuration.
type Config struct {
	DataPath     string
	ModelPath    string
	TestFraction float64
	DropUndated  bool

	Regressor      string
	Trees          int
	MaxDepth       int
	MinSamplesLeaf int
	MaxFeatures    int
	MaxBins        int
	Seed           int
	Jobs           int

	LogFormat string
	LogLevel  string
}

// ParseFlags loads an optional .env file, then parses command-line flags with
// environment variables as fallbacks. Exits with status 1 on invalid config.
func ParseFlags() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: loading .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// Parse registers the trainer flags on flags, parses args and validates the result.
func Parse(flags *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	def := models.DefaultForestParams()

	flags.StringVar(&cfg.DataPath, "data", getEnv("DATA", ""), "Path to the traffic CSV dataset (required)")
	flags.StringVar(&cfg.ModelPath, "model-path", getEnv("MODEL_PATH", "model.json"), "Where to write the trained model")
	flags.Float64Var(&cfg.TestFraction, "test-fraction", getEnvFloat("TEST_FRACTION", 0.2), "Share of rows held out for evaluation, in [0, 1)")
	flags.BoolVar(&cfg.DropUndated, "drop-undated", getEnvBool("DROP_UNDATED", true), "Drop rows without a timestamp before training")

	flags.StringVar(&cfg.Regressor, "regressor", getEnv("REGRESSOR", models.RegressorForest), "Regressor: forest or baseline")
	flags.IntVar(&cfg.Trees, "trees", getEnvInt("TREES", def.Trees), "Number of forest trees")
	flags.IntVar(&cfg.MaxDepth, "max-depth", getEnvInt("MAX_DEPTH", def.MaxDepth), "Maximum tree depth (0 = unlimited)")
	flags.IntVar(&cfg.MinSamplesLeaf, "min-samples-leaf", getEnvInt("MIN_SAMPLES_LEAF", def.MinSamplesLeaf), "Minimum samples per leaf")
	flags.IntVar(&cfg.MaxFeatures, "max-features", getEnvInt("MAX_FEATURES", def.MaxFeatures), "Features considered per split (0 = all)")
	flags.IntVar(&cfg.MaxBins, "max-bins", getEnvInt("MAX_BINS", def.MaxBins), "Candidate thresholds per feature")
	flags.IntVar(&cfg.Seed, "seed", getEnvInt("SEED", int(def.Seed)), "Random seed for training and the holdout split")
	flags.IntVar(&cfg.Jobs, "jobs", getEnvInt("JOBS", 0), "Trees built concurrently (0 = GOMAXPROCS)")

	flags.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flags.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	switch {
	case cfg.DataPath == "":
		return nil, errors.New("--data is required")
	case cfg.ModelPath == "":
		return nil, errors.New("--model-path is required")
	case cfg.TestFraction < 0 || cfg.TestFraction >= 1:
		return nil, fmt.Errorf("--test-fraction must be in [0, 1), got %g", cfg.TestFraction)
	case cfg.Seed < 0:
		return nil, fmt.Errorf("--seed must be >= 0, got %d", cfg.Seed)
	case cfg.Regressor != models.RegressorForest && cfg.Regressor != models.RegressorBaseline:
		return nil, fmt.Errorf("invalid --regressor %q", cfg.Regressor)
	}
	return cfg, nil
}

// ModelParams returns the training parameters selected by the config.
func (c *Config) ModelParams() models.Params {
	return models.Params{
		Regressor: c.Regressor,
		Forest: models.ForestParams{
			Trees:          c.Trees,
			MaxDepth:       c.MaxDepth,
			MinSamplesLeaf: c.MinSamplesLeaf,
			MaxFeatures:    c.MaxFeatures,
			MaxBins:        c.MaxBins,
			Seed:           uint64(c.Seed),
			Jobs:           c.Jobs,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True":
		return true
	case "0", "false", "FALSE", "False":
		return false
	}
	return defaultValue
}
