// Package config implements the trafficcast predictor config.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/HatiCode/trafficcast/pkg/models"
	"github.com/HatiCode/trafficcast/pkg/session"
)

// Storage backends.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
)

// Config holds all predictor configuration.
type Config struct {
	Listen     string
	GRPCListen string

	DataPath    string
	DropUndated bool

	ModelSource     string
	ModelPath       string
	Store           string
	SaveModel       bool
	RetrainInterval time.Duration

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

// Parse registers the predictor flags on flags, parses args and validates the result.
func Parse(flags *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	def := models.DefaultForestParams()

	// Server
	flags.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8080"), "HTTP listen address")
	flags.StringVar(&cfg.GRPCListen, "grpc-listen", getEnv("GRPC_LISTEN", ""), "gRPC health listen address (empty disables)")

	// Dataset
	flags.StringVar(&cfg.DataPath, "data", getEnv("DATA", ""), "Path to the traffic CSV dataset")
	flags.BoolVar(&cfg.DropUndated, "drop-undated", getEnvBool("DROP_UNDATED", true), "Drop rows without a timestamp before training")

	// Model source
	flags.StringVar(&cfg.ModelSource, "model-source", getEnv("MODEL_SOURCE", session.SourceInline), "Model source: inline or disk")
	flags.StringVar(&cfg.ModelPath, "model-path", getEnv("MODEL_PATH", "model.json"), "Model file for the file store")
	flags.StringVar(&cfg.Store, "store", getEnv("STORE", StoreFile), "Model store: file or memory")
	flags.BoolVar(&cfg.SaveModel, "save-model", getEnvBool("SAVE_MODEL", false), "Persist inline-trained models to the store")
	flags.DurationVar(&cfg.RetrainInterval, "retrain-interval", getEnvDuration("RETRAIN_INTERVAL", 0), "Periodic retrain interval for inline models (0 disables)")

	// Training
	flags.StringVar(&cfg.Regressor, "regressor", getEnv("REGRESSOR", models.RegressorForest), "Regressor: forest or baseline")
	flags.IntVar(&cfg.Trees, "trees", getEnvInt("TREES", def.Trees), "Number of forest trees")
	flags.IntVar(&cfg.MaxDepth, "max-depth", getEnvInt("MAX_DEPTH", def.MaxDepth), "Maximum tree depth (0 = unlimited)")
	flags.IntVar(&cfg.MinSamplesLeaf, "min-samples-leaf", getEnvInt("MIN_SAMPLES_LEAF", def.MinSamplesLeaf), "Minimum samples per leaf")
	flags.IntVar(&cfg.MaxFeatures, "max-features", getEnvInt("MAX_FEATURES", def.MaxFeatures), "Features considered per split (0 = all)")
	flags.IntVar(&cfg.MaxBins, "max-bins", getEnvInt("MAX_BINS", def.MaxBins), "Candidate thresholds per feature")
	flags.IntVar(&cfg.Seed, "seed", getEnvInt("SEED", int(def.Seed)), "Random seed")
	flags.IntVar(&cfg.Jobs, "jobs", getEnvInt("JOBS", 0), "Trees built concurrently (0 = GOMAXPROCS)")

	// Logging
	flags.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flags.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks option combinations.
func (c *Config) Validate() error {
	switch c.ModelSource {
	case session.SourceInline:
		if c.DataPath == "" {
			return errors.New("--data is required for inline models")
		}
	case session.SourceDisk:
		if c.Store == StoreMemory {
			return errors.New("--store=memory cannot back a disk model source")
		}
		if c.RetrainInterval > 0 {
			return errors.New("--retrain-interval requires --model-source=inline")
		}
	default:
		return fmt.Errorf("invalid --model-source %q", c.ModelSource)
	}

	switch c.Store {
	case StoreFile:
		if c.ModelPath == "" {
			return errors.New("--model-path is required for the file store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("invalid --store %q", c.Store)
	}

	switch c.Regressor {
	case models.RegressorForest, models.RegressorBaseline:
	default:
		return fmt.Errorf("invalid --regressor %q", c.Regressor)
	}

	if c.Seed < 0 {
		return fmt.Errorf("--seed must be >= 0, got %d", c.Seed)
	}
	if c.RetrainInterval < 0 {
		return fmt.Errorf("--retrain-interval must be >= 0, got %s", c.RetrainInterval)
	}
	return nil
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

func getEnvBool(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True":
		return true
	case "0", "false", "FALSE", "False":
		return false
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
