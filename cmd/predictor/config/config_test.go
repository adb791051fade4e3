package config

import (
	"flag"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatiCode/trafficcast/pkg/models"
	"github.com/HatiCode/trafficcast/pkg/session"
)

func parse(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("predictor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return Parse(fs, args)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := parse(t, "--data", "traffic.csv")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Empty(t, cfg.GRPCListen)
	assert.Equal(t, session.SourceInline, cfg.ModelSource)
	assert.Equal(t, StoreFile, cfg.Store)
	assert.True(t, cfg.DropUndated)
	assert.False(t, cfg.SaveModel)
	assert.Equal(t, models.RegressorForest, cfg.Regressor)
	assert.Equal(t, 100, cfg.Trees)
	assert.Equal(t, 42, cfg.Seed)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParse_EnvFallback(t *testing.T) {
	t.Setenv("DATA", "env.csv")
	t.Setenv("TREES", "12")
	t.Setenv("DROP_UNDATED", "false")
	t.Setenv("RETRAIN_INTERVAL", "1h")

	cfg, err := parse(t)
	require.NoError(t, err)
	assert.Equal(t, "env.csv", cfg.DataPath)
	assert.Equal(t, 12, cfg.Trees)
	assert.False(t, cfg.DropUndated)
	assert.Equal(t, time.Hour, cfg.RetrainInterval)
}

func TestParse_FlagOverridesEnv(t *testing.T) {
	t.Setenv("TREES", "12")

	cfg, err := parse(t, "--data", "x.csv", "--trees", "7")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Trees)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"inline without data", nil, "--data is required"},
		{"unknown source", []string{"--model-source", "s3"}, "invalid --model-source"},
		{"unknown store", []string{"--data", "x.csv", "--store", "redis"}, "invalid --store"},
		{"unknown regressor", []string{"--data", "x.csv", "--regressor", "svm"}, "invalid --regressor"},
		{"disk from memory", []string{"--model-source", "disk", "--store", "memory"}, "cannot back a disk"},
		{"disk retrain", []string{"--model-source", "disk", "--retrain-interval", "1m"}, "requires --model-source=inline"},
		{"negative seed", []string{"--data", "x.csv", "--seed", "-1"}, "--seed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_DiskSourceNeedsNoData(t *testing.T) {
	cfg, err := parse(t, "--model-source", "disk", "--model-path", "m.json")
	require.NoError(t, err)
	assert.Equal(t, session.SourceDisk, cfg.ModelSource)
	assert.Equal(t, "m.json", cfg.ModelPath)
}

func TestConfig_ModelParams(t *testing.T) {
	cfg, err := parse(t, "--data", "x.csv", "--regressor", "baseline", "--trees", "5", "--max-depth", "8", "--seed", "3", "--jobs", "2")
	require.NoError(t, err)

	p := cfg.ModelParams()
	assert.Equal(t, models.RegressorBaseline, p.Regressor)
	assert.Equal(t, 5, p.Forest.Trees)
	assert.Equal(t, 8, p.Forest.MaxDepth)
	assert.Equal(t, uint64(3), p.Forest.Seed)
	assert.Equal(t, 2, p.Forest.Jobs)
}
