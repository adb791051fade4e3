package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatiCode/trafficcast/cmd/trainer/config"
	"github.com/HatiCode/trafficcast/pkg/features"
	"github.com/HatiCode/trafficcast/pkg/models"
	"github.com/HatiCode/trafficcast/pkg/storage"
)

func writeDataset(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "traffic.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func weekOfRows() string {
	var b strings.Builder
	b.WriteString("holiday,temp,rain_1h,snow_1h,clouds_all,weather_main,date_time,traffic_volume\n")
	for d := 1; d <= 7; d++ {
		for h := range 24 {
			fmt.Fprintf(&b, "None,%d,0,0,%d,Clouds,%02d-10-2012 %02d:00,%d\n", 275+h, (h*7)%100, d, h, 800+150*h)
		}
	}
	// one row the cleaner drops and one the loader cannot date
	b.WriteString("None,0,0,0,0,Clear,08-10-2012 00:00,100\n")
	b.WriteString("None,280,0,0,0,Clear,not a date,100\n")
	return b.String()
}

func TestRun(t *testing.T) {
	cfg := &config.Config{
		DataPath:     writeDataset(t, weekOfRows()),
		ModelPath:    filepath.Join(t.TempDir(), "out", "model.json"),
		TestFraction: 0.25,
		DropUndated:  true,
		Regressor:    models.RegressorForest,
		Trees:        10,
		Seed:         7,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	res, err := run(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.Equal(t, 126, res.TrainRows)
	require.NotNil(t, res.Evaluation)
	assert.Equal(t, 42, res.Evaluation.Rows)

	loaded, err := storage.NewFileStore(cfg.ModelPath).Load()
	require.NoError(t, err)
	assert.Equal(t, res.Model.ID(), loaded.ID())

	in := features.ConditionsAt(features.Conditions{
		Temp: 285, CloudsAll: 40, Holiday: "None", WeatherMain: "Clouds",
	}, 2012, 10, 3, 8).Input()
	want, err := res.Model.Predict(in)
	require.NoError(t, err)
	got, err := loaded.Predict(in)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRun_NoRows(t *testing.T) {
	cfg := &config.Config{
		DataPath:  writeDataset(t, "holiday,temp,rain_1h,snow_1h,clouds_all,weather_main,date_time,traffic_volume\n"),
		ModelPath: filepath.Join(t.TempDir(), "model.json"),
		Regressor: models.RegressorBaseline,
	}

	_, err := run(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorIs(t, err, models.ErrDataInsufficient)
	_, statErr := os.Stat(cfg.ModelPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_MissingFile(t *testing.T) {
	cfg := &config.Config{DataPath: filepath.Join(t.TempDir(), "nope.csv"), ModelPath: "m.json"}

	_, err := run(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load dataset")
}
