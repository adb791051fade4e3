package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatiCode/trafficcast/pkg/dataset"
	"github.com/HatiCode/trafficcast/pkg/features"
	"github.com/HatiCode/trafficcast/pkg/models"
)

func trainedModel(t *testing.T) *models.FittedModel {
	t.Helper()
	start := time.Date(2012, time.October, 1, 0, 0, 0, 0, time.UTC)
	var table dataset.Table
	for i := range 48 {
		ts := start.Add(time.Duration(i) * time.Hour)
		table = append(table, dataset.Record{
			Timestamp:     sql.NullTime{Time: ts, Valid: true},
			Temp:          285,
			Holiday:       sql.NullString{String: "None", Valid: true},
			WeatherMain:   sql.NullString{String: "Clear", Valid: true},
			TrafficVolume: sql.NullInt64{Int64: int64(100 * ts.Hour()), Valid: true},
		})
	}
	m, err := models.NewTrainer(models.Params{Forest: models.ForestParams{Trees: 3}}).
		Train(context.Background(), features.Derive(table))
	require.NoError(t, err)
	return m
}

func TestFileStore_RoundTrip(t *testing.T) {
	m := trainedModel(t)
	path := filepath.Join(t.TempDir(), "nested", "model.json")
	s := NewFileStore(path)
	assert.Equal(t, path, s.Path())

	require.NoError(t, s.Save(m))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, m.ID(), loaded.ID())

	in := features.ConditionsAt(features.Conditions{Temp: 285, Holiday: "None", WeatherMain: "Clear"}, 2012, time.October, 1, 14).Input()
	want, err := m.Predict(in)
	require.NoError(t, err)
	got, err := loaded.Predict(in)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must be cleaned up")
}

func TestFileStore_Overwrite(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "model.json"))
	first, second := trainedModel(t), trainedModel(t)

	require.NoError(t, s.Save(first))
	require.NoError(t, s.Save(second))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, second.ID(), loaded.ID())
}

func TestFileStore_NotFound(t *testing.T) {
	_, err := NewFileStore(filepath.Join(t.TempDir(), "missing.json")).Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema":`), 0o644))

	_, err := NewFileStore(path).Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "decode model")
}

func TestFileStore_SaveNil(t *testing.T) {
	assert.Error(t, NewFileStore(filepath.Join(t.TempDir(), "m.json")).Save(nil))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNotFound)

	m := trainedModel(t)
	require.NoError(t, s.Save(m))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Same(t, m, loaded)
}
