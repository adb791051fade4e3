// Package session provides the caller-owned handle that holds the loaded
// table and the current fitted model, with explicit load and train entry
// points instead of process-wide caching.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/HatiCode/trafficcast/pkg/adapters"
	"github.com/HatiCode/trafficcast/pkg/dataset"
	"github.com/HatiCode/trafficcast/pkg/features"
	"github.com/HatiCode/trafficcast/pkg/models"
)

// ErrNoDataSource is returned by LoadOnce when the session has no adapter.
var ErrNoDataSource = errors.New("no data source configured")

// Session owns at most one loaded table and one current model.
//
// The table is loaded once and replaced only by Reload; a replaced table is
// never mutated. The model is swapped atomically by Retrain; predictions
// already holding the previous model keep using it unchanged.
type Session struct {
	adapter  adapters.Adapter
	provider ModelProvider
	logger   *slog.Logger

	loadMu sync.Mutex
	loaded bool
	table  dataset.Table

	trainMu sync.Mutex
	model   atomic.Pointer[models.FittedModel]
}

// New creates a session. adapter may be nil when the session only serves
// a model loaded from disk.
func New(adapter adapters.Adapter, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{adapter: adapter, logger: logger}
}

// SetProvider sets the model provider used by TrainOnce and Retrain.
// Providers usually need the session itself as their TableSource, hence
// the two-step construction.
func (s *Session) SetProvider(p ModelProvider) {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()
	s.provider = p
}

// LoadOnce reads, cleans and derives the dataset on first call and returns
// the cached table afterwards. A failed load is retried on the next call.
func (s *Session) LoadOnce(ctx context.Context) (dataset.Table, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if s.loaded {
		return s.table, nil
	}
	return s.loadLocked(ctx)
}

// Reload reads the source again and replaces the cached table. On failure
// the previous table, if any, is kept.
func (s *Session) Reload(ctx context.Context) (dataset.Table, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Session) loadLocked(ctx context.Context) (dataset.Table, error) {
	if s.adapter == nil {
		return nil, ErrNoDataSource
	}

	raw, rep, err := s.adapter.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", s.adapter.Name(), err)
	}
	for _, perr := range rep.Errors {
		s.logger.Debug("dropped unparseable value", "error", perr)
	}

	cleaned, crep := dataset.Clean(raw)
	s.table = features.Derive(cleaned)
	s.loaded = true

	s.logger.Info("dataset loaded",
		"adapter", s.adapter.Name(),
		"rows", rep.Rows,
		"bad_timestamps", rep.BadTimestamps,
		"missing_targets", rep.MissingTargets,
		"dropped_temp", crep.DroppedTemp,
		"dropped_rain", crep.DroppedRain,
		"dropped_snow", crep.DroppedSnow,
		"clean_rows", crep.Output,
	)
	return s.table, nil
}

// Table returns the loaded table, if any.
func (s *Session) Table() (dataset.Table, bool) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.table, s.loaded
}

// TrainOnce obtains a model from the provider unless one is already held.
func (s *Session) TrainOnce(ctx context.Context) (*models.FittedModel, error) {
	if m := s.model.Load(); m != nil {
		return m, nil
	}

	s.trainMu.Lock()
	defer s.trainMu.Unlock()
	if m := s.model.Load(); m != nil {
		return m, nil
	}
	return s.provideLocked(ctx)
}

// Retrain reloads the data source, when there is one, and then obtains a
// new model and swaps it in. If either step fails the current table and
// model are kept. The previous model stays valid for callers still
// holding it.
func (s *Session) Retrain(ctx context.Context) (*models.FittedModel, error) {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	if s.adapter != nil {
		if _, err := s.Reload(ctx); err != nil {
			return nil, fmt.Errorf("reload: %w", err)
		}
	}
	return s.provideLocked(ctx)
}

func (s *Session) provideLocked(ctx context.Context) (*models.FittedModel, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("%w: no model provider configured", models.ErrModelUnavailable)
	}
	m, err := s.provider.Provide(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s provider: %w", s.provider.Name(), err)
	}
	s.model.Store(m)
	s.logger.Info("model ready", "provider", s.provider.Name(), "model_id", m.ID())
	return m, nil
}

// Model returns the current model or models.ErrModelUnavailable.
func (s *Session) Model() (*models.FittedModel, error) {
	m := s.model.Load()
	if m == nil {
		return nil, models.ErrModelUnavailable
	}
	return m, nil
}

// Ready reports whether a model is available.
func (s *Session) Ready() bool { return s.model.Load() != nil }

// Predict runs one prediction against the current model.
func (s *Session) Predict(in features.Input) (models.Prediction, error) {
	m, err := s.Model()
	if err != nil {
		return models.Prediction{}, err
	}
	return m.PredictDetailed(in)
}
