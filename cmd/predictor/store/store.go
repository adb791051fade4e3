// Package store provides model store initialization for the predictor.
//
// The file store keeps one model as JSON on disk and backs both model
// sources. The memory store only holds models trained inline by this
// process and is lost on restart.
package store

import (
	"fmt"
	"log/slog"

	"github.com/HatiCode/trafficcast/cmd/predictor/config"
	"github.com/HatiCode/trafficcast/pkg/storage"
)

// New creates the model store named by cfg.Store.
func New(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Store {
	case config.StoreFile:
		logger.Info("initializing file model store", "path", cfg.ModelPath)
		return storage.NewFileStore(cfg.ModelPath), nil
	case config.StoreMemory:
		logger.Info("initializing in-memory model store")
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("invalid store type %q", cfg.Store)
	}
}
