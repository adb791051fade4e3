// Package provider selects the session's model provider from the predictor
// configuration.
package provider

import (
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/HatiCode/trafficcast/cmd/predictor/config"
	"github.com/HatiCode/trafficcast/pkg/models"
	"github.com/HatiCode/trafficcast/pkg/session"
	"github.com/HatiCode/trafficcast/pkg/storage"
)

// New returns the provider named by cfg.ModelSource. Inline models read
// their table from source and are saved to store when cfg.SaveModel is set.
func New(cfg *config.Config, source session.TableSource, store storage.Store, clock clockwork.Clock, logger *slog.Logger) (session.ModelProvider, error) {
	switch cfg.ModelSource {
	case session.SourceDisk:
		logger.Info("loading model from store", "store", cfg.Store, "path", cfg.ModelPath)
		return session.NewDiskProvider(store), nil

	case session.SourceInline:
		params := cfg.ModelParams()
		logger.Info("training model inline",
			"regressor", params.Regressor,
			"trees", params.Forest.Trees,
			"seed", params.Forest.Seed,
			"drop_undated", cfg.DropUndated,
			"save_model", cfg.SaveModel,
		)
		trainer := models.NewTrainer(params, models.WithClock(clock), models.WithLogger(logger))

		var saveTo storage.Store
		if cfg.SaveModel {
			saveTo = store
		}
		return session.NewInlineProvider(source, trainer, cfg.DropUndated, saveTo), nil

	default:
		return nil, fmt.Errorf("invalid model source %q", cfg.ModelSource)
	}
}
