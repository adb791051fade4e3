// Package main implements the trafficcast offline trainer.
// It loads the traffic dataset, trains a model on a random split, reports
// holdout error and writes the model as JSON for the predictor's disk source.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/HatiCode/trafficcast/cmd/trainer/config"
	"github.com/HatiCode/trafficcast/cmd/trainer/logger"
	"github.com/HatiCode/trafficcast/pkg/adapters"
	"github.com/HatiCode/trafficcast/pkg/dataset"
	"github.com/HatiCode/trafficcast/pkg/features"
	"github.com/HatiCode/trafficcast/pkg/models"
	"github.com/HatiCode/trafficcast/pkg/storage"
)

func main() {
	cfg := config.ParseFlags()
	logger := logger.New(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := run(ctx, cfg, logger); err != nil {
		logger.Error("training failed", "error", err)
		os.Exit(1)
	}
}

// Result summarises one training run.
type Result struct {
	Model      *models.FittedModel
	TrainRows  int
	Evaluation *models.Evaluation
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Result, error) {
	raw, rep, err := (&adapters.CSVAdapter{Path: cfg.DataPath}).Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	for _, perr := range rep.Errors {
		logger.Debug("dropped unparseable value", "error", perr)
	}

	cleaned, crep := dataset.Clean(raw)
	table := features.Derive(cleaned)
	if cfg.DropUndated {
		table = dataset.DropUndated(table)
	}
	logger.Info("dataset prepared",
		"rows", rep.Rows,
		"bad_timestamps", rep.BadTimestamps,
		"missing_targets", rep.MissingTargets,
		"clean_rows", crep.Output,
		"usable_rows", table.Len(),
	)

	params := cfg.ModelParams()
	train, test := dataset.Split(table, cfg.TestFraction, params.Forest.Seed)

	trainer := models.NewTrainer(params, models.WithLogger(logger))
	m, err := trainer.Train(ctx, train)
	if err != nil {
		return nil, err
	}
	res := &Result{Model: m, TrainRows: train.Len()}

	if test.Len() > 0 {
		ev, err := models.Evaluate(m, test)
		if err != nil {
			logger.Warn("holdout evaluation skipped", "error", err)
		} else {
			res.Evaluation = &ev
			logger.Info("holdout evaluation",
				"rows", ev.Rows,
				"skipped", ev.Skipped,
				"mae", ev.MAE,
				"rmse", ev.RMSE,
				"r2", ev.R2,
			)
		}
	}

	if err := storage.NewFileStore(cfg.ModelPath).Save(m); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}
	logger.Info("model written", "path", cfg.ModelPath, "model_id", m.ID())
	return res, nil
}
