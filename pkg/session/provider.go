package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/HatiCode/trafficcast/pkg/dataset"
	"github.com/HatiCode/trafficcast/pkg/models"
	"github.com/HatiCode/trafficcast/pkg/storage"
)

// Model sources selectable by configuration.
const (
	SourceDisk   = "disk"
	SourceInline = "inline"
)

// ModelProvider produces a fitted model for a session.
type ModelProvider interface {
	Provide(ctx context.Context) (*models.FittedModel, error)
	Name() string
}

// TableSource supplies the cleaned, derived training table.
type TableSource interface {
	LoadOnce(ctx context.Context) (dataset.Table, error)
}

// DiskProvider loads a previously trained model from a store.
type DiskProvider struct {
	store storage.Store
}

// NewDiskProvider creates a provider reading from store.
func NewDiskProvider(store storage.Store) *DiskProvider {
	return &DiskProvider{store: store}
}

func (p *DiskProvider) Name() string { return SourceDisk }

// Provide loads the stored model. A missing model is reported as
// models.ErrModelUnavailable.
func (p *DiskProvider) Provide(_ context.Context) (*models.FittedModel, error) {
	m, err := p.store.Load()
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", models.ErrModelUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// InlineProvider trains a model from the session's table.
type InlineProvider struct {
	source  TableSource
	trainer *models.Trainer
	// dropUndated removes rows without a timestamp before training.
	dropUndated bool
	// store, when set, receives every trained model.
	store storage.Store
}

// NewInlineProvider creates a provider training with trainer on the table
// from source. store may be nil.
func NewInlineProvider(source TableSource, trainer *models.Trainer, dropUndated bool, store storage.Store) *InlineProvider {
	return &InlineProvider{
		source:      source,
		trainer:     trainer,
		dropUndated: dropUndated,
		store:       store,
	}
}

func (p *InlineProvider) Name() string { return SourceInline }

// Provide trains a new model. An empty table fails with
// models.ErrDataInsufficient.
func (p *InlineProvider) Provide(ctx context.Context) (*models.FittedModel, error) {
	table, err := p.source.LoadOnce(ctx)
	if err != nil {
		return nil, fmt.Errorf("load training table: %w", err)
	}
	if p.dropUndated {
		table = dataset.DropUndated(table)
	}

	m, err := p.trainer.Train(ctx, table)
	if err != nil {
		return nil, err
	}

	if p.store != nil {
		if err := p.store.Save(m); err != nil {
			return nil, fmt.Errorf("save model: %w", err)
		}
	}
	return m, nil
}
