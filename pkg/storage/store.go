// Package storage persists fitted models for the disk-backed model
// provider and for the offline trainer.
package storage

import (
	"errors"

	"github.com/HatiCode/trafficcast/pkg/models"
)

// ErrNotFound is returned by Load when no model has been saved.
var ErrNotFound = errors.New("model not found")

// Store saves and loads a single fitted model.
type Store interface {
	Save(*models.FittedModel) error
	Load() (*models.FittedModel, error)
}
