package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/propstream/propstream/internal/interfaces"
	"github.com/propstream/propstream/internal/models"
)

// PropertyStorage implements the PropertyStorage interface for Badger.
// Properties are keyed by natural key, which gives the storage-level unique
// constraint the deduplicator relies on under concurrent inserts.
type PropertyStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPropertyStorage creates a new PropertyStorage instance
func NewPropertyStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PropertyStorage {
	return &PropertyStorage{
		db:     db,
		logger: logger,
	}
}

func (s *PropertyStorage) Exists(ctx context.Context, naturalKey string) (bool, error) {
	var property models.Property
	err := s.db.Store().Get(naturalKey, &property)
	if err == nil {
		return true, nil
	}
	if err == badgerhold.ErrNotFound {
		return false, nil
	}
	return false, fmt.Errorf("failed to check property existence: %w", err)
}

func (s *PropertyStorage) Insert(ctx context.Context, property *models.Property) error {
	if property.NaturalKey == "" {
		return fmt.Errorf("property natural key is required")
	}

	// Insert (not Upsert) so a concurrent writer of the same key loses with
	// ErrKeyExists instead of silently overwriting.
	if err := s.db.Store().Insert(property.NaturalKey, property); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return interfaces.ErrPropertyExists
		}
		return fmt.Errorf("failed to insert property: %w", err)
	}
	return nil
}

func (s *PropertyStorage) GetByKey(ctx context.Context, naturalKey string) (*models.Property, error) {
	var property models.Property
	if err := s.db.Store().Get(naturalKey, &property); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("property not found: %s", naturalKey)
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return &property, nil
}

func (s *PropertyStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Property{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	return int(count), nil
}
