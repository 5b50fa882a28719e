// Package store is the persistence collaborator for the two catalog
// collections. Collections round-trip as ordered entry lists; callers never
// see rows or SQL.
package store

import (
	"context"
	"fmt"

	"github.com/plughub/core/internal/models"
	"gorm.io/gorm"
)

// Store loads and saves named entry collections, preserving insertion order.
type Store interface {
	Load(ctx context.Context, collection string) ([]*models.CatalogEntryModel, error)
	Save(ctx context.Context, collection string, entries []*models.CatalogEntryModel) error
}

// GormStore persists collections as positioned rows in MySQL.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) Load(ctx context.Context, collection string) ([]*models.CatalogEntryModel, error) {
	var entries []*models.CatalogEntryModel
	err := s.db.WithContext(ctx).
		Where("kind = ?", collection).
		Order("position ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load collection %q: %w", collection, err)
	}
	return entries, nil
}

// Save replaces the whole collection in one transaction. Positions are
// reassigned from the slice order, so insertion order survives reloads.
func (s *GormStore) Save(ctx context.Context, collection string, entries []*models.CatalogEntryModel) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("kind = ?", collection).
			Delete(&models.CatalogEntryModel{}).Error; err != nil {
			return err
		}
		for i, entry := range entries {
			entry.Kind = collection
			entry.Position = i
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save collection %q: %w", collection, err)
	}
	return nil
}
