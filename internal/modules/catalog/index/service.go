// Package index provides read-mostly queries over the persisted catalog
// collections. The index owns no authoritative state: it is a derived cache,
// invalidated on every write and lazily rebuilt on the next read.
package index

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/plughub/core/internal/models"
	"github.com/plughub/core/internal/modules/catalog/store"
	"go.uber.org/zap"
)

// CategoryAll bypasses category filtering in ListByCategory.
const CategoryAll = "_all"

type collectionCache struct {
	entries   []*models.CatalogEntryModel
	published []*models.CatalogEntryModel
	bySlug    map[string]*models.CatalogEntryModel
}

// Service is the catalog index. The rebuild-on-miss path is mutex-guarded so
// two concurrent readers cannot race on the same backing map.
type Service struct {
	mu     sync.Mutex
	store  store.Store
	caches map[string]*collectionCache
	logger *zap.Logger

	// onWrite runs after every successful mutation, outside the lock.
	// Used to fan out cache invalidation to other processes.
	onWrite func()
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger.Named("CatalogIndex") }
}

// WithWriteHook registers a callback invoked after each catalog mutation.
func WithWriteHook(fn func()) Option {
	return func(s *Service) { s.onWrite = fn }
}

func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		caches: make(map[string]*collectionCache),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invalidate drops all cached lists and maps. The next read triggers a full
// rebuild from the persistence collaborator.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.caches = make(map[string]*collectionCache)
	s.mu.Unlock()
}

func (s *Service) collection(ctx context.Context, kind string) (*collectionCache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cache, ok := s.caches[kind]; ok {
		return cache, nil
	}

	entries, err := s.store.Load(ctx, kind)
	if err != nil {
		return nil, err
	}

	cache := &collectionCache{entries: entries, bySlug: make(map[string]*models.CatalogEntryModel)}
	for _, entry := range entries {
		if !entry.IsPublished() {
			continue
		}
		cache.published = append(cache.published, entry)
		slug := normalizeSlug(entry.Slug)
		if slug == "" {
			continue
		}
		// Last write wins on duplicate slugs.
		cache.bySlug[slug] = entry
	}

	s.caches[kind] = cache
	s.logger.Debug("index rebuilt",
		zap.String("kind", kind),
		zap.Int("entries", len(entries)),
		zap.Int("published", len(cache.published)),
	)
	return cache, nil
}

// ListPublished returns published entries in insertion order, optionally
// capped at limit (limit <= 0 means no cap).
func (s *Service) ListPublished(ctx context.Context, kind string, limit int) ([]*models.CatalogEntryModel, error) {
	cache, err := s.collection(ctx, kind)
	if err != nil {
		return nil, err
	}
	entries := cache.published
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// ListByCategory filters published entries by exact category match. The
// sentinel "_all" bypasses filtering.
func (s *Service) ListByCategory(ctx context.Context, kind, category string) ([]*models.CatalogEntryModel, error) {
	if category == CategoryAll {
		return s.ListPublished(ctx, kind, 0)
	}
	all, err := s.ListPublished(ctx, kind, 0)
	if err != nil {
		return nil, err
	}
	var filtered []*models.CatalogEntryModel
	for _, entry := range all {
		if entry.Category != nil && *entry.Category == category {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

// FindBySlug returns the entry for a slug, or nil when absent.
func (s *Service) FindBySlug(ctx context.Context, kind, slug string) (*models.CatalogEntryModel, error) {
	cache, err := s.collection(ctx, kind)
	if err != nil {
		return nil, err
	}
	return cache.bySlug[normalizeSlug(slug)], nil
}

// Search matches query as a lower-cased substring against both locales'
// name/description/usage, the slug, and (for plugins) the category. Results
// come back shuffled and capped at limit; an empty query returns a shuffled
// sample of the published set so the caller surfaces catalog variety instead
// of nothing.
func (s *Service) Search(ctx context.Context, kind, query string, limit int) ([]*models.CatalogEntryModel, error) {
	published, err := s.ListPublished(ctx, kind, 0)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	var matches []*models.CatalogEntryModel
	if q == "" {
		matches = append(matches, published...)
	} else {
		for _, entry := range published {
			if strings.Contains(searchableText(kind, entry), q) {
				matches = append(matches, entry)
			}
		}
	}

	rand.Shuffle(len(matches), func(i, j int) {
		matches[i], matches[j] = matches[j], matches[i]
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// FindByUser returns entries submitted by userID, or, when handle is given,
// entries crediting that handle as author.
func (s *Service) FindByUser(ctx context.Context, kind string, userID int64, handle string) ([]*models.CatalogEntryModel, error) {
	published, err := s.ListPublished(ctx, kind, 0)
	if err != nil {
		return nil, err
	}
	var found []*models.CatalogEntryModel
	for _, entry := range published {
		if entry.HasSubmitter(userID) || (handle != "" && entry.HasHandle(handle)) {
			found = append(found, entry)
		}
	}
	return found, nil
}

// FindByHandles returns entries whose author fields intersect the given
// handle set.
func (s *Service) FindByHandles(ctx context.Context, kind string, handles []string) ([]*models.CatalogEntryModel, error) {
	published, err := s.ListPublished(ctx, kind, 0)
	if err != nil {
		return nil, err
	}
	var found []*models.CatalogEntryModel
	for _, entry := range published {
		for _, h := range handles {
			if entry.HasHandle(h) {
				found = append(found, entry)
				break
			}
		}
	}
	return found, nil
}

// Publish appends a new entry to its collection and persists it.
func (s *Service) Publish(ctx context.Context, kind string, entry *models.CatalogEntryModel) error {
	if entry == nil || strings.TrimSpace(entry.Slug) == "" {
		return fmt.Errorf("entry slug is required")
	}
	entries, err := s.store.Load(ctx, kind)
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	if err := s.store.Save(ctx, kind, entries); err != nil {
		return err
	}
	s.afterWrite(kind, "publish", entry.Slug)
	return nil
}

// Update merges patch into the entry with the given slug. Returns nil when no
// entry matches.
func (s *Service) Update(ctx context.Context, kind, slug string, patch *models.CatalogEntryModel) (*models.CatalogEntryModel, error) {
	entries, err := s.store.Load(ctx, kind)
	if err != nil {
		return nil, err
	}
	target := normalizeSlug(slug)
	var updated *models.CatalogEntryModel
	for _, entry := range entries {
		if normalizeSlug(entry.Slug) == target {
			entry.Merge(patch)
			updated = entry
		}
	}
	if updated == nil {
		return nil, nil
	}
	if err := s.store.Save(ctx, kind, entries); err != nil {
		return nil, err
	}
	s.afterWrite(kind, "update", slug)
	return updated, nil
}

// Delete removes the entry with the given slug. Returns false when no entry
// matched.
func (s *Service) Delete(ctx context.Context, kind, slug string) (bool, error) {
	entries, err := s.store.Load(ctx, kind)
	if err != nil {
		return false, err
	}
	target := normalizeSlug(slug)
	kept := entries[:0]
	removed := false
	for _, entry := range entries {
		if normalizeSlug(entry.Slug) == target {
			removed = true
			continue
		}
		kept = append(kept, entry)
	}
	if !removed {
		return false, nil
	}
	if err := s.store.Save(ctx, kind, kept); err != nil {
		return false, err
	}
	s.afterWrite(kind, "delete", slug)
	return true, nil
}

func (s *Service) afterWrite(kind, op, slug string) {
	s.Invalidate()
	s.logger.Info("catalog updated",
		zap.String("kind", kind),
		zap.String("op", op),
		zap.String("slug", slug),
	)
	if s.onWrite != nil {
		s.onWrite()
	}
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

func searchableText(kind string, entry *models.CatalogEntryModel) string {
	parts := []string{
		entry.LocaleRU.Name, entry.LocaleRU.Description, entry.LocaleRU.Usage,
		entry.LocaleEN.Name, entry.LocaleEN.Description, entry.LocaleEN.Usage,
		entry.Slug,
	}
	if kind == models.CollectionPlugins && entry.Category != nil {
		parts = append(parts, *entry.Category)
	}
	return strings.ToLower(strings.Join(parts, "\n"))
}
