package index

import (
	"context"
	"sync"
	"testing"

	"github.com/plughub/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu    sync.Mutex
	data  map[string][]*models.CatalogEntryModel
	loads int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]*models.CatalogEntryModel{}}
}

func (f *fakeStore) Load(_ context.Context, kind string) ([]*models.CatalogEntryModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	out := make([]*models.CatalogEntryModel, len(f.data[kind]))
	copy(out, f.data[kind])
	return out, nil
}

func (f *fakeStore) Save(_ context.Context, kind string, entries []*models.CatalogEntryModel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	saved := make([]*models.CatalogEntryModel, len(entries))
	copy(saved, entries)
	f.data[kind] = saved
	return nil
}

func strPtr(s string) *string { return &s }

func plugin(slug, category string) *models.CatalogEntryModel {
	e := &models.CatalogEntryModel{
		Slug:   slug,
		Status: models.StatusPublished,
		LocaleEN: models.EntryLocale{
			Name:        slug,
			Description: "the " + slug + " plugin",
		},
	}
	if category != "" {
		e.Category = strPtr(category)
	}
	return e
}

func seededService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	st := newFakeStore()
	st.data[models.CollectionPlugins] = []*models.CatalogEntryModel{
		plugin("weather", "utilities"),
		plugin("translator", "utilities"),
		plugin("snake", "fun"),
		{Slug: "hidden", Status: models.StatusDraft},
	}
	return NewService(st), st
}

func TestListPublishedSkipsDrafts(t *testing.T) {
	svc, _ := seededService(t)

	entries, err := svc.ListPublished(context.Background(), models.CollectionPlugins, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.NotEqual(t, "hidden", e.Slug)
	}
}

func TestListPublishedLimit(t *testing.T) {
	svc, _ := seededService(t)

	entries, err := svc.ListPublished(context.Background(), models.CollectionPlugins, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestListByCategoryAllSentinel(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	all, err := svc.ListByCategory(ctx, models.CollectionPlugins, CategoryAll)
	require.NoError(t, err)
	published, err := svc.ListPublished(ctx, models.CollectionPlugins, 0)
	require.NoError(t, err)
	assert.Equal(t, published, all)
}

func TestListByCategoryFilters(t *testing.T) {
	svc, _ := seededService(t)

	utils, err := svc.ListByCategory(context.Background(), models.CollectionPlugins, "utilities")
	require.NoError(t, err)
	require.Len(t, utils, 2)
	for _, e := range utils {
		require.NotNil(t, e.Category)
		assert.Equal(t, "utilities", *e.Category)
	}
}

func TestFindBySlug(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	found, err := svc.FindBySlug(ctx, models.CollectionPlugins, "  WEATHER ")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "weather", found.Slug)

	missing, err := svc.FindBySlug(ctx, models.CollectionPlugins, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	draft, err := svc.FindBySlug(ctx, models.CollectionPlugins, "hidden")
	require.NoError(t, err)
	assert.Nil(t, draft, "drafts must not resolve by slug")
}

func TestSearchMatchesAndCaps(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	matches, err := svc.Search(ctx, models.CollectionPlugins, "weather", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "weather", matches[0].Slug)

	none, err := svc.Search(ctx, models.CollectionPlugins, "zzzz", 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	capped, err := svc.Search(ctx, models.CollectionPlugins, "", 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)
}

func TestSearchMatchesCategoryForPlugins(t *testing.T) {
	svc, _ := seededService(t)

	matches, err := svc.Search(context.Background(), models.CollectionPlugins, "utilities", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestCollectionIsCachedUntilInvalidated(t *testing.T) {
	svc, st := seededService(t)
	ctx := context.Background()

	_, err := svc.ListPublished(ctx, models.CollectionPlugins, 0)
	require.NoError(t, err)
	_, err = svc.FindBySlug(ctx, models.CollectionPlugins, "weather")
	require.NoError(t, err)
	assert.Equal(t, 1, st.loads)

	svc.Invalidate()
	_, err = svc.ListPublished(ctx, models.CollectionPlugins, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, st.loads)
}

func TestPublishPersistsAndNotifies(t *testing.T) {
	st := newFakeStore()
	notified := 0
	svc := NewService(st, WithWriteHook(func() { notified++ }))
	ctx := context.Background()

	err := svc.Publish(ctx, models.CollectionPlugins, plugin("clock", "utilities"))
	require.NoError(t, err)
	assert.Equal(t, 1, notified)

	found, err := svc.FindBySlug(ctx, models.CollectionPlugins, "clock")
	require.NoError(t, err)
	require.NotNil(t, found)
}

func TestPublishRequiresSlug(t *testing.T) {
	svc, _ := seededService(t)

	err := svc.Publish(context.Background(), models.CollectionPlugins, &models.CatalogEntryModel{Slug: "  "})
	assert.Error(t, err)
}

func TestUpdateMergesPatch(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	updated, err := svc.Update(ctx, models.CollectionPlugins, "weather", &models.CatalogEntryModel{
		LocaleEN: models.EntryLocale{Description: "updated description"},
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "updated description", updated.LocaleEN.Description)
	assert.Equal(t, "weather", updated.LocaleEN.Name, "unset patch fields keep old values")

	missing, err := svc.Update(ctx, models.CollectionPlugins, "nope", &models.CatalogEntryModel{})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDelete(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	removed, err := svc.Delete(ctx, models.CollectionPlugins, "snake")
	require.NoError(t, err)
	assert.True(t, removed)

	found, err := svc.FindBySlug(ctx, models.CollectionPlugins, "snake")
	require.NoError(t, err)
	assert.Nil(t, found)

	removed, err = svc.Delete(ctx, models.CollectionPlugins, "snake")
	require.NoError(t, err)
	assert.False(t, removed)
}
