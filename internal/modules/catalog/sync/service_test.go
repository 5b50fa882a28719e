package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plughub/core/internal/models"
	"github.com/plughub/core/internal/modules/catalog/index"
	"github.com/plughub/core/internal/modules/catalog/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	data map[string][]*models.CatalogEntryModel
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]*models.CatalogEntryModel{}}
}

func (m *memStore) Load(_ context.Context, kind string) ([]*models.CatalogEntryModel, error) {
	out := make([]*models.CatalogEntryModel, len(m.data[kind]))
	copy(out, m.data[kind])
	return out, nil
}

func (m *memStore) Save(_ context.Context, kind string, entries []*models.CatalogEntryModel) error {
	saved := make([]*models.CatalogEntryModel, len(entries))
	copy(saved, entries)
	m.data[kind] = saved
	return nil
}

type fakeSource struct {
	messages map[string][]RawMessage
	err      error
}

func (f *fakeSource) FetchHistory(_ context.Context, ch Channel) ([]RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.messages[ch.Handle], nil
}

var testChannel = Channel{Handle: "plugins_demo", ChatID: -100123}

func newTestService(src MessageSource, st *memStore) *Service {
	idx := index.NewService(st)
	return NewService(src, st, idx, parser.New(nil), []Channel{testChannel})
}

func pluginMsg(id int64, name string) RawMessage {
	return RawMessage{
		ID:   id,
		Text: "Name: " + name + "\nAuthor: @alice\n#plugin",
		Date: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSyncAddsNewPosts(t *testing.T) {
	st := newMemStore()
	src := &fakeSource{messages: map[string][]RawMessage{
		testChannel.Handle: {
			pluginMsg(1, "Weather"),
			pluginMsg(2, "Translator"),
			{ID: 3, Text: "just chatting"},
		},
	}}
	svc := newTestService(src, st)

	counters, err := svc.Sync(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, 2, counters.PluginsAdded)
	assert.Equal(t, 0, counters.IconPacksAdded)
	assert.Equal(t, 1, counters.Skipped)
	assert.Equal(t, 0, counters.Errors)

	plugins := st.data[models.CollectionPlugins]
	require.Len(t, plugins, 2)
	assert.Equal(t, "weather", plugins[0].Slug)
	assert.Equal(t, int64(1), plugins[0].ChannelMessage.MessageID)
	assert.Equal(t, "https://t.me/plugins_demo/1", plugins[0].ChannelMessage.Link)
}

func TestSyncIsIdempotent(t *testing.T) {
	st := newMemStore()
	src := &fakeSource{messages: map[string][]RawMessage{
		testChannel.Handle: {pluginMsg(1, "Weather"), pluginMsg(2, "Translator")},
	}}
	svc := newTestService(src, st)
	ctx := context.Background()

	first, err := svc.Sync(ctx, "manual")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Added())

	second, err := svc.Sync(ctx, "manual")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Added())
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 0, second.Errors)
	assert.Len(t, st.data[models.CollectionPlugins], 2)
}

func TestSyncCollapsesMediaGroups(t *testing.T) {
	st := newMemStore()
	src := &fakeSource{messages: map[string][]RawMessage{
		testChannel.Handle: {
			{ID: 10, GroupID: "g1", Document: &Document{Name: "weather.plugin", Size: 2048}},
			{ID: 11, GroupID: "g1", Text: "Name: Weather\n#plugin"},
		},
	}}
	svc := newTestService(src, st)

	counters, err := svc.Sync(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, 1, counters.PluginsAdded)

	plugins := st.data[models.CollectionPlugins]
	require.Len(t, plugins, 1)
	require.NotNil(t, plugins[0].File)
	assert.Equal(t, "weather.plugin", plugins[0].File.Name)
	assert.Equal(t, int64(11), plugins[0].ChannelMessage.MessageID)
}

func TestSyncExtensionOverridesParserVerdict(t *testing.T) {
	st := newMemStore()
	// The text claims plugin, but the attachment is an icon pack.
	src := &fakeSource{messages: map[string][]RawMessage{
		testChannel.Handle: {
			{ID: 20, GroupID: "g2", Text: "Name: Solar\n#plugin"},
			{ID: 21, GroupID: "g2", Document: &Document{Name: "solar.tgico"}},
		},
	}}
	svc := newTestService(src, st)

	counters, err := svc.Sync(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, 0, counters.PluginsAdded)
	assert.Equal(t, 1, counters.IconPacksAdded)
	assert.Len(t, st.data[models.CollectionIconPacks], 1)
	assert.Empty(t, st.data[models.CollectionPlugins])
}

func TestSyncFetchFailureIsFatal(t *testing.T) {
	st := newMemStore()
	src := &fakeSource{err: errors.New("export missing")}
	svc := newTestService(src, st)

	_, err := svc.Sync(context.Background(), "manual")
	assert.Error(t, err)
}

func TestSyncContainsItemPanics(t *testing.T) {
	st := newMemStore()
	src := &fakeSource{messages: map[string][]RawMessage{
		testChannel.Handle: {pluginMsg(1, "Weather")},
	}}
	idx := index.NewService(st)
	// A nil parser makes conversion panic; the pass must survive and count it.
	svc := NewService(src, st, idx, nil, []Channel{testChannel})

	counters, err := svc.Sync(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, 0, counters.Added())
	assert.Equal(t, 1, counters.Errors)
}

func TestClassifyByExtension(t *testing.T) {
	assert.Equal(t, models.CollectionPlugins, classifyByExtension("weather.plugin"))
	assert.Equal(t, models.CollectionIconPacks, classifyByExtension("solar.TGICO"))
	assert.Equal(t, models.CollectionIconPacks, classifyByExtension("pack.iconpack"))
	assert.Equal(t, "", classifyByExtension("readme.txt"))
	assert.Equal(t, "", classifyByExtension(""))
}

func TestPartitionPreservesOrder(t *testing.T) {
	items := partition([]RawMessage{
		{ID: 1, Text: "a"},
		{ID: 2, GroupID: "g", Document: &Document{Name: "x.plugin"}},
		{ID: 3, GroupID: "g", Text: "b"},
		{ID: 4, Text: "c"},
	})

	require.Len(t, items, 3)
	assert.Equal(t, int64(1), items[0].text.ID)
	assert.Equal(t, int64(3), items[1].text.ID)
	assert.Equal(t, int64(2), items[1].file.ID)
	assert.Equal(t, int64(4), items[2].text.ID)
}
