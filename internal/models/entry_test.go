package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergeKeepsOldValuesForEmptyPatchFields(t *testing.T) {
	entry := &CatalogEntryModel{
		Slug:     "weather",
		Status:   StatusPublished,
		LocaleEN: EntryLocale{Name: "Weather", Description: "old"},
		Authors:  EntryAuthors{EN: "@alice", Handles: StringArray{"@alice"}},
	}

	entry.Merge(&CatalogEntryModel{
		LocaleEN: EntryLocale{Description: "new"},
	})

	assert.Equal(t, "Weather", entry.LocaleEN.Name)
	assert.Equal(t, "new", entry.LocaleEN.Description)
	assert.Equal(t, StatusPublished, entry.Status)
	assert.Equal(t, "@alice", entry.Authors.EN)
}

func TestMergeDeduplicatesHandlesAndSubmitters(t *testing.T) {
	entry := &CatalogEntryModel{
		Authors:    EntryAuthors{Handles: StringArray{"@alice"}},
		Submitters: []EntrySubmitter{{UserID: 1}},
	}

	entry.Merge(&CatalogEntryModel{
		Authors:    EntryAuthors{Handles: StringArray{"@Alice", "@bob"}},
		Submitters: []EntrySubmitter{{UserID: 1}, {UserID: 2}},
	})

	assert.Equal(t, StringArray{"@alice", "@bob"}, entry.Authors.Handles)
	assert.Len(t, entry.Submitters, 2)
}

func TestMergeCarriesSourceText(t *testing.T) {
	entry := &CatalogEntryModel{SourceText: "old", SourceRichText: "<b>old</b>"}

	entry.Merge(&CatalogEntryModel{SourceText: "new"})
	assert.Equal(t, "new", entry.SourceText)
	assert.Equal(t, "<b>old</b>", entry.SourceRichText)
}

func TestMergeRawMaps(t *testing.T) {
	entry := &CatalogEntryModel{RawRU: map[string]string{"name": "Погода", "usage": "old"}}

	entry.Merge(&CatalogEntryModel{RawRU: map[string]string{"usage": "new", "author": "@alice"}})

	assert.Equal(t, "Погода", entry.RawRU["name"])
	assert.Equal(t, "new", entry.RawRU["usage"])
	assert.Equal(t, "@alice", entry.RawRU["author"])
}

func TestMergePublishedAt(t *testing.T) {
	entry := &CatalogEntryModel{PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	entry.Merge(&CatalogEntryModel{})
	assert.Equal(t, 2024, entry.PublishedAt.Year())

	entry.Merge(&CatalogEntryModel{PublishedAt: time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)})
	assert.Equal(t, 2025, entry.PublishedAt.Year())
}

func TestHasHandle(t *testing.T) {
	entry := &CatalogEntryModel{
		Authors: EntryAuthors{RU: "Алиса (@alice)", Handles: StringArray{"@alice"}},
	}

	assert.True(t, entry.HasHandle("@alice"))
	assert.True(t, entry.HasHandle("alice"), "bare handle gets the @ prefix")
	assert.True(t, entry.HasHandle("@ALICE"))
	assert.False(t, entry.HasHandle("@bob"))
	assert.False(t, entry.HasHandle(""))
}

func TestIsPublished(t *testing.T) {
	assert.True(t, (&CatalogEntryModel{Status: StatusPublished}).IsPublished())
	assert.False(t, (&CatalogEntryModel{Status: StatusDraft}).IsPublished())
	assert.False(t, (&CatalogEntryModel{}).IsPublished())
}
