package models

import (
	"strings"
	"time"
)

// Collection names for the two persisted entry sets. Plugin and icon-pack
// slugs are independent namespaces.
const (
	CollectionPlugins   = "plugins"
	CollectionIconPacks = "icon-packs"
)

// Entry statuses. The catalog index exposes only published entries; drafts
// may exist upstream in the submission flow.
const (
	StatusPublished = "published"
	StatusDraft     = "draft"
)

// EntryAuthors carries the credited author text of both locales plus every
// @handle mentioned in them.
type EntryAuthors struct {
	RU      string      `json:"ru"`
	EN      string      `json:"en"`
	Handles StringArray `json:"handles"`
}

// EntrySubmitter is a person who filed the submission request. Submitters are
// distinct from authors: the author is credited in the post text, the
// submitter talked to the bot.
type EntrySubmitter struct {
	UserID int64  `json:"user_id"`
	Handle string `json:"handle,omitempty"`
}

// EntryLocale is one language's catalog-facing fields.
type EntryLocale struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Usage         string `json:"usage,omitempty"`
	MinVersion    string `json:"min_version,omitempty"`
	Version       string `json:"version,omitempty"`
	SettingsLabel string `json:"settings_label,omitempty"`
	CheckedOn     string `json:"checked_on,omitempty"`
}

// EntrySettings describes the plugin's settings surface.
type EntrySettings struct {
	HasUI bool `json:"has_ui"`
}

// EntryRequirements lists client-version requirements.
type EntryRequirements struct {
	MinVersion string `json:"min_version,omitempty"`
}

// EntryChannelMessage links an entry back to its source channel post.
type EntryChannelMessage struct {
	ChatID      int64     `json:"chat_id"`
	MessageID   int64     `json:"message_id"`
	Link        string    `json:"link,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// EntryFile describes the attached plugin or icon-pack file.
type EntryFile struct {
	Name      string `json:"name"`
	Size      int64  `json:"size,omitempty"`
	RemoteRef string `json:"remote_ref,omitempty"`
}

// CatalogEntryModel is one published plugin or icon-pack record. Kind selects
// the collection; Position preserves insertion order within it.
type CatalogEntryModel struct {
	Base
	Kind     string `json:"-"        gorm:"index:idx_entry_kind_slug;not null"`
	Position int    `json:"-"        gorm:"index"`

	Slug     string  `json:"slug"     gorm:"index:idx_entry_kind_slug;not null"`
	Status   string  `json:"status"   gorm:"default:published;index"`
	Category *string `json:"category"`

	Authors    EntryAuthors     `json:"authors"    gorm:"type:json;serializer:json"`
	Submitters []EntrySubmitter `json:"submitters" gorm:"type:json;serializer:json"`

	LocaleRU EntryLocale `json:"ru" gorm:"type:json;serializer:json"`
	LocaleEN EntryLocale `json:"en" gorm:"type:json;serializer:json"`

	Settings       EntrySettings       `json:"settings"        gorm:"type:json;serializer:json"`
	Requirements   EntryRequirements   `json:"requirements"    gorm:"type:json;serializer:json"`
	ChannelMessage EntryChannelMessage `json:"channel_message" gorm:"type:json;serializer:json"`
	File           *EntryFile          `json:"file,omitempty"  gorm:"type:json;serializer:json"`

	// Verbatim parsed field maps, kept for round-tripping into future edits.
	RawRU map[string]string `json:"raw_ru,omitempty" gorm:"type:json;serializer:json"`
	RawEN map[string]string `json:"raw_en,omitempty" gorm:"type:json;serializer:json"`

	// Original post body, kept for republication back to a channel.
	SourceText     string `json:"-" gorm:"type:text"`
	SourceRichText string `json:"-" gorm:"type:text"`

	Hashtags StringArray `json:"hashtags" gorm:"type:json;serializer:json"`

	PublishedAt time.Time `json:"published_at"`
}

func (CatalogEntryModel) TableName() string { return "catalog_entries" }

// IsPublished reports whether the index should expose this entry.
func (e *CatalogEntryModel) IsPublished() bool { return e.Status == StatusPublished }

// HasHandle reports whether handle matches an author handle or appears in the
// raw author text of either locale.
func (e *CatalogEntryModel) HasHandle(handle string) bool {
	h := strings.ToLower(strings.TrimSpace(handle))
	if h == "" {
		return false
	}
	if !strings.HasPrefix(h, "@") {
		h = "@" + h
	}
	for _, known := range e.Authors.Handles {
		if strings.EqualFold(known, h) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(e.Authors.RU), h) ||
		strings.Contains(strings.ToLower(e.Authors.EN), h)
}

// HasSubmitter reports whether the given user filed this entry.
func (e *CatalogEntryModel) HasSubmitter(userID int64) bool {
	for _, s := range e.Submitters {
		if s.UserID == userID {
			return true
		}
	}
	return false
}

// Merge folds non-empty fields of patch into the entry. A missing new value
// keeps the old one; fields are never silently dropped.
func (e *CatalogEntryModel) Merge(patch *CatalogEntryModel) {
	if patch == nil {
		return
	}
	if patch.Status != "" {
		e.Status = patch.Status
	}
	if patch.Category != nil {
		e.Category = patch.Category
	}
	mergeAuthors(&e.Authors, patch.Authors)
	for _, s := range patch.Submitters {
		if !e.HasSubmitter(s.UserID) {
			e.Submitters = append(e.Submitters, s)
		}
	}
	mergeLocale(&e.LocaleRU, patch.LocaleRU)
	mergeLocale(&e.LocaleEN, patch.LocaleEN)
	if patch.Settings.HasUI {
		e.Settings.HasUI = true
	}
	if patch.Requirements.MinVersion != "" {
		e.Requirements.MinVersion = patch.Requirements.MinVersion
	}
	if patch.ChannelMessage.MessageID != 0 {
		e.ChannelMessage = patch.ChannelMessage
	}
	if patch.File != nil {
		e.File = patch.File
	}
	e.RawRU = mergeRaw(e.RawRU, patch.RawRU)
	e.RawEN = mergeRaw(e.RawEN, patch.RawEN)
	if patch.SourceText != "" {
		e.SourceText = patch.SourceText
	}
	if patch.SourceRichText != "" {
		e.SourceRichText = patch.SourceRichText
	}
	if len(patch.Hashtags) > 0 {
		e.Hashtags = patch.Hashtags
	}
	if !patch.PublishedAt.IsZero() {
		e.PublishedAt = patch.PublishedAt
	}
}

func mergeAuthors(dst *EntryAuthors, src EntryAuthors) {
	if src.RU != "" {
		dst.RU = src.RU
	}
	if src.EN != "" {
		dst.EN = src.EN
	}
	for _, h := range src.Handles {
		known := false
		for _, existing := range dst.Handles {
			if strings.EqualFold(existing, h) {
				known = true
				break
			}
		}
		if !known {
			dst.Handles = append(dst.Handles, h)
		}
	}
}

func mergeLocale(dst *EntryLocale, src EntryLocale) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Description != "" {
		dst.Description = src.Description
	}
	if src.Usage != "" {
		dst.Usage = src.Usage
	}
	if src.MinVersion != "" {
		dst.MinVersion = src.MinVersion
	}
	if src.Version != "" {
		dst.Version = src.Version
	}
	if src.SettingsLabel != "" {
		dst.SettingsLabel = src.SettingsLabel
	}
	if src.CheckedOn != "" {
		dst.CheckedOn = src.CheckedOn
	}
}

func mergeRaw(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		if v != "" {
			dst[k] = v
		}
	}
	return dst
}
