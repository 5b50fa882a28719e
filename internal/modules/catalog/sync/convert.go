package sync

import (
	"fmt"
	"path"
	"strings"

	"github.com/plughub/core/internal/models"
	"github.com/plughub/core/internal/modules/catalog/parser"
)

var (
	pluginExts   = map[string]struct{}{".plugin": {}}
	iconPackExts = map[string]struct{}{".iconpack": {}, ".icons": {}, ".tgico": {}}
)

// classifyByExtension maps a file name to its collection. Empty result means
// the extension carries no signal and the parser's verdict decides.
func classifyByExtension(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if _, ok := pluginExts[ext]; ok {
		return models.CollectionPlugins
	}
	if _, ok := iconPackExts[ext]; ok {
		return models.CollectionIconPacks
	}
	return ""
}

// buildEntry converts a parsed post plus its (optional) attachment into a
// catalog entry.
func buildEntry(post *parser.ParsedPost, ch Channel, doc *Document) *models.CatalogEntryModel {
	entry := &models.CatalogEntryModel{
		Slug:   post.Slug(),
		Status: models.StatusPublished,
		Authors: models.EntryAuthors{
			RU:      firstNonEmpty(post.RU.Author, post.RU.AuthorChannel),
			EN:      firstNonEmpty(post.EN.Author, post.EN.AuthorChannel),
			Handles: post.Handles(),
		},
		LocaleRU:     localeFrom(post.RU),
		LocaleEN:     localeFrom(post.EN),
		Settings:     models.EntrySettings{HasUI: post.HasSettings()},
		Requirements: models.EntryRequirements{MinVersion: firstNonEmpty(post.RU.MinVersion, post.EN.MinVersion)},
		ChannelMessage: models.EntryChannelMessage{
			ChatID:      ch.ChatID,
			MessageID:   post.MessageID,
			Link:        deepLink(ch.Handle, post.MessageID),
			PublishedAt: post.MessageDate,
		},
		RawRU:          post.RU.Raw,
		RawEN:          post.EN.Raw,
		SourceText:     post.RawText,
		SourceRichText: post.RawRichText,
		Hashtags:       post.Hashtags,
		PublishedAt:    post.MessageDate,
	}
	if post.Category != "" {
		category := post.Category
		entry.Category = &category
	}
	if doc != nil {
		entry.File = &models.EntryFile{Name: doc.Name, Size: doc.Size, RemoteRef: doc.RemoteRef}
	}
	return entry
}

func localeFrom(block parser.LocaleBlock) models.EntryLocale {
	return models.EntryLocale{
		Name:          block.Name,
		Description:   block.Description,
		Usage:         block.Usage,
		MinVersion:    block.MinVersion,
		SettingsLabel: block.Settings,
		CheckedOn:     firstNonEmpty(block.CheckedOn, block.UpdatedOn),
	}
}

func deepLink(handle string, messageID int64) string {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" || messageID == 0 {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s/%d", handle, messageID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
