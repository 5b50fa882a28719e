package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/plughub/core/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// createBackupZip dumps both collections plus a manifest into a ZIP archive.
// Each collection is written twice: BSON for restore fidelity, JSON for eyes.
func (h *Handler) createBackupZip(ctx context.Context) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)

	for _, collection := range collections {
		entries, err := h.store.Load(ctx, collection)
		if err != nil {
			return nil, fmt.Errorf("dump %s: %w", collection, err)
		}

		raw, err := bson.Marshal(bson.M{"collection": collection, "entries": entries})
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", collection, err)
		}
		f, err := w.Create(collection + ".bson")
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(raw); err != nil {
			return nil, err
		}

		pretty, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return nil, err
		}
		f, err = w.Create(collection + ".json")
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(pretty); err != nil {
			return nil, err
		}
	}

	manifest, _ := json.Marshal(map[string]any{
		"version":    1,
		"created_at": time.Now().Format(time.RFC3339),
	})
	f, err := w.Create("manifest.json")
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(manifest); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

// restore dispatches on the payload shape: ZIP archives from this service, or
// a bare mongodump .bson stream from the legacy bot.
func (h *Handler) restore(ctx context.Context, data []byte, filename string) error {
	if zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data))); err == nil {
		return h.restoreFromZip(ctx, zr)
	}
	if strings.HasSuffix(strings.ToLower(filename), ".bson") {
		return h.restoreFromLegacyDump(ctx, data, filename)
	}
	return fmt.Errorf("unsupported backup format: %s", filename)
}

func (h *Handler) restoreFromZip(ctx context.Context, zr *zip.Reader) error {
	restored := 0
	for _, f := range zr.File {
		name := strings.TrimSuffix(f.Name, ".bson")
		if name == f.Name {
			continue
		}
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		if !knownCollection(name) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return err
		}

		var dump struct {
			Collection string                      `bson:"collection"`
			Entries    []*models.CatalogEntryModel `bson:"entries"`
		}
		if err := bson.Unmarshal(raw, &dump); err != nil {
			return fmt.Errorf("decode %s: %w", f.Name, err)
		}
		if err := h.store.Save(ctx, name, dump.Entries); err != nil {
			return err
		}
		restored++
	}
	if restored == 0 {
		return fmt.Errorf("archive contains no collection dumps")
	}
	h.index.Invalidate()
	return nil
}

// restoreFromLegacyDump imports a raw mongodump stream. The target collection
// comes from the file name ("plugins.bson", "icon-packs.bson").
func (h *Handler) restoreFromLegacyDump(ctx context.Context, data []byte, filename string) error {
	collection := strings.TrimSuffix(strings.ToLower(baseName(filename)), ".bson")
	if collection == "iconpacks" || collection == "icon_packs" {
		collection = models.CollectionIconPacks
	}
	if !knownCollection(collection) {
		return fmt.Errorf("unknown legacy collection %q", collection)
	}

	docs, err := readBSONStream(data)
	if err != nil {
		return err
	}

	entries := make([]*models.CatalogEntryModel, 0, len(docs))
	for _, doc := range docs {
		if entry := convertLegacyDoc(doc, collection); entry != nil {
			entries = append(entries, entry)
		}
	}
	if len(entries) == 0 {
		return fmt.Errorf("legacy dump %s contains no usable documents", filename)
	}

	if err := h.store.Save(ctx, collection, entries); err != nil {
		return err
	}
	h.index.Invalidate()
	return nil
}

// readBSONStream splits a concatenation of BSON documents, the on-disk layout
// mongodump produces.
func readBSONStream(data []byte) ([]bson.M, error) {
	var docs []bson.M
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, fmt.Errorf("truncated bson stream")
		}
		size := int(binary.LittleEndian.Uint32(data[:4]))
		if size < 5 || size > len(data) {
			return nil, fmt.Errorf("invalid bson document size %d", size)
		}
		var doc bson.M
		if err := bson.Unmarshal(data[:size], &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
		data = data[size:]
	}
	return docs, nil
}

// convertLegacyDoc maps one legacy bot document to a catalog entry. Unknown
// documents (no slug and no name) are dropped.
func convertLegacyDoc(doc bson.M, collection string) *models.CatalogEntryModel {
	entry := &models.CatalogEntryModel{Status: models.StatusPublished}

	entry.Slug = stringField(doc, "slug", "id")
	entry.LocaleRU.Name = stringField(doc, "name_ru", "name")
	entry.LocaleEN.Name = stringField(doc, "name_en", "name")
	if entry.Slug == "" && entry.LocaleRU.Name == "" && entry.LocaleEN.Name == "" {
		return nil
	}
	if entry.Slug == "" {
		entry.Slug = strings.ToLower(strings.ReplaceAll(firstNonEmpty(entry.LocaleEN.Name, entry.LocaleRU.Name), " ", "-"))
	}

	entry.LocaleRU.Description = stringField(doc, "description_ru", "description")
	entry.LocaleEN.Description = stringField(doc, "description_en", "description")
	entry.LocaleRU.Usage = stringField(doc, "usage_ru", "usage")
	entry.LocaleEN.Usage = stringField(doc, "usage_en", "usage")
	entry.Authors.RU = stringField(doc, "author_ru", "author")
	entry.Authors.EN = stringField(doc, "author_en", "author")

	if category := stringField(doc, "category"); category != "" && collection == models.CollectionPlugins {
		entry.Category = &category
	}
	if tags, ok := doc["hashtags"].(bson.A); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				entry.Hashtags = append(entry.Hashtags, s)
			}
		}
	}
	switch id := doc["message_id"].(type) {
	case int32:
		entry.ChannelMessage.MessageID = int64(id)
	case int64:
		entry.ChannelMessage.MessageID = id
	case float64:
		entry.ChannelMessage.MessageID = int64(id)
	}

	return entry
}

func stringField(doc bson.M, keys ...string) string {
	for _, key := range keys {
		if v, ok := doc[key].(string); ok {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func baseName(path string) string {
	if idx := strings.LastIndexAny(path, "/\\"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

func knownCollection(name string) bool {
	for _, c := range collections {
		if name == c {
			return true
		}
	}
	return false
}
