package sync

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = `{
  "name": "Plugins Demo",
  "type": "public_channel",
  "id": 123,
  "messages": [
    {"id": 2, "type": "message", "date": "2025-06-01T12:00:00",
     "text": ["Name: ", {"type": "bold", "text": "Weather"}, "\n#plugin"]},
    {"id": 1, "type": "message", "date": "2025-05-30T09:30:00", "text": "older post",
     "file": "files/weather.plugin", "file_name": "weather.plugin", "file_size": 2048},
    {"id": 3, "type": "service", "date": "2025-06-02T00:00:00", "text": ""}
  ]
}`

func writeExport(t *testing.T, handle, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, handle+".json"), []byte(content), 0o644))
	return dir
}

func TestExportSourceFetchHistory(t *testing.T) {
	dir := writeExport(t, "plugins_demo", sampleExport)
	src := NewExportSource(dir)

	messages, err := src.FetchHistory(context.Background(), Channel{Handle: "plugins_demo"})
	require.NoError(t, err)
	require.Len(t, messages, 2, "service messages are dropped")

	// Sorted ascending by ID.
	assert.Equal(t, int64(1), messages[0].ID)
	assert.Equal(t, int64(2), messages[1].ID)

	assert.Equal(t, "older post", messages[0].Text)
	require.NotNil(t, messages[0].Document)
	assert.Equal(t, "weather.plugin", messages[0].Document.Name)
	assert.Equal(t, int64(2048), messages[0].Document.Size)

	assert.Equal(t, "Name: Weather\n#plugin", messages[1].Text)
	assert.Equal(t, "Name: <b>Weather</b>\n#plugin", messages[1].RichText)
	assert.Equal(t, 2025, messages[1].Date.Year())
}

func TestExportSourceLimitKeepsNewest(t *testing.T) {
	dir := writeExport(t, "plugins_demo", sampleExport)
	src := NewExportSource(dir)

	messages, err := src.FetchHistory(context.Background(), Channel{Handle: "plugins_demo", Limit: 1})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, int64(2), messages[0].ID)
}

func TestExportSourceMissingFile(t *testing.T) {
	src := NewExportSource(t.TempDir())

	_, err := src.FetchHistory(context.Background(), Channel{Handle: "nope"})
	assert.Error(t, err)
}

func TestDecodeExportTextVariants(t *testing.T) {
	plain, rich := decodeExportText(json.RawMessage(`"a < b"`))
	assert.Equal(t, "a < b", plain)
	assert.Equal(t, "a &lt; b", rich)

	plain, rich = decodeExportText(json.RawMessage(`[{"type": "text_link", "text": "site", "href": "https://example.com"}]`))
	assert.Equal(t, "site", plain)
	assert.Equal(t, `<a href="https://example.com">site</a>`, rich)

	plain, rich = decodeExportText(json.RawMessage(`[{"type": "blockquote", "text": "quoted"}]`))
	assert.Equal(t, "quoted", plain)
	assert.Equal(t, "<blockquote>quoted</blockquote>", rich)

	plain, rich = decodeExportText(nil)
	assert.Empty(t, plain)
	assert.Empty(t, rich)
}
