package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ExportSource reads channel history from Telegram Desktop "Export chat
// history" JSON dumps. Each channel maps to <dir>/<handle>.json.
type ExportSource struct {
	dir string
}

func NewExportSource(dir string) *ExportSource { return &ExportSource{dir: dir} }

type exportFile struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	ID       int64           `json:"id"`
	Messages []exportMessage `json:"messages"`
}

type exportMessage struct {
	ID       int64           `json:"id"`
	Type     string          `json:"type"`
	Date     string          `json:"date"`
	Text     json.RawMessage `json:"text"`
	File     string          `json:"file,omitempty"`
	FileName string          `json:"file_name,omitempty"`
	FileSize int64           `json:"file_size,omitempty"`
	Media    string          `json:"media_type,omitempty"`
}

// exportTextPart is one element of the export's polymorphic text array.
type exportTextPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Href string `json:"href,omitempty"`
}

func (s *ExportSource) FetchHistory(_ context.Context, channel Channel) ([]RawMessage, error) {
	path := filepath.Join(s.dir, channel.Handle+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export %s: %w", path, err)
	}

	var dump exportFile
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("decode export %s: %w", path, err)
	}

	var messages []RawMessage
	for _, msg := range dump.Messages {
		if msg.Type != "message" {
			continue
		}
		plain, rich := decodeExportText(msg.Text)
		raw := RawMessage{
			ID:       msg.ID,
			Text:     plain,
			RichText: rich,
			Date:     parseExportDate(msg.Date),
		}
		if name := exportFileName(msg); name != "" {
			raw.Document = &Document{Name: name, Size: msg.FileSize, RemoteRef: msg.File}
		}
		messages = append(messages, raw)
	}

	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	if channel.Limit > 0 && len(messages) > channel.Limit {
		messages = messages[len(messages)-channel.Limit:]
	}
	return messages, nil
}

// decodeExportText flattens the export's string-or-array text field into plain
// text plus an HTML rendition of the inline formatting.
func decodeExportText(raw json.RawMessage) (string, string) {
	if len(raw) == 0 {
		return "", ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain, html.EscapeString(plain)
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", ""
	}

	var text, rich strings.Builder
	for _, p := range parts {
		var s string
		if err := json.Unmarshal(p, &s); err == nil {
			text.WriteString(s)
			rich.WriteString(html.EscapeString(s))
			continue
		}
		var part exportTextPart
		if err := json.Unmarshal(p, &part); err != nil {
			continue
		}
		text.WriteString(part.Text)
		rich.WriteString(renderExportPart(part))
	}
	return text.String(), rich.String()
}

func renderExportPart(part exportTextPart) string {
	escaped := html.EscapeString(part.Text)
	switch part.Type {
	case "bold":
		return "<b>" + escaped + "</b>"
	case "italic":
		return "<i>" + escaped + "</i>"
	case "underline":
		return "<u>" + escaped + "</u>"
	case "strikethrough":
		return "<s>" + escaped + "</s>"
	case "code":
		return "<code>" + escaped + "</code>"
	case "pre":
		return "<pre>" + escaped + "</pre>"
	case "spoiler":
		return "<tg-spoiler>" + escaped + "</tg-spoiler>"
	case "text_link":
		return `<a href="` + html.EscapeString(part.Href) + `">` + escaped + "</a>"
	case "link":
		return `<a href="` + escaped + `">` + escaped + "</a>"
	case "blockquote":
		return "<blockquote>" + escaped + "</blockquote>"
	default:
		return escaped
	}
}

func exportFileName(msg exportMessage) string {
	if msg.FileName != "" {
		return msg.FileName
	}
	if msg.File != "" {
		return filepath.Base(msg.File)
	}
	return ""
}

func parseExportDate(value string) time.Time {
	t, err := time.Parse("2006-01-02T15:04:05", value)
	if err != nil {
		return time.Time{}
	}
	return t
}
