// Package render serves standalone share pages for catalog entries.
package render

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/plughub/core/internal/models"
	"github.com/plughub/core/internal/modules/catalog/index"
	"github.com/plughub/core/internal/pkg/response"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

type Handler struct {
	idx *index.Service
}

func NewHandler(idx *index.Service) *Handler { return &Handler{idx: idx} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/render")
	g.GET("/:kind/:slug", h.renderEntry)
}

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
	),
)

func (h *Handler) renderEntry(c *gin.Context) {
	kind := c.Param("kind")
	if kind != models.CollectionPlugins && kind != models.CollectionIconPacks {
		response.NotFoundMsg(c, "unknown collection")
		return
	}
	entry, err := h.idx.FindBySlug(c.Request.Context(), kind, c.Param("slug"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if entry == nil {
		response.NotFound(c)
		return
	}

	lang := strings.ToLower(strings.TrimSpace(c.Query("lang")))
	locale := entry.LocaleEN
	if lang == "ru" || (lang == "" && locale.Name == "") {
		locale = entry.LocaleRU
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, renderEntryHTML(entry, locale))
}

func renderEntryHTML(entry *models.CatalogEntryModel, locale models.EntryLocale) string {
	title := locale.Name
	if title == "" {
		title = entry.Slug
	}
	escapedTitle := template.HTMLEscapeString(strings.TrimSpace(title))

	var body strings.Builder
	if locale.Description != "" {
		body.WriteString(renderMarkdown(locale.Description))
	}
	if locale.Usage != "" {
		body.WriteString("<h2>Usage</h2>")
		body.WriteString(renderMarkdown(locale.Usage))
	}

	var meta strings.Builder
	if author := firstNonEmpty(entry.Authors.EN, entry.Authors.RU); author != "" {
		meta.WriteString("<li>Author: " + template.HTMLEscapeString(author) + "</li>")
	}
	if entry.Requirements.MinVersion != "" {
		meta.WriteString("<li>Requires client version " + template.HTMLEscapeString(entry.Requirements.MinVersion) + " or newer</li>")
	}
	if entry.Category != nil {
		meta.WriteString("<li>Category: " + template.HTMLEscapeString(*entry.Category) + "</li>")
	}
	if entry.ChannelMessage.Link != "" {
		link := template.HTMLEscapeString(entry.ChannelMessage.Link)
		meta.WriteString(`<li><a href="` + link + `">Original post</a></li>`)
	}

	return `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>` + escapedTitle + `</title>
  <style>
    body { margin: 0; padding: 24px; font: 16px/1.7 -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; color: #222; background: #fff; }
    main { max-width: 860px; margin: 0 auto; }
    h1 { margin: 0 0 20px; font-size: 28px; }
    ul.meta { color: #666; padding-left: 18px; }
    pre { white-space: pre-wrap; word-break: break-word; border: 1px solid #eee; border-radius: 8px; padding: 16px; background: #fafafa; }
  </style>
</head>
<body>
  <main>
    <h1>` + escapedTitle + `</h1>
    <ul class="meta">` + meta.String() + `</ul>
    ` + body.String() + `
  </main>
</body>
</html>`
}

func renderMarkdown(text string) string {
	var out bytes.Buffer
	if err := markdownEngine.Convert([]byte(text), &out); err != nil {
		return "<pre>" + template.HTMLEscapeString(text) + "</pre>"
	}
	return out.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
