// Package parser recovers structured bilingual catalog fields from loosely
// formatted channel posts. Parsing is pure: no I/O, no errors for malformed
// input — a message that does not look like a catalog submission at all
// yields nil.
package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/plughub/core/internal/pkg/richtext"
)

// Category is one configured category record: a stable key plus the Russian
// and English hashtag variants that map to it.
type Category struct {
	Key   string `yaml:"key"   json:"key"`
	TagRU string `yaml:"tag_ru" json:"tag_ru"`
	TagEN string `yaml:"tag_en" json:"tag_en"`
}

// DefaultCategories is the built-in category set used when the config file
// does not override it.
var DefaultCategories = []Category{
	{Key: "utilities", TagRU: "#утилиты", TagEN: "#utilities"},
	{Key: "appearance", TagRU: "#оформление", TagEN: "#appearance"},
	{Key: "media", TagRU: "#медиа", TagEN: "#media"},
	{Key: "tools", TagRU: "#инструменты", TagEN: "#tools"},
	{Key: "fun", TagRU: "#развлечения", TagEN: "#fun"},
	{Key: "moderation", TagRU: "#модерация", TagEN: "#moderation"},
	{Key: "integrations", TagRU: "#интеграции", TagEN: "#integrations"},
	{Key: "development", TagRU: "#разработка", TagEN: "#development"},
	{Key: "other", TagRU: "#другое", TagEN: "#other"},
}

// LocaleBlock holds one language's parsed fields. Raw preserves the verbatim
// canonical-field → value map for round-tripping into future edits.
type LocaleBlock struct {
	Name          string
	Description   string
	Usage         string
	Settings      string
	MinVersion    string
	Author        string
	AuthorChannel string
	CheckedOn     string
	UpdatedOn     string

	Raw map[string]string
}

// Empty reports whether no field was recognized.
func (b LocaleBlock) Empty() bool { return len(b.Raw) == 0 }

// Input is the slice of a raw channel message the parser consumes.
type Input struct {
	MessageID int64
	Text      string
	RichText  string
	Date      time.Time
}

// ParsedPost is the structured result of parsing one channel post.
type ParsedPost struct {
	RU LocaleBlock
	EN LocaleBlock

	Category string // empty = no category hashtag
	Hashtags []string
	IsPlugin bool

	RawText     string
	RawRichText string
	MessageID   int64
	MessageDate time.Time
}

// Parser maps hashtags to categories and drives field extraction.
type Parser struct {
	tagCategory map[string]string
}

// New builds a Parser from category records. Nil records fall back to
// DefaultCategories; built-in synonyms are merged either way.
func New(categories []Category) *Parser {
	if categories == nil {
		categories = DefaultCategories
	}
	table := make(map[string]string, len(categories)*2+len(builtinSynonyms))
	for _, c := range categories {
		if tag := strings.ToLower(strings.TrimSpace(c.TagRU)); tag != "" {
			table[tag] = c.Key
		}
		if tag := strings.ToLower(strings.TrimSpace(c.TagEN)); tag != "" {
			table[tag] = c.Key
		}
	}
	for tag, key := range builtinSynonyms {
		if _, taken := table[tag]; !taken {
			table[tag] = key
		}
	}
	return &Parser{tagCategory: table}
}

// Parse converts one message into a ParsedPost, or returns nil when the text
// does not plausibly contain catalog content.
func (p *Parser) Parse(in Input) *ParsedPost {
	text := in.Text
	if strings.TrimSpace(text) == "" {
		return nil
	}

	hashtags := extractHashtags(text)

	isPlugin := true
	hasContentTag := false
	for _, tag := range hashtags {
		if _, ok := iconPackTags[tag]; ok {
			isPlugin = false
			hasContentTag = true
		} else if _, ok := pluginTags[tag]; ok {
			hasContentTag = true
		}
	}

	lower := strings.ToLower(text)
	hasUsageMarker := strings.Contains(lower, "usage:") || strings.Contains(lower, "использование:")

	ruLoc := ruMarkerRe.FindStringIndex(text)
	enLoc := enMarkerRe.FindStringIndex(text)
	hasSections := ruLoc != nil && enLoc != nil

	if !hasContentTag && !hasUsageMarker && !hasSections {
		return nil
	}

	post := &ParsedPost{
		Category:    p.categoryOf(hashtags),
		Hashtags:    hashtags,
		IsPlugin:    isPlugin,
		RawText:     in.Text,
		RawRichText: in.RichText,
		MessageID:   in.MessageID,
		MessageDate: in.Date,
	}

	switch {
	case ruLoc != nil && enLoc != nil:
		ruSection := sliceBetween(text, ruLoc[0], enLoc[0])
		enSection := sliceToHashtagBlock(text[enLoc[0]:])
		post.RU = scanFields(ruSection, ruLabels)
		post.EN = scanFields(enSection, enLabels)
	case ruLoc != nil:
		post.RU = scanFields(sliceToHashtagBlock(text[ruLoc[0]:]), ruLabels)
	case enLoc != nil:
		post.EN = scanFields(sliceToHashtagBlock(text[enLoc[0]:]), enLabels)
	default:
		// Best-effort fallback for single-language or malformed posts:
		// run the whole text against both label tables.
		body := sliceToHashtagBlock(text)
		post.RU = scanFields(body, ruLabels)
		post.EN = scanFields(body, enLabels)
	}

	return post
}

func (p *Parser) categoryOf(hashtags []string) string {
	for _, tag := range hashtags {
		if key, ok := p.tagCategory[tag]; ok {
			return key
		}
	}
	return ""
}

// extractHashtags returns all hashtag tokens, lower-cased, in order of first
// appearance.
func extractHashtags(text string) []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, m := range hashtagRe.FindAllString(text, -1) {
		tag := strings.ToLower(m)
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// sliceBetween returns text[from:to], tolerating a marker order where the EN
// section precedes the RU one.
func sliceBetween(text string, from, to int) string {
	if to < from {
		return text[from:]
	}
	return text[from:to]
}

// sliceToHashtagBlock cuts section at the first line consisting of hashtags,
// which by convention trails the English block.
func sliceToHashtagBlock(section string) string {
	lines := strings.Split(section, "\n")
	for i := 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.TrimSpace(hashtagRe.ReplaceAllString(trimmed, "")) == "" {
			return strings.Join(lines[:i], "\n")
		}
	}
	return section
}

// scanFields walks a section line by line. A line opens a new field when it
// starts with a known label and a colon; every other line is appended to the
// currently open field.
func scanFields(section string, labels map[string]string) LocaleBlock {
	block := LocaleBlock{Raw: map[string]string{}}

	current := ""
	var value []string

	flush := func() {
		if current == "" {
			return
		}
		joined := strings.TrimSpace(strings.Join(value, "\n"))
		block.Raw[current] = joined
		block.set(current, joined)
		current = ""
		value = nil
	}

	for _, line := range strings.Split(section, "\n") {
		field, rest, ok := matchLabel(line, labels)
		if ok {
			flush()
			current = field
			if rest != "" {
				value = append(value, rest)
			}
			continue
		}
		if current != "" {
			value = append(value, strings.TrimSpace(line))
		}
	}
	flush()

	return block
}

// matchLabel reports whether line opens a field, returning the canonical
// field and the remainder of the line with inline markup stripped.
func matchLabel(line string, labels map[string]string) (string, string, bool) {
	trimmed := strings.TrimSpace(line)
	colon := strings.Index(trimmed, ":")
	if colon <= 0 {
		return "", "", false
	}
	label := strings.ToLower(strings.TrimSpace(trimmed[:colon]))
	field, ok := labels[label]
	if !ok {
		return "", "", false
	}
	rest := strings.TrimSpace(trimmed[colon+1:])
	if strings.ContainsAny(rest, "<>") {
		rest = strings.TrimSpace(richtext.Strip(rest))
	}
	return field, rest, true
}

func (b *LocaleBlock) set(field, value string) {
	switch field {
	case FieldName:
		b.Name = value
	case FieldDescription:
		b.Description = value
	case FieldUsage:
		b.Usage = value
	case FieldSettings:
		b.Settings = value
	case FieldMinVersion:
		b.MinVersion = value
	case FieldAuthor:
		b.Author = value
	case FieldAuthorChannel:
		b.AuthorChannel = value
	case FieldCheckedOn:
		b.CheckedOn = value
	case FieldUpdatedOn:
		b.UpdatedOn = value
	}
}

// Slug derives the URL-safe identifier for the post. The Russian block's name
// wins, then the English one; a nameless post falls back to a message-id slug
// so the result is never empty.
func (p *ParsedPost) Slug() string {
	name := p.RU.Name
	if name == "" {
		name = p.EN.Name
	}

	slug := strings.ToLower(name)
	slug = slugStripRe.ReplaceAllString(slug, "")
	slug = slugCollapseRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug != "" {
		return slug
	}
	if p.IsPlugin {
		return fmt.Sprintf("plugin-%d", p.MessageID)
	}
	return fmt.Sprintf("iconpack-%d", p.MessageID)
}

// HasSettings reports whether either locale declares a settings UI.
func (p *ParsedPost) HasSettings() bool {
	for _, v := range []string{p.RU.Settings, p.EN.Settings} {
		if _, ok := truthyTokens[strings.ToLower(strings.TrimSpace(v))]; ok {
			return true
		}
	}
	return false
}

// Handles returns the deduplicated @handles mentioned in the author fields of
// both locales, in order of first appearance.
func (p *ParsedPost) Handles() []string {
	seen := make(map[string]struct{})
	var handles []string
	for _, src := range []string{p.RU.Author, p.RU.AuthorChannel, p.EN.Author, p.EN.AuthorChannel} {
		for _, h := range handleRe.FindAllString(src, -1) {
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}
			handles = append(handles, h)
		}
	}
	return handles
}
