// Package richtext composes a generic rich-text markup parser with an
// unsupported block-quote dialect. Unknown syntax is isolated behind
// reversible sentinel runes, the generic parser runs over the sentinel-laden
// source, and a kept/removed prefix-sum pass re-expresses every span offset
// in the coordinates of the final, marker-free text.
package richtext

import (
	"regexp"
	"strings"
	"unicode/utf16"

	"golang.org/x/net/html"
)

// EntityType identifies a formatting span style.
type EntityType string

const (
	Bold          EntityType = "bold"
	Italic        EntityType = "italic"
	Underline     EntityType = "underline"
	Strikethrough EntityType = "strikethrough"
	Code          EntityType = "code"
	Pre           EntityType = "pre"
	Link          EntityType = "text_link"
	Spoiler       EntityType = "spoiler"
	Blockquote    EntityType = "blockquote"
)

// Entity is a formatting span over the plain text. Offset and Length are
// UTF-16 code units, matching the wire convention of the message transport.
type Entity struct {
	Type       EntityType `json:"type"`
	Offset     int        `json:"offset"`
	Length     int        `json:"length"`
	URL        string     `json:"url,omitempty"`
	Expandable bool       `json:"expandable,omitempty"`
}

// Sentinels live in the BMP private-use area so each occupies exactly one
// UTF-16 code unit and can never collide with message content.
const (
	sentinelQuoteOpen       = '\uE100'
	sentinelQuoteOpenExpand = '\uE101'
	sentinelQuoteClose      = '\uE102'
)

var (
	quoteOpenExpandRe = regexp.MustCompile(`(?i)<blockquote\s+expandable\s*>`)
	quoteOpenRe       = regexp.MustCompile(`(?i)<blockquote\s*>`)
	quoteCloseRe      = regexp.MustCompile(`(?i)</blockquote\s*>`)
)

// Remap strips all markup from source and returns the plain text together
// with formatting spans whose offsets are valid against that plain text.
// Block-quote regions from the private dialect come back as synthesized
// Blockquote entities; unmatched open markers are dropped silently.
func Remap(source string) (string, []Entity) {
	hidden := quoteOpenExpandRe.ReplaceAllString(source, string(sentinelQuoteOpenExpand))
	hidden = quoteOpenRe.ReplaceAllString(hidden, string(sentinelQuoteOpen))
	hidden = quoteCloseRe.ReplaceAllString(hidden, string(sentinelQuoteClose))

	intermediate, entities := parseGeneric(hidden)

	units := utf16.Encode([]rune(intermediate))
	kept := make([]bool, len(units))
	for i, u := range units {
		kept[i] = u != sentinelQuoteOpen && u != sentinelQuoteOpenExpand && u != sentinelQuoteClose
	}
	prefix := make([]int, len(units)+1)
	for i, k := range kept {
		prefix[i+1] = prefix[i]
		if k {
			prefix[i+1]++
		}
	}

	final := make([]uint16, 0, len(units))
	for i, u := range units {
		if kept[i] {
			final = append(final, u)
		}
	}

	remapped := make([]Entity, 0, len(entities))
	for _, e := range entities {
		if e.Offset < 0 || e.Offset+e.Length > len(units) {
			continue
		}
		offset := prefix[e.Offset]
		length := prefix[e.Offset+e.Length] - prefix[e.Offset]
		if length <= 0 {
			continue
		}
		e.Offset = offset
		e.Length = length
		remapped = append(remapped, e)
	}

	// Pair every open sentinel with the nearest subsequent close. The
	// dialect does not nest, so sequential pairing is sufficient.
	var pending []struct {
		pos        int
		expandable bool
	}
	for i, u := range units {
		switch u {
		case sentinelQuoteOpen, sentinelQuoteOpenExpand:
			pending = append(pending, struct {
				pos        int
				expandable bool
			}{i, u == sentinelQuoteOpenExpand})
		case sentinelQuoteClose:
			for _, open := range pending {
				length := prefix[i] - prefix[open.pos]
				if length <= 0 {
					continue
				}
				remapped = append(remapped, Entity{
					Type:       Blockquote,
					Offset:     prefix[open.pos],
					Length:     length,
					Expandable: open.expandable,
				})
			}
			pending = pending[:0]
		}
	}

	sortEntities(remapped)
	return string(utf16.Decode(final)), remapped
}

// Strip removes all markup (standard and dialect) and returns plain text.
func Strip(source string) string {
	plain, _ := Remap(source)
	return plain
}

func sortEntities(entities []Entity) {
	// Insertion sort keeps the slice stable; span lists are short.
	for i := 1; i < len(entities); i++ {
		for j := i; j > 0 && less(entities[j], entities[j-1]); j-- {
			entities[j], entities[j-1] = entities[j-1], entities[j]
		}
	}
}

func less(a, b Entity) bool {
	if a.Offset != b.Offset {
		return a.Offset < b.Offset
	}
	return a.Length > b.Length
}

// parseGeneric runs the generic markup parser over src and returns the
// unescaped plain text plus spans in UTF-16 code units of that text.
// Sentinel runes pass through as ordinary text.
func parseGeneric(src string) (string, []Entity) {
	tz := html.NewTokenizer(strings.NewReader(src))

	var sb strings.Builder
	offset := 0
	var open []*Entity
	var done []Entity

	flush := func(types ...EntityType) {
		for i := len(open) - 1; i >= 0; i-- {
			for _, t := range types {
				if open[i].Type != t {
					continue
				}
				e := *open[i]
				e.Length = offset - e.Offset
				if e.Length > 0 {
					done = append(done, e)
				}
				open = append(open[:i], open[i+1:]...)
				return
			}
		}
	}

	for {
		switch tz.Next() {
		case html.ErrorToken:
			// Unclosed spans extend to the end of text.
			for _, e := range open {
				e.Length = offset - e.Offset
				if e.Length > 0 {
					done = append(done, *e)
				}
			}
			return sb.String(), done
		case html.TextToken:
			text := string(tz.Text())
			sb.WriteString(text)
			offset += utf16Len(text)
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tz.TagName()
			switch string(name) {
			case "br":
				sb.WriteString("\n")
				offset++
			case "b", "strong":
				open = append(open, &Entity{Type: Bold, Offset: offset})
			case "i", "em":
				open = append(open, &Entity{Type: Italic, Offset: offset})
			case "u", "ins":
				open = append(open, &Entity{Type: Underline, Offset: offset})
			case "s", "strike", "del":
				open = append(open, &Entity{Type: Strikethrough, Offset: offset})
			case "code":
				open = append(open, &Entity{Type: Code, Offset: offset})
			case "pre":
				open = append(open, &Entity{Type: Pre, Offset: offset})
			case "tg-spoiler":
				open = append(open, &Entity{Type: Spoiler, Offset: offset})
			case "a":
				e := &Entity{Type: Link, Offset: offset}
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = tz.TagAttr()
					if string(key) == "href" {
						e.URL = string(val)
					}
				}
				open = append(open, e)
			case "span":
				spoiler := false
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = tz.TagAttr()
					if string(key) == "class" && strings.Contains(string(val), "tg-spoiler") {
						spoiler = true
					}
				}
				if spoiler {
					open = append(open, &Entity{Type: Spoiler, Offset: offset})
				}
			}
		case html.EndTagToken:
			name, _ := tz.TagName()
			switch string(name) {
			case "b", "strong":
				flush(Bold)
			case "i", "em":
				flush(Italic)
			case "u", "ins":
				flush(Underline)
			case "s", "strike", "del":
				flush(Strikethrough)
			case "code":
				flush(Code)
			case "pre":
				flush(Pre)
			case "tg-spoiler", "span":
				flush(Spoiler)
			case "a":
				flush(Link)
			}
		}
	}
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
