package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weatherPost = `🇷🇺 [RU]:
Название: Погода
Описание: Показывает текущую погоду
Использование: .weather Москва
Настройки: да
Мин. версия: 11.12.0
Автор: @alice

🇺🇸 [EN]:
Name: Weather
Description: Shows the current weather
Usage: .weather Moscow
Settings: yes
Min version: 11.12.0
Author: @alice

#plugin #utilities`

func TestParseBilingualPost(t *testing.T) {
	p := New(nil)
	post := p.Parse(Input{MessageID: 7, Text: weatherPost, Date: time.Now()})

	require.NotNil(t, post)
	assert.True(t, post.IsPlugin)
	assert.Equal(t, "utilities", post.Category)
	assert.Contains(t, post.Hashtags, "#plugin")
	assert.Contains(t, post.Hashtags, "#utilities")

	assert.Equal(t, "Погода", post.RU.Name)
	assert.Equal(t, "Показывает текущую погоду", post.RU.Description)
	assert.Equal(t, ".weather Москва", post.RU.Usage)
	assert.Equal(t, "11.12.0", post.RU.MinVersion)

	assert.Equal(t, "Weather", post.EN.Name)
	assert.Equal(t, "Shows the current weather", post.EN.Description)
	assert.Equal(t, "yes", post.EN.Settings)
	assert.Equal(t, "@alice", post.EN.Author)

	assert.True(t, post.HasSettings())
	assert.Equal(t, []string{"@alice"}, post.Handles())
}

func TestParseEnglishSectionStopsAtHashtagBlock(t *testing.T) {
	p := New(nil)
	post := p.Parse(Input{MessageID: 1, Text: weatherPost})

	require.NotNil(t, post)
	// The trailing hashtag line must not leak into the last EN field.
	assert.NotContains(t, post.EN.Author, "#plugin")
}

func TestParseNonPostReturnsNil(t *testing.T) {
	p := New(nil)

	assert.Nil(t, p.Parse(Input{Text: "good morning everyone"}))
	assert.Nil(t, p.Parse(Input{Text: "   "}))
	assert.Nil(t, p.Parse(Input{Text: ""}))
}

func TestParseIconPackTag(t *testing.T) {
	p := New(nil)
	post := p.Parse(Input{MessageID: 3, Text: "Solar icons\nAuthor: @bob\n#iconpack"})

	require.NotNil(t, post)
	assert.False(t, post.IsPlugin)
}

func TestParseStripsInlineMarkupFromFieldValues(t *testing.T) {
	p := New(nil)
	post := p.Parse(Input{MessageID: 4, Text: "Название: <b>Погода</b>\n#plugin"})

	require.NotNil(t, post)
	assert.Equal(t, "Погода", post.RU.Name)
}

func TestSlugDerivation(t *testing.T) {
	p := New(nil)
	post := p.Parse(Input{MessageID: 7, Text: weatherPost})

	require.NotNil(t, post)
	assert.Equal(t, "погода", post.Slug())
}

func TestSlugFallsBackToMessageID(t *testing.T) {
	p := New(nil)

	plugin := p.Parse(Input{MessageID: 42, Text: "some release notes\n#plugin"})
	require.NotNil(t, plugin)
	assert.Equal(t, "plugin-42", plugin.Slug())

	pack := p.Parse(Input{MessageID: 43, Text: "fresh icons\n#iconpack"})
	require.NotNil(t, pack)
	assert.Equal(t, "iconpack-43", pack.Slug())
}

func TestParseIsDeterministic(t *testing.T) {
	p := New(nil)
	in := Input{MessageID: 7, Text: weatherPost}

	first := p.Parse(in)
	second := p.Parse(in)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first, second)
}

func TestCustomCategoriesOverrideDefaults(t *testing.T) {
	p := New([]Category{{Key: "widgets", TagRU: "#виджеты", TagEN: "#widgets"}})
	post := p.Parse(Input{MessageID: 5, Text: "Name: Clock\n#plugin #widgets"})

	require.NotNil(t, post)
	assert.Equal(t, "widgets", post.Category)
}

func TestBuiltinCategorySynonyms(t *testing.T) {
	p := New(nil)
	post := p.Parse(Input{MessageID: 6, Text: "Name: Dark\n#plugin #темы"})

	require.NotNil(t, post)
	assert.Equal(t, "appearance", post.Category)
}
