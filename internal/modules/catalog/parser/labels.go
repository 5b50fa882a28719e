package parser

import "regexp"

// Canonical field names. Raw blocks keep these as map keys so an entry can be
// round-tripped into future edits without losing unrecognized values.
const (
	FieldName          = "name"
	FieldDescription   = "description"
	FieldUsage         = "usage"
	FieldSettings      = "settings"
	FieldMinVersion    = "min_version"
	FieldAuthor        = "author"
	FieldAuthorChannel = "author_channel"
	FieldCheckedOn     = "checked_on"
	FieldUpdatedOn     = "updated_on"
)

// ruLabels maps lower-cased Russian field labels (without the trailing colon)
// to canonical field names.
var ruLabels = map[string]string{
	"название":            FieldName,
	"имя":                 FieldName,
	"описание":            FieldDescription,
	"использование":       FieldUsage,
	"настройки":           FieldSettings,
	"мин. версия":         FieldMinVersion,
	"минимальная версия":  FieldMinVersion,
	"автор":               FieldAuthor,
	"авторы":              FieldAuthor,
	"канал автора":        FieldAuthorChannel,
	"проверено на":        FieldCheckedOn,
	"проверено":           FieldCheckedOn,
	"обновлено":           FieldUpdatedOn,
	"последнее обновление": FieldUpdatedOn,
}

var enLabels = map[string]string{
	"title":          FieldName,
	"name":           FieldName,
	"description":    FieldDescription,
	"usage":          FieldUsage,
	"settings":       FieldSettings,
	"min version":    FieldMinVersion,
	"min. version":   FieldMinVersion,
	"author":         FieldAuthor,
	"authors":        FieldAuthor,
	"author channel": FieldAuthorChannel,
	"checked on":     FieldCheckedOn,
	"updated on":     FieldUpdatedOn,
	"last updated":   FieldUpdatedOn,
}

// Content-type marker tags. A post is a plugin unless an icon-pack tag is
// present.
var pluginTags = map[string]struct{}{
	"#plugin":  {},
	"#plugins": {},
	"#плагин":  {},
	"#плагины": {},
}

var iconPackTags = map[string]struct{}{
	"#iconpack":  {},
	"#iconpacks": {},
	"#icons":     {},
	"#иконки":    {},
}

// builtinSynonyms supplements the configured category records with tags the
// channel has used historically.
var builtinSynonyms = map[string]string{
	"#утилс":   "utilities",
	"#misc":    "other",
	"#разное":  "other",
	"#themes":  "appearance",
	"#темы":    "appearance",
}

var (
	hashtagRe = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
	handleRe  = regexp.MustCompile(`@\w+`)

	// Section markers are a flag emoji (two regional indicators) followed by
	// a bracketed language code, e.g. "🇷🇺 [RU]:" / "🇺🇸 [EN]:".
	ruMarkerRe = regexp.MustCompile(`(?i)[\x{1F1E6}-\x{1F1FF}]{2}\s*\[RU\]:?`)
	enMarkerRe = regexp.MustCompile(`(?i)[\x{1F1E6}-\x{1F1FF}]{2}\s*\[EN\]:?`)

	slugStripRe    = regexp.MustCompile(`[^\p{L}\p{N}_\s-]+`)
	slugCollapseRe = regexp.MustCompile(`[\s_]+`)
)

// truthyTokens are accepted values for the settings field.
var truthyTokens = map[string]struct{}{
	"yes":  {},
	"да":   {},
	"true": {},
	"1":    {},
}
