// Package i18n holds the widget's user-facing strings.
package i18n

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrUnsupportedLocale is returned for locale codes without a string table.
var ErrUnsupportedLocale = errors.New("unsupported locale")

// Locale is a supported language code.
type Locale string

const (
	English Locale = "en"
	Russian Locale = "ru"
	German  Locale = "de"
	Spanish Locale = "es"
)

// Supported lists locales in display order. The first one is the fallback
// for the language matcher.
var Supported = []Locale{English, Russian, German, Spanish}

// Key identifies a message.
type Key int

const (
	SidebarHeader Key = iota
	NoHeadings
	ToggleLabel
	LanguageLabel
	StoreReadFailed
	StoreWriteFailed
)

// Messages is the string table of one locale.
type Messages map[Key]string

var catalog = map[Locale]Messages{
	English: {
		SidebarHeader:    "Contents",
		NoHeadings:       "Your document's headings will be shown here",
		ToggleLabel:      "Toggle table of contents",
		LanguageLabel:    "Language",
		StoreReadFailed:  "Storage: failed to read data",
		StoreWriteFailed: "Storage: failed to save data",
	},
	Russian: {
		SidebarHeader:    "Содержание",
		NoHeadings:       "Здесь будут отображаться заголовки вашего документа",
		ToggleLabel:      "Показать или скрыть содержание",
		LanguageLabel:    "Язык",
		StoreReadFailed:  "Хранилище: ошибка получения данных",
		StoreWriteFailed: "Хранилище: ошибка сохранения данных",
	},
	German: {
		SidebarHeader:    "Inhalt",
		NoHeadings:       "Hier werden die Überschriften Ihres Dokuments angezeigt",
		ToggleLabel:      "Inhaltsverzeichnis ein- oder ausblenden",
		LanguageLabel:    "Sprache",
		StoreReadFailed:  "Speicher: Daten konnten nicht gelesen werden",
		StoreWriteFailed: "Speicher: Daten konnten nicht gespeichert werden",
	},
	Spanish: {
		SidebarHeader:    "Contenido",
		NoHeadings:       "Aquí se mostrarán los encabezados de tu documento",
		ToggleLabel:      "Mostrar u ocultar el índice",
		LanguageLabel:    "Idioma",
		StoreReadFailed:  "Almacenamiento: error al leer los datos",
		StoreWriteFailed: "Almacenamiento: error al guardar los datos",
	},
}

var (
	tags    []language.Tag
	matcher language.Matcher
)

func init() {
	for _, l := range Supported {
		tags = append(tags, language.Make(string(l)))
	}
	matcher = language.NewMatcher(tags)
}

// Parse validates a locale code.
func Parse(code string) (Locale, error) {
	l := Locale(code)
	if _, ok := catalog[l]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLocale, code)
	}
	return l, nil
}

// Detect picks the best supported locale for an Accept-Language header,
// returning fallback when nothing matches.
func Detect(acceptLanguage string, fallback Locale) Locale {
	if acceptLanguage == "" {
		return fallback
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return fallback
	}
	_, idx, conf := matcher.Match(prefs...)
	if conf == language.No {
		return fallback
	}
	return Supported[idx]
}

// Text returns the message for key in locale l, falling back to English.
func (l Locale) Text(key Key) string {
	if m, ok := catalog[l]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	return catalog[English][key]
}

// Name returns the locale's own name for itself.
func (l Locale) Name() string {
	return display.Self.Name(language.Make(string(l)))
}
