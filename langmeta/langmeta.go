// Package langmeta provides language display metadata (English and native
// names, emoji flags) for locale codes used in Xcode string catalogs.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	English string
	Native  string
	Flag    string
}

// Registry contains canonical language metadata. Locale variants are
// resolved in Resolve() via normalization and base fallback.
var Registry = map[string]Meta{
	"ar":      {English: "Arabic", Native: "العربية", Flag: "🇸🇦"},
	"ca":      {English: "Catalan", Native: "Català", Flag: "🇪🇸"},
	"cs":      {English: "Czech", Native: "Čeština", Flag: "🇨🇿"},
	"da":      {English: "Danish", Native: "Dansk", Flag: "🇩🇰"},
	"de":      {English: "German", Native: "Deutsch", Flag: "🇩🇪"},
	"el":      {English: "Greek", Native: "Ελληνικά", Flag: "🇬🇷"},
	"en":      {English: "English", Native: "English", Flag: "🇺🇸"},
	"en-AU":   {English: "English (Australia)", Native: "English (Australia)", Flag: "🇦🇺"},
	"en-GB":   {English: "English (United Kingdom)", Native: "English (UK)", Flag: "🇬🇧"},
	"en-IN":   {English: "English (India)", Native: "English (India)", Flag: "🇮🇳"},
	"es":      {English: "Spanish", Native: "Español", Flag: "🇪🇸"},
	"es-419":  {English: "Spanish (Latin America)", Native: "Español (Latinoamérica)", Flag: "🌎"},
	"fi":      {English: "Finnish", Native: "Suomi", Flag: "🇫🇮"},
	"fr":      {English: "French", Native: "Français", Flag: "🇫🇷"},
	"fr-CA":   {English: "French (Canada)", Native: "Français (Canada)", Flag: "🇨🇦"},
	"he":      {English: "Hebrew", Native: "עברית", Flag: "🇮🇱"},
	"hi":      {English: "Hindi", Native: "हिन्दी", Flag: "🇮🇳"},
	"hr":      {English: "Croatian", Native: "Hrvatski", Flag: "🇭🇷"},
	"hu":      {English: "Hungarian", Native: "Magyar", Flag: "🇭🇺"},
	"id":      {English: "Indonesian", Native: "Bahasa Indonesia", Flag: "🇮🇩"},
	"it":      {English: "Italian", Native: "Italiano", Flag: "🇮🇹"},
	"ja":      {English: "Japanese", Native: "日本語", Flag: "🇯🇵"},
	"ko":      {English: "Korean", Native: "한국어", Flag: "🇰🇷"},
	"ms":      {English: "Malay", Native: "Bahasa Melayu", Flag: "🇲🇾"},
	"nb":      {English: "Norwegian Bokmål", Native: "Norsk bokmål", Flag: "🇳🇴"},
	"nl":      {English: "Dutch", Native: "Nederlands", Flag: "🇳🇱"},
	"pl":      {English: "Polish", Native: "Polski", Flag: "🇵🇱"},
	"pt":      {English: "Portuguese", Native: "Português", Flag: "🇵🇹"},
	"pt-BR":   {English: "Portuguese (Brazil)", Native: "Português (Brasil)", Flag: "🇧🇷"},
	"pt-PT":   {English: "Portuguese (Portugal)", Native: "Português (Portugal)", Flag: "🇵🇹"},
	"ro":      {English: "Romanian", Native: "Română", Flag: "🇷🇴"},
	"ru":      {English: "Russian", Native: "Русский", Flag: "🇷🇺"},
	"sk":      {English: "Slovak", Native: "Slovenčina", Flag: "🇸🇰"},
	"sv":      {English: "Swedish", Native: "Svenska", Flag: "🇸🇪"},
	"th":      {English: "Thai", Native: "ไทย", Flag: "🇹🇭"},
	"tr":      {English: "Turkish", Native: "Türkçe", Flag: "🇹🇷"},
	"uk":      {English: "Ukrainian", Native: "Українська", Flag: "🇺🇦"},
	"vi":      {English: "Vietnamese", Native: "Tiếng Việt", Flag: "🇻🇳"},
	"zh-HK":   {English: "Chinese (Hong Kong)", Native: "中文（香港）", Flag: "🇭🇰"},
	"zh-Hans": {English: "Chinese, Simplified", Native: "简体中文", Flag: "🇨🇳"},
	"zh-Hant": {English: "Chinese, Traditional", Native: "繁體中文", Flag: "🇹🇼"},
}

// canonicalize normalizes case and separators: "pt_br" → "pt-BR",
// "zh-hans" → "zh-Hans", "ES-419" → "es-419".
func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	for i := 1; i < len(parts); i++ {
		switch p := parts[i]; len(p) {
		case 2:
			parts[i] = strings.ToUpper(p)
		case 4:
			parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
		}
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort language metadata for a locale code,
// supporting variants like pt_BR and pt-BR. Codes outside the registry get
// their names from the CLDR display tables and the flag of their base
// language; unknown codes pass through unchanged.
func Resolve(lang string) Meta {
	if m, ok := Registry[lang]; ok {
		return m
	}
	normalized := canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	var base Meta
	if code, _, ok := strings.Cut(normalized, "-"); ok {
		base = Registry[code]
	}
	if tag, err := language.Parse(normalized); err == nil {
		if name := display.English.Tags().Name(tag); name != "" {
			native := display.Self.Name(tag)
			if native == "" {
				native = name
			}
			return Meta{English: name, Native: native, Flag: base.Flag}
		}
	}
	if base.English != "" {
		return base
	}
	return Meta{English: lang, Native: lang}
}

// Label returns "code (English name)" for prompts and logs.
func Label(lang string) string {
	m := Resolve(lang)
	if m.English == "" || m.English == lang {
		return lang
	}
	return lang + " (" + m.English + ")"
}
