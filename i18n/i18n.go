// Package i18n translates xcfill's own messages.
//
// Catalogs are gettext PO files embedded under locales/{lang}/LC_MESSAGES,
// read through gotext. Call Init once before the first T or N; until then
// both return their msgid unchanged.
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

const domain = "xcfill"

var (
	po      *gotext.Locale
	msgs    map[string]*gotext.Translation
	current = "en"
)

// Init loads the catalog for lang. An empty lang is taken from the
// environment the way GNU gettext does.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}
	current = lang
	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
	msgs = po.GetTranslations()
}

// T returns the translation of msgid, or msgid itself. The result is
// never run through a formatter; callers format it themselves.
func T(msgid string) string {
	if tr, ok := msgs[msgid]; ok {
		return tr.Get()
	}
	return msgid
}

// N picks the plural form of msgid for n using the catalog's Plural-Forms.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// Current reports the language passed to (or detected by) Init.
func Current() string { return current }

// Available lists the languages with an embedded catalog, sorted.
func Available() []string {
	dirs, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return nil
	}
	var langs []string
	for _, d := range dirs {
		if d.IsDir() && hasCatalog(d.Name()) {
			langs = append(langs, d.Name())
		}
	}
	sort.Strings(langs)
	return langs
}

func hasCatalog(lang string) bool {
	_, err := fs.Stat(locales, "locales/"+lang+"/LC_MESSAGES/"+domain+".po")
	return err == nil
}

// detectLanguage returns the first environment locale that has a catalog,
// either exactly or through its language subtag. Without such a match the
// first candidate wins; "en" when there is none.
func detectLanguage() string {
	cands := candidates()
	for _, c := range cands {
		if hasCatalog(c) {
			return c
		}
		if i := strings.IndexByte(c, '_'); i > 0 && hasCatalog(c[:i]) {
			return c
		}
	}
	if len(cands) > 0 {
		return cands[0]
	}
	return "en"
}

// candidates collects locale names in gettext priority order:
// LANGUAGE (a colon list), LC_ALL, LC_MESSAGES, LANG. Encodings and
// modifiers are stripped; C and POSIX are dropped.
func candidates() []string {
	var out []string
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		parts := []string{val}
		if env == "LANGUAGE" {
			parts = strings.Split(val, ":")
		}
		for _, p := range parts {
			if i := strings.IndexAny(p, ".@"); i >= 0 {
				p = p[:i]
			}
			if p == "" || p == "C" || p == "POSIX" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
