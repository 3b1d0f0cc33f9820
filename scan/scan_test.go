package scan

import (
	"reflect"
	"testing"

	"github.com/minios-linux/xcfill/lockfile"
	"github.com/minios-linux/xcfill/xcstrings"
)

const testCatalog = `{
  "sourceLanguage" : "en",
  "strings" : {
    "Hello" : {
      "localizations" : {
        "en" : { "stringUnit" : { "state" : "translated", "value" : "Hello" } },
        "de" : { "stringUnit" : { "state" : "translated", "value" : "Hallo" } },
        "fr" : { "stringUnit" : { "state" : "needs_review", "value" : "Salut" } },
        "es" : { "stringUnit" : { "state" : "translated", "value" : "" } }
      }
    },
    "%lld files" : {
      "localizations" : {
        "en" : { "variations" : { "plural" : {
          "one" : { "stringUnit" : { "state" : "translated", "value" : "%lld file" } },
          "other" : { "stringUnit" : { "state" : "translated", "value" : "%lld files" } }
        } } },
        "de" : { "variations" : { "plural" : {
          "one" : { "stringUnit" : { "state" : "translated", "value" : "" } },
          "other" : { "stringUnit" : { "state" : "translated", "value" : "%lld Dateien" } }
        } } },
        "fr" : { "variations" : { "plural" : {
          "one" : { "stringUnit" : { "state" : "translated", "value" : "" } },
          "other" : { "stringUnit" : { "state" : "needs_review", "value" : "x" } }
        } } }
      }
    },
    "No localizations" : { },
    "Debug only" : { "shouldTranslate" : false }
  }
}`

func load(t *testing.T, name, data string) *xcstrings.Catalog {
	t.Helper()
	c, err := xcstrings.Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c.Name = name
	return c
}

func TestScan_MissingDetection(t *testing.T) {
	c := load(t, "Localizable.xcstrings", testCatalog)
	r := Scan([]*xcstrings.Catalog{c}, Options{Locales: []string{"en", "de", "fr", "es"}})

	if len(r.Files) != 1 {
		t.Fatalf("files = %d, want 1", len(r.Files))
	}
	f := r.Files[0]
	if f.BaseLocale != "en" {
		t.Errorf("BaseLocale = %q, want en (from sourceLanguage)", f.BaseLocale)
	}

	got := map[string][]string{}
	var order []string
	for _, k := range f.Keys {
		got[k.Key] = k.Missing
		order = append(order, k.Key)
	}

	want := map[string][]string{
		"Hello":            {"fr", "es"},
		"%lld files":       {"fr", "es"},
		"No localizations": {"de", "fr", "es"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("missing = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(order, []string{"Hello", "%lld files", "No localizations"}) {
		t.Errorf("key order = %v", order)
	}
}

func TestScan_PluralBaseValue(t *testing.T) {
	c := load(t, "Localizable.xcstrings", testCatalog)
	r := Scan([]*xcstrings.Catalog{c}, Options{Locales: []string{"fr"}})

	for _, k := range r.Files[0].Keys {
		if k.Key != "%lld files" {
			continue
		}
		if !k.BaseValue.IsPlural() {
			t.Fatal("base value should be plural")
		}
		if one, _ := k.BaseValue.Form("one"); one != "%lld file" {
			t.Errorf("one = %q", one)
		}
		return
	}
	t.Fatal("%lld files not reported")
}

func TestScan_KeyIsFallbackBaseValue(t *testing.T) {
	c := load(t, "Localizable.xcstrings", testCatalog)
	r := Scan([]*xcstrings.Catalog{c}, Options{Locales: []string{"de"}})

	for _, k := range r.Files[0].Keys {
		if k.Key == "No localizations" && k.BaseValue.Text != "No localizations" {
			t.Errorf("BaseValue = %q, want key", k.BaseValue.Text)
		}
	}
}

func TestScan_Idempotent(t *testing.T) {
	c := load(t, "Localizable.xcstrings", testCatalog)
	opts := Options{Locales: []string{"de", "fr", "es", "ja"}}

	first := Scan([]*xcstrings.Catalog{c}, opts)
	second := Scan([]*xcstrings.Catalog{c}, opts)
	if !reflect.DeepEqual(first.Pairs(), second.Pairs()) {
		t.Error("scan is not idempotent")
	}
	if first.Count() != len(first.Pairs()) {
		t.Errorf("Count() = %d, Pairs() = %d", first.Count(), len(first.Pairs()))
	}
}

func TestScan_PairsOrder(t *testing.T) {
	a := load(t, "A.xcstrings", `{"strings":{"x":{},"y":{}}}`)
	b := load(t, "B.xcstrings", `{"strings":{"z":{}}}`)
	r := Scan([]*xcstrings.Catalog{a, b}, Options{BaseLocale: "en", Locales: []string{"de", "fr"}})

	want := []Pair{
		{"A.xcstrings", "x", "de"}, {"A.xcstrings", "x", "fr"},
		{"A.xcstrings", "y", "de"}, {"A.xcstrings", "y", "fr"},
		{"B.xcstrings", "z", "de"}, {"B.xcstrings", "z", "fr"},
	}
	if got := r.Pairs(); !reflect.DeepEqual(got, want) {
		t.Errorf("Pairs() = %v, want %v", got, want)
	}
	if r.Keys() != 3 {
		t.Errorf("Keys() = %d, want 3", r.Keys())
	}
	if got := r.ByLocale(); got["de"] != 3 || got["fr"] != 3 {
		t.Errorf("ByLocale() = %v", got)
	}
}

func TestScan_CompleteCatalogIsEmpty(t *testing.T) {
	c := load(t, "Done.xcstrings", `{"sourceLanguage":"en","strings":{"Hi":{"localizations":{
		"en":{"stringUnit":{"state":"translated","value":"Hi"}},
		"de":{"stringUnit":{"state":"translated","value":"Hallo"}}}}}}`)
	r := Scan([]*xcstrings.Catalog{c}, Options{Locales: []string{"en", "de"}})
	if !r.Empty() || r.Count() != 0 {
		t.Errorf("expected empty report, got %+v", r)
	}
}

func TestScan_OpaqueCountsAsPresent(t *testing.T) {
	c := load(t, "Device.xcstrings", `{"sourceLanguage":"en","strings":{"Tap":{"localizations":{
		"en":{"stringUnit":{"state":"translated","value":"Tap"}},
		"de":{"variations":{"device":{"iphone":{"stringUnit":{"state":"translated","value":"Tippen"}}}}}}}}}`)
	r := Scan([]*xcstrings.Catalog{c}, Options{Locales: []string{"de"}})
	if !r.Empty() {
		t.Errorf("opaque localization should count as present: %v", r.Pairs())
	}
}

func TestScan_StaleFromLock(t *testing.T) {
	c := load(t, "Done.xcstrings", `{"sourceLanguage":"en","strings":{"Hi":{"localizations":{
		"en":{"stringUnit":{"state":"translated","value":"Hi there"}},
		"de":{"stringUnit":{"state":"translated","value":"Hallo"}}}}}}`)

	lf := lockfile.New(t.TempDir())
	opts := Options{Locales: []string{"de"}, Lock: lf}

	if r := Scan([]*xcstrings.Catalog{c}, opts); !r.Empty() {
		t.Error("unrecorded key must not be stale")
	}

	lf.Update("Done.xcstrings", "Hi", xcstrings.PlainValue("Hi").String())
	r := Scan([]*xcstrings.Catalog{c}, opts)
	if r.Count() != 1 || !r.Files[0].Keys[0].Stale {
		t.Fatalf("changed base should be stale: %+v", r)
	}

	lf.Update("Done.xcstrings", "Hi", xcstrings.PlainValue("Hi there").String())
	if r := Scan([]*xcstrings.Catalog{c}, opts); !r.Empty() {
		t.Error("matching checksum should not be stale")
	}
}

func TestBaseLocaleOf(t *testing.T) {
	withSource := load(t, "a", `{"sourceLanguage":"de","strings":{}}`)
	without := load(t, "b", `{"strings":{}}`)

	if got := BaseLocaleOf(withSource, ""); got != "de" {
		t.Errorf("got %q, want de", got)
	}
	if got := BaseLocaleOf(withSource, "en"); got != "en" {
		t.Errorf("configured base should win, got %q", got)
	}
	if got := BaseLocaleOf(without, ""); got != "en" {
		t.Errorf("default base = %q, want en", got)
	}
}

func TestScan_OpaqueBaseIsUnsupported(t *testing.T) {
	c := load(t, "Device.xcstrings", `{"sourceLanguage":"en","strings":{"Tap":{"localizations":{
		"en":{"variations":{"device":{"iphone":{"stringUnit":{"state":"translated","value":"Tap"}}}}}}}}}`)
	r := Scan([]*xcstrings.Catalog{c}, Options{Locales: []string{"de"}})
	if !r.Empty() {
		t.Errorf("opaque base should not produce missing pairs: %v", r.Pairs())
	}
	if r.Unsupported() != 1 || r.Files[0].Unsupported[0] != "Tap" {
		t.Errorf("Unsupported() = %d", r.Unsupported())
	}
}

func TestScan_OpaqueTargetNeverStale(t *testing.T) {
	c := load(t, "L.xcstrings", `{"sourceLanguage":"en","strings":{"Click":{"localizations":{
		"en":{"stringUnit":{"state":"translated","value":"Click here"}},
		"de":{"variations":{"device":{"mac":{"stringUnit":{"state":"translated","value":"Klicken"}}}}}}}}}`)

	lf := lockfile.New(t.TempDir())
	lf.Update("L.xcstrings", "Click", xcstrings.PlainValue("Click").String())

	r := Scan([]*xcstrings.Catalog{c}, Options{Locales: []string{"de", "fr"}, Lock: lf})
	want := []Pair{{File: "L.xcstrings", Key: "Click", Locale: "fr"}}
	if got := r.Pairs(); !reflect.DeepEqual(got, want) {
		t.Errorf("Pairs() = %v, want %v", got, want)
	}
}
