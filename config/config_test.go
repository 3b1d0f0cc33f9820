package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/minios-linux/xcfill/batch"
	"github.com/minios-linux/xcfill/xcstrings"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, XcfillFileName), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return dir
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.HasFile {
		t.Error("HasFile should be false")
	}
	if !reflect.DeepEqual(c.Languages, DefaultLanguages) {
		t.Errorf("Languages = %v", c.Languages)
	}
	if c.MaxTokens != batch.DefaultMaxTokens {
		t.Errorf("MaxTokens = %d", c.MaxTokens)
	}
	if c.Instructions != batch.DefaultInstructions {
		t.Errorf("Instructions = %q", c.Instructions)
	}
	if len(c.Regional) != 4 || c.Regional[0].Base != "en" {
		t.Errorf("Regional = %+v", c.Regional)
	}
	if c.TasksDir != c.Root {
		t.Errorf("TasksDir = %q, want root %q", c.TasksDir, c.Root)
	}
}

func TestLoadFullFile(t *testing.T) {
	dir := writeConfig(t, `
source_lang: en
languages: [de, fr, de, zh-Hans, es-419]
max_tokens: 3000
strict: true
tasks_dir: build/tasks
lock: true
instructions: Translate carefully.
regional_variants:
  - base: de
    variants:
      - {code: de-AT, name: German (Austria)}
      - {code: de-CH}
provider:
  id: openai
  model: gpt-4o-mini
  base_url: http://localhost:11434/v1
  timeout: 90s
  concurrency: 4
`)
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !c.HasFile || c.SourceLang != "en" || !c.Strict || !c.UseLock {
		t.Errorf("flags not loaded: %+v", c)
	}
	if !reflect.DeepEqual(c.Languages, []string{"de", "fr", "zh-Hans", "es-419"}) {
		t.Errorf("Languages = %v (duplicates should be removed)", c.Languages)
	}
	if c.MaxTokens != 3000 {
		t.Errorf("MaxTokens = %d", c.MaxTokens)
	}
	if c.TasksDir != filepath.Join(c.Root, "build", "tasks") {
		t.Errorf("TasksDir = %q", c.TasksDir)
	}
	if c.Instructions != "Translate carefully." {
		t.Errorf("Instructions = %q", c.Instructions)
	}
	if len(c.Regional) != 1 || c.Regional[0].Variants[1].Code != "de-CH" || c.Regional[0].Variants[0].Name != "German (Austria)" {
		t.Errorf("Regional = %+v", c.Regional)
	}
	if c.Provider.ID != "openai" || c.Provider.Concurrency != 4 || c.Provider.TimeoutDuration() != 90*time.Second {
		t.Errorf("Provider = %+v", c.Provider)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "languages: [de\n", "parsing"},
		{"bad language", "languages: [de, 'not a locale']\n", "languages"},
		{"negative tokens", "max_tokens: -5\n", "max_tokens"},
		{"rule without base", "regional_variants:\n  - variants: [{code: en-GB}]\n", "no base"},
		{"rule without variants", "regional_variants:\n  - base: en\n", "no variants"},
		{"bad variant", "regional_variants:\n  - base: en\n    variants: [{code: '??'}]\n", "regional_variants"},
		{"bad timeout", "provider:\n  timeout: soon\n", "timeout"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidateLocale(t *testing.T) {
	for _, code := range []string{"en", "de", "pt-BR", "zh-Hans", "es-419", "sr-Latn"} {
		if err := ValidateLocale(code); err != nil {
			t.Errorf("ValidateLocale(%q) = %v", code, err)
		}
	}
	for _, code := range []string{"", "  ", "not a locale", "??"} {
		if err := ValidateLocale(code); err == nil {
			t.Errorf("ValidateLocale(%q) should fail", code)
		}
	}
}

func TestParseLanguages(t *testing.T) {
	got, err := ParseLanguages("ar, de,es,,fr,de")
	if err != nil {
		t.Fatalf("ParseLanguages: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"ar", "de", "es", "fr"}) {
		t.Errorf("got %v", got)
	}
	if _, err := ParseLanguages(" , "); err == nil {
		t.Error("empty list should fail")
	}
	if _, err := ParseLanguages("de,??"); err == nil {
		t.Error("invalid code should fail")
	}
}

func TestDetectLanguages(t *testing.T) {
	a, err := xcstrings.Parse([]byte(`{"sourceLanguage":"en","strings":{"x":{"localizations":{
		"en":{"stringUnit":{"state":"translated","value":"x"}},
		"ru":{"stringUnit":{"state":"translated","value":"x"}}}}}}`))
	if err != nil {
		t.Fatal(err)
	}
	b, err := xcstrings.Parse([]byte(`{"sourceLanguage":"en","strings":{"y":{"localizations":{
		"de":{"stringUnit":{"state":"translated","value":"y"}},
		"ru":{"stringUnit":{"state":"translated","value":"y"}}}}}}`))
	if err != nil {
		t.Fatal(err)
	}

	got := DetectLanguages([]*xcstrings.Catalog{a, b})
	if !reflect.DeepEqual(got, []string{"de", "ru"}) {
		t.Errorf("DetectLanguages() = %v", got)
	}
}
