package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/minios-linux/xcfill/batch"
	"github.com/minios-linux/xcfill/lockfile"
	"github.com/minios-linux/xcfill/settings"
	"github.com/minios-linux/xcfill/xcstrings"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// ---------------------------------------------------------------------------
// UI helpers
// ---------------------------------------------------------------------------

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		percent int
		width   int
		want    string
	}{
		{
			name:    "clamps below zero",
			percent: -10,
			width:   4,
			want:    "░░░░   0%",
		},
		{
			name:    "mid range",
			percent: 50,
			width:   4,
			want:    "██░░  50%",
		},
		{
			name:    "clamps above hundred",
			percent: 120,
			width:   4,
			want:    "████ 100%",
		},
	}

	for _, tc := range tests {
		if got := progressBar(tc.percent, tc.width); got != tc.want {
			t.Fatalf("%s: progressBar() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestFlagFromRegion(t *testing.T) {
	if got := flagFromRegion("us"); got != "🇺🇸" {
		t.Fatalf("flagFromRegion(us) = %q, want %q", got, "🇺🇸")
	}
	if got := flagFromRegion("USA"); got != "" {
		t.Fatalf("flagFromRegion(USA) = %q, want empty", got)
	}
	if got := flagFromRegion("1A"); got != "" {
		t.Fatalf("flagFromRegion(1A) = %q, want empty", got)
	}
}

func TestLangHelpers(t *testing.T) {
	if got := langFlag("zz-BR"); got != "🇧🇷" {
		t.Fatalf("langFlag(zz-BR) = %q, want %q", got, "🇧🇷")
	}
	if got := langFlag("de"); got != "🇩🇪" {
		t.Fatalf("langFlag(de) = %q, want %q", got, "🇩🇪")
	}
	if got := langFlag("zh-Hant"); got == "" {
		t.Fatal("langFlag(zh-Hant) is empty, want the registry flag")
	}
	if got := langFlag("invalid"); got != "" {
		t.Fatalf("langFlag(invalid) = %q, want empty", got)
	}

	langs := []string{"en", "pt-BR", "zh-Hant"}
	if got := langColumnWidth(langs); got != len("zh-Hant") {
		t.Fatalf("langColumnWidth() = %d, want %d", got, len("zh-Hant"))
	}

	cell := langCell("zz-BR", 6)
	if !strings.Contains(cell, "🇧🇷") || !strings.Contains(cell, "zz-BR") {
		t.Fatalf("langCell() = %q, want flag and language code", cell)
	}
}

func TestFilterOutLang(t *testing.T) {
	langs := []string{"en", "fr", "en", "de"}
	want := []string{"fr", "de"}

	if got := filterOutLang(langs, "en"); !reflect.DeepEqual(got, want) {
		t.Fatalf("filterOutLang() = %#v, want %#v", got, want)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(filePath, []byte("ok"), 0644); err != nil {
		t.Fatalf("os.WriteFile() error: %v", err)
	}

	if !fileExists(filePath) {
		t.Fatalf("fileExists(file) = false, want true")
	}
	if fileExists(dir) {
		t.Fatalf("fileExists(directory) = true, want false")
	}
	if fileExists(filepath.Join(dir, "missing.txt")) {
		t.Fatalf("fileExists(missing) = true, want false")
	}
	if !dirExists(dir) || dirExists(filePath) {
		t.Fatal("dirExists() mismatch")
	}
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

const appCatalog = `{
  "sourceLanguage" : "en",
  "strings" : {
    "Hello" : {
      "localizations" : {
        "en" : { "stringUnit" : { "state" : "translated", "value" : "Hello" } },
        "de" : { "stringUnit" : { "state" : "translated", "value" : "Hallo" } }
      }
    },
    "%lld songs" : {
      "localizations" : {
        "en" : { "variations" : { "plural" : {
          "one" : { "stringUnit" : { "state" : "translated", "value" : "%lld song" } },
          "other" : { "stringUnit" : { "state" : "translated", "value" : "%lld songs" } }
        } } }
      }
    },
    "Settings" : { },
    "v1.0" : { "shouldTranslate" : false }
  },
  "version" : "1.0"
}
`

// project lays out a root with a Resources folder holding one catalog.
func project(t *testing.T) (root, folder string) {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("XCFILL_PROVIDER", "")
	t.Setenv("XCFILL_API_KEY", "")

	root = t.TempDir()
	folder = filepath.Join(root, "Resources")
	if err := os.MkdirAll(folder, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "Localizable.xcstrings"), []byte(appCatalog), 0644); err != nil {
		t.Fatal(err)
	}
	return root, folder
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func loadCatalog(t *testing.T, folder string) *xcstrings.Catalog {
	t.Helper()
	c, err := xcstrings.ParseFile(filepath.Join(folder, "Localizable.xcstrings"))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func stringValue(t *testing.T, c *xcstrings.Catalog, key, locale string) string {
	t.Helper()
	e, ok := c.Entry(key)
	if !ok {
		t.Fatalf("no key %q", key)
	}
	u, ok := e.Unit(locale)
	if !ok {
		t.Fatalf("%q has no %s unit", key, locale)
	}
	su, ok := u.(*xcstrings.StringUnit)
	if !ok {
		t.Fatalf("%q [%s] is %T", key, locale, u)
	}
	return su.Value
}

func TestScanCommandWritesTasks(t *testing.T) {
	root, folder := project(t)

	if _, err := execute(t, "scan", "--root", root, "-f", folder, "-l", "de,fr"); err != nil {
		t.Fatalf("scan: %v", err)
	}

	tasks, err := batch.LoadTasks(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d task files, want 1", len(tasks))
	}
	hello, ok := tasks[0].Entry(batch.ID("Localizable.xcstrings", "Hello"))
	if !ok {
		t.Fatal("Hello missing from the task")
	}
	if !reflect.DeepEqual(hello.Locales, []string{"fr"}) {
		t.Errorf("Hello locales = %v, want [fr]", hello.Locales)
	}
	if _, ok := tasks[0].Entry(batch.ID("Localizable.xcstrings", "v1.0")); ok {
		t.Error("non-translatable key was scheduled")
	}
	// 2 locales for "%lld songs" and "Settings", 1 for "Hello".
	if got := tasks[0].Slots(); got != 5 {
		t.Errorf("Slots() = %d, want 5", got)
	}
}

func TestScanTasksDirFlag(t *testing.T) {
	root, folder := project(t)
	dir := filepath.Join(root, "tasks")

	if _, err := execute(t, "scan", "--root", root, "-f", folder, "-l", "de", "--tasks-dir", dir); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !fileExists(filepath.Join(dir, batch.FileName(1))) {
		t.Error("task file not written to --tasks-dir")
	}
}

func TestRunWithMockProviderConverges(t *testing.T) {
	root, folder := project(t)

	if _, err := execute(t, "run", "--root", root, "-f", folder, "-l", "de,fr", "--provider", "mock"); err != nil {
		t.Fatalf("run: %v", err)
	}

	c := loadCatalog(t, folder)
	if got := stringValue(t, c, "Hello", "de"); got != "Hallo" {
		t.Errorf("existing translation changed: %q", got)
	}
	if got := stringValue(t, c, "Hello", "fr"); got != "[fr] Hello" {
		t.Errorf("Hello fr = %q", got)
	}
	if got := stringValue(t, c, "Settings", "de"); got != "[de] Settings" {
		t.Errorf("Settings de = %q", got)
	}
	e, _ := c.Entry("%lld songs")
	u, _ := e.Unit("fr")
	plural, ok := u.(*xcstrings.PluralUnit)
	if !ok {
		t.Fatalf("%%lld songs fr is %T, want plural", u)
	}
	if one, _ := plural.Form("one"); one == nil || one.Value != "[fr] %lld song" {
		t.Errorf("one form = %+v", one)
	}

	paths, err := batch.List(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 0 {
		t.Errorf("task files left behind: %v", paths)
	}

	// A second run finds nothing to do.
	if _, err := execute(t, "run", "--root", root, "-f", folder, "-l", "de,fr", "--provider", "mock"); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	root, folder := project(t)

	if _, err := execute(t, "run", "--root", root, "-f", folder, "-l", "fr", "--provider", "mock", "--dry-run"); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(folder, "Localizable.xcstrings"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != appCatalog {
		t.Error("dry run modified the catalog")
	}
	if paths, _ := batch.List(root); len(paths) != 0 {
		t.Errorf("dry run wrote task files: %v", paths)
	}
}

func TestTranslateThenApply(t *testing.T) {
	root, folder := project(t)
	common := []string{"--root", root, "-f", folder, "-l", "ja"}

	if _, err := execute(t, append([]string{"scan"}, common...)...); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if _, err := execute(t, append([]string{"translate", "--provider", "mock"}, common...)...); err != nil {
		t.Fatalf("translate: %v", err)
	}

	tasks, err := batch.LoadTasks(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Pending() != 0 {
		t.Fatalf("task not filled: %d tasks", len(tasks))
	}

	if _, err := execute(t, append([]string{"apply", "--clean"}, common...)...); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := stringValue(t, loadCatalog(t, folder), "Hello", "ja"); got != "[ja] Hello" {
		t.Errorf("Hello ja = %q", got)
	}
	if paths, _ := batch.List(root); len(paths) != 0 {
		t.Errorf("--clean left %v", paths)
	}
}

func TestTranslateEnvironmentSelectsProvider(t *testing.T) {
	root, folder := project(t)
	common := []string{"--root", root, "-f", folder, "-l", "ko"}

	if _, err := execute(t, append([]string{"scan"}, common...)...); err != nil {
		t.Fatalf("scan: %v", err)
	}
	t.Setenv("XCFILL_PROVIDER", "mock")
	if _, err := execute(t, append([]string{"translate"}, common...)...); err != nil {
		t.Fatalf("translate: %v", err)
	}
	tasks, err := batch.LoadTasks(root)
	if err != nil {
		t.Fatal(err)
	}
	if tasks[0].Pending() != 0 {
		t.Error("XCFILL_PROVIDER=mock did not fill the task")
	}
}

func TestTranslateWithoutKeyFails(t *testing.T) {
	root, folder := project(t)
	t.Setenv("GROQ_API_KEY", "")
	common := []string{"--root", root, "-f", folder, "-l", "ko"}

	if _, err := execute(t, append([]string{"scan"}, common...)...); err != nil {
		t.Fatalf("scan: %v", err)
	}
	_, err := execute(t, append([]string{"translate", "--provider", "groq"}, common...)...)
	if err == nil || !strings.Contains(err.Error(), "xcfill auth set groq") {
		t.Fatalf("err = %v, want a hint to store a key", err)
	}
}

func TestUnknownProvider(t *testing.T) {
	root, folder := project(t)
	common := []string{"--root", root, "-f", folder, "-l", "ko"}

	if _, err := execute(t, append([]string{"scan"}, common...)...); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if _, err := execute(t, append([]string{"translate", "--provider", "copilot"}, common...)...); err == nil {
		t.Fatal("unknown provider accepted")
	}
}

func TestRegionalCommand(t *testing.T) {
	root, folder := project(t)

	if _, err := execute(t, "regional", "--root", root, "-f", folder); err != nil {
		t.Fatalf("regional: %v", err)
	}
	if got := stringValue(t, loadCatalog(t, folder), "Hello", "en-GB"); got != "Hello" {
		t.Errorf("Hello en-GB = %q", got)
	}
}

func TestLockCommand(t *testing.T) {
	root, folder := project(t)

	if _, err := execute(t, "lock", "--root", root, "-f", folder, "-l", "de"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if useLock {
		t.Error("lock command left --lock switched on")
	}
	lf, err := lockfile.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := lf.Recorded("Localizable.xcstrings", "Hello"); !ok {
		t.Error("complete key Hello not recorded")
	}
	if _, ok := lf.Recorded("Localizable.xcstrings", "Settings"); ok {
		t.Error("incomplete key Settings recorded")
	}
}

func TestStatusCommand(t *testing.T) {
	root, folder := project(t)

	out, err := execute(t, "status", "--root", root, "-f", folder, "-l", "de,fr")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Localizable.xcstrings", "de", "fr", "1/3"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Unsupported") {
		t.Errorf("status reports unsupported strings:\n%s", out)
	}
}

func TestFolderErrors(t *testing.T) {
	root, _ := project(t)

	if _, err := execute(t, "scan", "--root", root); err == nil || !strings.Contains(err.Error(), "--folder") {
		t.Errorf("missing --folder: %v", err)
	}
	if _, err := execute(t, "scan", "--root", root, "-f", filepath.Join(root, "nope")); err == nil {
		t.Error("nonexistent folder accepted")
	}
	if _, err := execute(t, "scan", "--root", root, "-f", root); err == nil {
		t.Error("folder without catalogs accepted")
	}
}

func TestMalformedCatalogFails(t *testing.T) {
	root, folder := project(t)
	if err := os.WriteFile(filepath.Join(folder, "Broken.xcstrings"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "scan", "--root", root, "-f", folder, "-l", "de"); err == nil {
		t.Fatal("malformed catalog accepted")
	}
}

func TestInvalidLanguages(t *testing.T) {
	root, folder := project(t)
	if _, err := execute(t, "scan", "--root", root, "-f", folder, "-l", "de,??"); err == nil {
		t.Fatal("invalid locale accepted")
	}
	if _, err := execute(t, "scan", "--root", root, "-f", folder, "-l", "en"); err == nil {
		t.Fatal("base-only language list accepted")
	}
}

func TestLanguagesAuto(t *testing.T) {
	root, folder := project(t)

	if _, err := execute(t, "scan", "--root", root, "-f", folder, "-l", "auto"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	tasks, err := batch.LoadTasks(root)
	if err != nil {
		t.Fatal(err)
	}
	// Only de is localized already; Hello has it, the others do not.
	if got := tasks[0].Slots(); got != 2 {
		t.Errorf("Slots() = %d, want 2", got)
	}
}

func TestAuthSetListRemove(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	if _, err := execute(t, "auth", "set", "groq", "--key", "gsk_1234567890abcdef"); err != nil {
		t.Fatalf("auth set: %v", err)
	}
	out, err := execute(t, "auth", "list")
	if err != nil {
		t.Fatalf("auth list: %v", err)
	}
	if !strings.Contains(out, "groq") || strings.Contains(out, "gsk_1234567890abcdef") {
		t.Errorf("auth list output:\n%s", out)
	}

	if _, err := execute(t, "auth", "remove", "groq"); err != nil {
		t.Fatalf("auth remove: %v", err)
	}
	if _, err := execute(t, "auth", "set", "nope", "--key", "k"); err == nil {
		t.Error("unknown provider accepted")
	}
}

func TestAuthSetReadsKeyFromStdin(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader("AIzaSecretKey123456\n"))
	cmd.SetArgs([]string{"auth", "set", "gemini"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("auth set: %v", err)
	}

	if got := settings.GetAPIKey("gemini"); got != "AIzaSecretKey123456" {
		t.Errorf("stored key = %q", got)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "xcfill version dev") {
		t.Errorf("version output = %q", out)
	}
	if !strings.Contains(out, "available: en, de, ru") {
		t.Errorf("version output lacks ui languages: %q", out)
	}
}

func TestScanMixedSourceLanguages(t *testing.T) {
	root, folder := project(t)
	german := `{"sourceLanguage":"de","strings":{"Hallo":{"localizations":{
		"de":{"stringUnit":{"state":"translated","value":"Hallo"}}}}},"version":"1.0"}`
	if err := os.WriteFile(filepath.Join(folder, "German.xcstrings"), []byte(german), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "scan", "--root", root, "-f", folder, "-l", "en,de"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	tasks, err := batch.LoadTasks(root)
	if err != nil {
		t.Fatal(err)
	}
	var hallo, prefs *batch.Entry
	for _, task := range tasks {
		if e, ok := task.Entry(batch.ID("German.xcstrings", "Hallo")); ok {
			hallo = e
		}
		if e, ok := task.Entry(batch.ID("Localizable.xcstrings", "Settings")); ok {
			prefs = e
		}
	}
	if hallo == nil || !reflect.DeepEqual(hallo.Locales, []string{"en"}) {
		t.Errorf("German.xcstrings:Hallo = %+v, want locales [en]", hallo)
	}
	if prefs == nil || !reflect.DeepEqual(prefs.Locales, []string{"de"}) {
		t.Errorf("Localizable.xcstrings:Settings = %+v, want locales [de]", prefs)
	}
}
