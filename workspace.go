package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/minios-linux/xcfill/config"
	"github.com/minios-linux/xcfill/lockfile"
	"github.com/minios-linux/xcfill/scan"
	"github.com/minios-linux/xcfill/xcstrings"
)

// workspace is what every stage runs on: the resolved configuration, the
// loaded catalogs and, when tracking is on, the lock file.
type workspace struct {
	cfg      config.Config
	folder   string
	catalogs []*xcstrings.Catalog
	lock     *lockfile.LockFile
}

// openWorkspace resolves the global flags over .xcfill.yaml and loads the
// catalog folder.
func openWorkspace() (*workspace, error) {
	if folder == "" {
		return nil, errors.New("--folder is required")
	}
	if !dirExists(folder) {
		return nil, fmt.Errorf("catalog folder %s does not exist", folder)
	}

	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}

	catalogs, err := xcstrings.LoadDir(folder)
	if err != nil {
		return nil, err
	}
	if len(catalogs) == 0 {
		return nil, fmt.Errorf("no %s files in %s", xcstrings.Ext, folder)
	}

	if err := applyFlagOverrides(&cfg, catalogs); err != nil {
		return nil, err
	}

	ws := &workspace{cfg: cfg, folder: folder, catalogs: catalogs}
	if cfg.UseLock {
		lf, err := lockfile.Load(cfg.Root)
		if err != nil {
			return nil, err
		}
		ws.lock = lf
	}
	return ws, nil
}

func applyFlagOverrides(cfg *config.Config, catalogs []*xcstrings.Catalog) error {
	switch strings.TrimSpace(languages) {
	case "":
	case "auto":
		detected := config.DetectLanguages(catalogs)
		if len(detected) == 0 {
			return errors.New("--languages auto: the catalogs have no localizations yet")
		}
		cfg.Languages = detected
	default:
		langs, err := config.ParseLanguages(languages)
		if err != nil {
			return fmt.Errorf("--languages: %w", err)
		}
		cfg.Languages = langs
	}

	if baseLocale != "" {
		if err := config.ValidateLocale(baseLocale); err != nil {
			return fmt.Errorf("--base: %w", err)
		}
		cfg.SourceLang = baseLocale
	}
	if tasksDir != "" {
		abs, err := filepath.Abs(tasksDir)
		if err != nil {
			return err
		}
		cfg.TasksDir = abs
	}
	if strictMode {
		cfg.Strict = true
	}
	if useLock {
		cfg.UseLock = true
	}

	// Without a global base each catalog skips its own sourceLanguage.
	if cfg.SourceLang != "" {
		cfg.Languages = filterOutLang(cfg.Languages, cfg.SourceLang)
	}
	if !hasTarget(cfg.Languages, cfg.SourceLang, catalogs) {
		return errors.New("no target languages left after removing the base language")
	}
	return nil
}

// hasTarget reports whether some catalog needs a language besides its base.
func hasTarget(langs []string, sourceLang string, catalogs []*xcstrings.Catalog) bool {
	for _, c := range catalogs {
		base := scan.BaseLocaleOf(c, sourceLang)
		for _, l := range langs {
			if l != base {
				return true
			}
		}
	}
	return false
}

// scan runs the scanner with the workspace settings.
func (ws *workspace) scan() *scan.Report {
	return scan.Scan(ws.catalogs, scan.Options{
		BaseLocale: ws.cfg.SourceLang,
		Locales:    ws.cfg.Languages,
		Lock:       ws.lock,
	})
}

// reload re-reads the catalogs from disk, e.g. after a merge.
func (ws *workspace) reload() error {
	catalogs, err := xcstrings.LoadDir(ws.folder)
	if err != nil {
		return err
	}
	ws.catalogs = catalogs
	return nil
}
