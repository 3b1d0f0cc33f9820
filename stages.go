package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minios-linux/xcfill/batch"
	"github.com/minios-linux/xcfill/i18n"
	"github.com/minios-linux/xcfill/lockfile"
	"github.com/minios-linux/xcfill/merge"
	"github.com/minios-linux/xcfill/regional"
	"github.com/minios-linux/xcfill/scan"
	"github.com/minios-linux/xcfill/xcstrings"
)

// ---------------------------------------------------------------------------
// status
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: i18n.T("Show per-language translation completeness"),
		Long: `Show the catalogs of --folder and how complete every target language is.

Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			showStatus(cmd, ws)
			return nil
		},
	}
}

func showStatus(cmd *cobra.Command, ws *workspace) {
	out := cmd.OutOrStdout()

	printHeading(out, i18n.T("Catalogs"))
	total := 0
	translated := make(map[string]int, len(ws.cfg.Languages))
	for _, c := range ws.catalogs {
		n, per := c.Stats(ws.cfg.Languages)
		total += n
		for l, k := range per {
			translated[l] += k
		}
		fmt.Fprintf(out, "  %-40s %5d strings  (base %s)\n", c.Name, n, scan.BaseLocaleOf(c, ws.cfg.SourceLang))
	}
	if ws.lock != nil {
		fmt.Fprintf(out, "  %s\n", ws.lock.Summary())
	}

	report := ws.scan()
	missing := report.ByLocale()

	printHeading(out, i18n.T("Translation Statistics"))
	width := langColumnWidth(ws.cfg.Languages)
	for _, lang := range ws.cfg.Languages {
		percent := 100
		if total > 0 {
			percent = translated[lang] * 100 / total
		}
		fmt.Fprintf(out, "%s %5d/%-5d %s", langCell(lang, width), translated[lang], total, progressBar(percent, 20))
		if m := missing[lang]; m > 0 {
			fmt.Fprintf(out, "  %d missing", m)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, strings.Repeat("─", 60))
	fmt.Fprintf(out, "Total strings: %d, missing translations: %d\n", total, report.Count())
	if n := report.Unsupported(); n > 0 {
		fmt.Fprintf(out, "Unsupported strings (device variations, substitutions): %d\n", n)
	}
	fmt.Fprintln(out)
}

// ---------------------------------------------------------------------------
// scan
// ---------------------------------------------------------------------------

func newScanCmd() *cobra.Command {
	var maxTokens int

	cmd := &cobra.Command{
		Use:   "scan",
		Short: i18n.T("Find missing translations and write LLM task files"),
		Long: `Scan the catalogs of --folder for missing translations and split them into
task files (llm_translation_task_N.json) that fit the token budget.

Existing task files in the tasks directory are replaced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			if maxTokens > 0 {
				ws.cfg.MaxTokens = maxTokens
			}
			_, err = runScan(ws, true)
			return err
		},
	}

	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, i18n.T("Token budget per task file (default: max_tokens from config, else 6000)"))
	return cmd
}

// runScan partitions the missing translations into tasks and, with write,
// replaces the task files with them. A complete folder yields no tasks and
// its stale task files are removed.
func runScan(ws *workspace, write bool) ([]*batch.Task, error) {
	report := ws.scan()
	warnUnsupported(report)

	if report.Empty() {
		if write && dirExists(ws.cfg.TasksDir) {
			if _, err := batch.RemoveTasks(ws.cfg.TasksDir); err != nil {
				return nil, err
			}
		}
		logSuccess(i18n.T("All catalogs are complete for %d languages"), len(ws.cfg.Languages))
		return nil, nil
	}

	byLocale := report.ByLocale()
	logInfo(i18n.T("Found %d missing translations in %d strings"), report.Count(), report.Keys())
	for _, lang := range ws.cfg.Languages {
		if n := byLocale[lang]; n > 0 {
			logInfo("  %-8s %d", lang, n)
		}
	}

	tasks := batch.Partition(report, batch.Options{
		MaxTokens:    ws.cfg.MaxTokens,
		Instructions: ws.cfg.Instructions,
		Languages:    len(ws.cfg.Languages),
	})
	if !write {
		return tasks, nil
	}
	paths, err := batch.WriteTasks(ws.cfg.TasksDir, tasks)
	if err != nil {
		return nil, err
	}
	logSuccess(i18n.N("Wrote %d task file to %s", "Wrote %d task files to %s", len(paths)), len(paths), ws.cfg.TasksDir)
	return tasks, nil
}

func warnUnsupported(report *scan.Report) {
	for _, f := range report.Files {
		for _, key := range f.Unsupported {
			logWarning(i18n.T("%s: %q has an unsupported structure and is skipped"), f.Name, key)
		}
	}
}

// ---------------------------------------------------------------------------
// apply
// ---------------------------------------------------------------------------

func newApplyCmd() *cobra.Command {
	var (
		clean  bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: i18n.T("Merge filled task files back into the catalogs"),
		Long: `Merge the translations of every task file into the catalogs of --folder.

Blank values are skipped, so a partially filled task can be applied and the
rest translated later. Values whose shape does not match the base
localization are reported and left out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			return runApply(ws, clean, dryRun)
		},
	}

	cmd.Flags().BoolVar(&clean, "clean", false, i18n.T("Remove the task files after a successful merge"))
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, i18n.T("Show what would be merged without writing"))
	return cmd
}

func runApply(ws *workspace, clean, dryRun bool) error {
	if !dirExists(ws.cfg.TasksDir) {
		logInfo(i18n.T("No task files in %s"), ws.cfg.TasksDir)
		return nil
	}
	tasks, err := batch.LoadTasks(ws.cfg.TasksDir)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		logInfo(i18n.T("No task files in %s"), ws.cfg.TasksDir)
		return nil
	}
	return applyTasks(ws, tasks, clean, dryRun)
}

// applyTasks merges tasks into the workspace catalogs.
func applyTasks(ws *workspace, tasks []*batch.Task, clean, dryRun bool) error {
	report, err := merge.Apply(ws.catalogs, tasks, merge.Options{
		BaseLocale: ws.cfg.SourceLang,
		Strict:     ws.cfg.Strict,
		Lock:       ws.lock,
		DryRun:     dryRun,
	})
	if err != nil {
		return err
	}

	for _, issue := range report.Issues {
		logWarning("%v", issue)
	}
	if dryRun {
		logInfo(i18n.T("Dry run: %d translations would be merged, %d blank values skipped"), report.Applied, report.Skipped)
		return nil
	}
	logSuccess(i18n.T("Merged %d translations into %d catalogs (%d blank values skipped)"),
		report.Applied, len(report.Saved), report.Skipped)

	if clean {
		n, err := batch.RemoveTasks(ws.cfg.TasksDir)
		if err != nil {
			return err
		}
		logInfo(i18n.N("Removed %d task file", "Removed %d task files", n), n)
	}
	return nil
}

// ---------------------------------------------------------------------------
// regional
// ---------------------------------------------------------------------------

func newRegionalCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "regional",
		Short: i18n.T("Copy base languages into their regional variants"),
		Long: `Fill regional variants from their base language, e.g. en into en-AU,
en-GB and en-IN, es into es-419, pt into pt-BR and pt-PT, fr into fr-CA.

The rule table comes from regional_variants in .xcfill.yaml, or the built-in
table when none is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			return runRegional(ws, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, i18n.T("Show what would be derived without writing"))
	return cmd
}

func runRegional(ws *workspace, dryRun bool) error {
	report, err := regional.Apply(ws.catalogs, regional.Options{Rules: ws.cfg.Regional, DryRun: dryRun})
	if err != nil {
		return err
	}
	for _, c := range report.Catalogs {
		if c.Skipped > 0 {
			logWarning(i18n.T("%s: %d base strings with an unsupported structure were not copied"), c.Name, c.Skipped)
		}
		if c.Changed > 0 {
			logInfo("%s: %d", c.Name, c.Changed)
		}
	}
	if dryRun {
		logInfo(i18n.T("Dry run: %d regional values would be written"), report.Written())
		return nil
	}
	logSuccess(i18n.T("Regional variants: %d values written, %d catalogs saved"), report.Written(), len(report.Saved))
	return nil
}

// ---------------------------------------------------------------------------
// lock
// ---------------------------------------------------------------------------

func newLockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: i18n.T("Record base checksums of the complete strings"),
		Long: `Write xcfill.lock with the checksum of every string's base value whose
translations are complete. When a base value changes later, scan reports its
translations missing again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			return runLock(ws)
		},
	}
}

func runLock(ws *workspace) error {
	if ws.lock == nil {
		lf, err := lockfile.Load(ws.cfg.Root)
		if err != nil {
			return err
		}
		ws.lock = lf
	}

	// Strings with missing locales keep whatever checksum they had.
	pending := make(map[string]bool)
	for _, p := range scan.Scan(ws.catalogs, scan.Options{
		BaseLocale: ws.cfg.SourceLang,
		Locales:    ws.cfg.Languages,
	}).Pairs() {
		pending[batch.ID(p.File, p.Key)] = true
	}

	recorded := 0
	for _, c := range ws.catalogs {
		base := scan.BaseLocaleOf(c, ws.cfg.SourceLang)
		keys := c.Keys()
		ws.lock.Clean(c.Name, keys)
		for _, key := range keys {
			e, _ := c.Entry(key)
			if !e.ShouldTranslate() || pending[batch.ID(c.Name, key)] {
				continue
			}
			ws.lock.Update(c.Name, key, xcstrings.BaseValue(key, e, base).String())
			recorded++
		}
	}
	if err := ws.lock.Save(); err != nil {
		return err
	}
	logSuccess(i18n.T("Recorded %d checksums in %s"), recorded, ws.lock.Path())
	return nil
}

// ---------------------------------------------------------------------------
// run
// ---------------------------------------------------------------------------

func newRunCmd() *cobra.Command {
	var (
		a            providerArgs
		maxTokens    int
		keepTasks    bool
		withRegional bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: i18n.T("Scan, translate and merge in one go"),
		Long: `Run the whole pipeline on --folder:

  1. scan       write task files for the missing translations
  2. translate  fill them through the provider
  3. apply      merge them back and remove the task files
  4. regional   copy base languages into regional variants (--regional)

Finally the folder is scanned again and what is still missing is reported.`,
		Example: `  xcfill run -f App/Resources --provider gemini
  xcfill run -f App/Resources --provider ollama --model qwen2.5 --parallel
  xcfill run -f App/Resources --provider mock --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			if maxTokens > 0 {
				ws.cfg.MaxTokens = maxTokens
			}
			v, err := a.bind(cmd)
			if err != nil {
				return err
			}

			tasks, err := runScan(ws, !a.dryRun)
			if err != nil {
				return err
			}
			if len(tasks) > 0 {
				if err := runTranslation(cmd, ws, tasks, &a, v); err != nil {
					return err
				}
				if err := applyTasks(ws, tasks, !keepTasks && !a.dryRun, a.dryRun); err != nil {
					return err
				}
			}

			if withRegional {
				if err := runRegional(ws, a.dryRun); err != nil {
					return err
				}
			}
			if a.dryRun {
				return nil
			}
			return reportRemaining(ws)
		},
	}

	a.addFlags(cmd)
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, i18n.T("Token budget per task file (default: max_tokens from config, else 6000)"))
	cmd.Flags().BoolVar(&keepTasks, "keep-tasks", false, i18n.T("Keep the task files after merging"))
	cmd.Flags().BoolVar(&withRegional, "regional", false, i18n.T("Derive regional variants after merging"))
	return cmd
}

// reportRemaining re-reads the catalogs and logs what is still missing.
func reportRemaining(ws *workspace) error {
	if err := ws.reload(); err != nil {
		return err
	}
	report := ws.scan()
	if report.Empty() {
		logSuccess(i18n.T("All catalogs are complete for %d languages"), len(ws.cfg.Languages))
		return nil
	}

	byLocale := report.ByLocale()
	langs := make([]string, 0, len(byLocale))
	for l := range byLocale {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	parts := make([]string, len(langs))
	for i, l := range langs {
		parts[i] = fmt.Sprintf("%s: %d", l, byLocale[l])
	}
	logWarning(i18n.T("Still missing %d translations (%s); run again to retry"), report.Count(), strings.Join(parts, ", "))
	if ws.cfg.Strict {
		return fmt.Errorf("%d translations still missing", report.Count())
	}
	return nil
}

