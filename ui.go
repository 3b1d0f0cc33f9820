package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rivo/uniseg"
	"github.com/schollz/progressbar/v3"

	"github.com/minios-linux/xcfill/langmeta"
)

// interactive is false when stderr is not a terminal; progress bars are
// skipped then.
var interactive = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

var (
	barRed    = color.New(color.FgRed).SprintFunc()
	barYellow = color.New(color.FgYellow).SprintFunc()
	barGreen  = color.New(color.FgGreen).SprintFunc()
)

// progressBar renders a fixed-width completion bar followed by the
// percentage, colored red below 50%, yellow below 100% and green when done.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	paint := barGreen
	switch {
	case percent < 50:
		paint = barRed
	case percent < 100:
		paint = barYellow
	}
	return fmt.Sprintf("%s %3d%%", paint(bar), percent)
}

// flagFromRegion turns a two-letter region code into its flag emoji.
func flagFromRegion(region string) string {
	if len(region) != 2 {
		return ""
	}
	region = strings.ToUpper(region)
	var b strings.Builder
	for _, r := range region {
		if r < 'A' || r > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + (r - 'A'))
	}
	return b.String()
}

// langFlag returns the flag of a locale: its region subtag when it has one,
// else the registry flag.
func langFlag(lang string) string {
	parts := strings.FieldsFunc(lang, func(r rune) bool { return r == '-' || r == '_' })
	for _, p := range parts[min(1, len(parts)):] {
		if f := flagFromRegion(p); f != "" {
			return f
		}
	}
	return langmeta.Resolve(lang).Flag
}

// langColumnWidth is the width of the widest locale code.
func langColumnWidth(langs []string) int {
	w := 0
	for _, l := range langs {
		w = max(w, len(l))
	}
	return w
}

// langCell renders "<flag> <code>" padded to width display columns.
func langCell(lang string, width int) string {
	flag := langFlag(lang)
	if flag == "" {
		flag = "  "
	}
	cell := flag + " " + lang
	pad := width + 3 - uniseg.StringWidth(cell)
	if pad < 0 {
		pad = 0
	}
	return cell + strings.Repeat(" ", pad)
}

// filterOutLang drops every occurrence of lang.
func filterOutLang(langs []string, lang string) []string {
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		if l != lang {
			out = append(out, l)
		}
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func printHeading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", heading(title))
	fmt.Fprintln(w, strings.Repeat("─", 60))
}

// newBatchBar returns a progress bar over total batches, or nil when there
// is nothing to show.
func newBatchBar(total int, verbose bool) *progressbar.ProgressBar {
	if total == 0 || verbose || !interactive {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(!color.NoColor),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("[cyan]Translating[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}
