package translate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/minios-linux/xcfill/batch"
	"github.com/minios-linux/xcfill/langmeta"
)

// DefaultSystemPrompt is the translation guidance sent with every batch.
const DefaultSystemPrompt = `You are a professional translator specializing in software and product localization. You are translating UI strings for an Apple platform application (iOS, iPadOS, macOS) stored in an Xcode string catalog.

CONTEXT AWARENESS:
- The audience is users of the application
- Tone: professional yet approachable, clear and concise
- Follow Apple's platform terminology and Human Interface Guidelines conventions for each language
- Adapt to the application's specific domain based on the source text context

IMPORTANT TRANSLATION PRINCIPLES:
- Translate for NATURALNESS and FLUENCY in the target language, not word-for-word
- Use idiomatic expressions natural to each target language, not literal translations
- Keep UI labels short: buttons and menu items should stay about as long as the source
- Maintain the original tone and intent

TECHNICAL REQUIREMENTS:
- You receive a JSON object. Each member is a string ID mapped to an object with the source text under "en" and a "missing_translations" object keyed by locale code.
- Fill every value in "missing_translations" with the translation into that locale. Do not add or remove IDs or locales.
- When the source is an object of plural categories ("zero", "one", "two", "few", "many", "other"), answer with an object holding the same categories.
- Preserve all format specifiers exactly as-is (%@, %lld, %d, %1$@, %.2f, etc.).
- Preserve leading/trailing whitespace, newlines, and punctuation patterns.
- Keep brand names and proper nouns unchanged.
- Return ONLY the JSON object with the same structure, no explanations or markdown code blocks.`

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// PendingView returns a copy of t holding only the blank slots, in order.
// Entries with nothing pending are left out.
func PendingView(t *batch.Task) *batch.Task {
	view := &batch.Task{Instructions: t.Instructions}
	for _, e := range t.Entries {
		pending := e.Pending()
		if len(pending) == 0 {
			continue
		}
		view.Entries = append(view.Entries, batch.NewEntry(e.ID, e.Source, pending))
	}
	return view
}

// BuildRequest assembles the provider request for the pending slots of t.
func BuildRequest(t *batch.Task, systemPrompt string) (Request, error) {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	view := PendingView(t)
	payload, err := view.TranslationsJSON()
	if err != nil {
		return Request{}, fmt.Errorf("encoding task: %w", err)
	}

	var sb strings.Builder
	instructions := t.Instructions
	if instructions == "" {
		instructions = batch.DefaultInstructions
	}
	sb.WriteString(instructions)
	if langs := targetLanguages(view); len(langs) > 0 {
		sb.WriteString("\n\nTarget languages: ")
		sb.WriteString(strings.Join(langs, ", "))
	}
	sb.WriteString("\n\n")
	sb.Write(payload)

	return Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   sb.String(),
		Payload:      payload,
	}, nil
}

func targetLanguages(t *batch.Task) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range t.Entries {
		for _, l := range e.Locales {
			if !seen[l] {
				seen[l] = true
				out = append(out, langmeta.Label(l))
			}
		}
	}
	return out
}

// ParseResponse extracts the translations object from a reply. Markdown
// fences and text around the object are ignored.
func ParseResponse(content string) (*batch.Task, error) {
	content = strings.TrimSpace(content)
	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in reply: %s", ErrMalformedResponse, truncate(content, 200))
	}
	t, err := batch.Parse([]byte(content[start : end+1]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return t, nil
}

// FoldResult counts what Fold took from a reply.
type FoldResult struct {
	Filled int
	// Rejected counts answers for unknown IDs or of the wrong shape.
	Rejected int
}

// Fold copies translations from reply into the blank slots of t. Only IDs
// and locales t asked for are taken; a value must be non-blank and have the
// shape (plain or plural) of the entry's source.
func Fold(t *batch.Task, reply *batch.Task) FoldResult {
	var res FoldResult
	for _, r := range reply.Entries {
		e, ok := t.Entry(r.ID)
		if !ok {
			res.Rejected++
			continue
		}
		for _, l := range r.Locales {
			cur, asked := e.Translations[l]
			if !asked || !cur.IsBlank() {
				continue
			}
			v := r.Translations[l]
			if v.IsBlank() {
				continue
			}
			if v.IsPlural() != e.Source.IsPlural() {
				res.Rejected++
				continue
			}
			e.Set(l, v)
			res.Filled++
		}
	}
	return res
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
