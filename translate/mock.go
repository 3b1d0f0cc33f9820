package translate

import (
	"context"
	"fmt"

	"github.com/minios-linux/xcfill/batch"
	"github.com/minios-linux/xcfill/xcstrings"
)

// Mock is an offline provider. It answers every requested slot with
// "[locale] source", keeping the plural shape of the source.
type Mock struct{}

func (Mock) Name() string { return "Mock" }

func (Mock) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t, err := batch.Parse(req.Payload)
	if err != nil {
		return "", fmt.Errorf("mock: %w", err)
	}
	for _, e := range t.Entries {
		for _, l := range e.Locales {
			e.Set(l, MockValue(l, e.Source))
		}
	}
	out, err := t.TranslationsJSON()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// MockValue is the value Mock produces for a locale.
func MockValue(locale string, source xcstrings.Value) xcstrings.Value {
	if !source.IsPlural() {
		return xcstrings.PlainValue("[" + locale + "] " + source.Text)
	}
	forms := make([]xcstrings.PluralForm, len(source.Plural))
	for i, f := range source.Plural {
		forms[i] = xcstrings.PluralForm{Category: f.Category, Text: "[" + locale + "] " + f.Text}
	}
	return xcstrings.PluralValue(forms...)
}
