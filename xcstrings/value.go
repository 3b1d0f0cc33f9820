package xcstrings

import (
	"encoding/json"
	"fmt"
)

// PluralForm is the text of one plural category.
type PluralForm struct {
	Category string
	Text     string
}

// Value is the text exchanged with a translation provider: either a plain
// string or an ordered plural-category map. The zero Value is the empty
// placeholder "".
type Value struct {
	Text   string
	Plural []PluralForm
}

// PlainValue returns a plain-string Value.
func PlainValue(s string) Value { return Value{Text: s} }

// PluralValue returns a plural Value from category/text pairs.
func PluralValue(forms ...PluralForm) Value {
	if forms == nil {
		forms = []PluralForm{}
	}
	return Value{Plural: forms}
}

// IsPlural reports whether v is a plural-category map.
func (v Value) IsPlural() bool { return v.Plural != nil }

// Form returns the text of a plural category.
func (v Value) Form(category string) (string, bool) {
	for _, f := range v.Plural {
		if f.Category == category {
			return f.Text, true
		}
	}
	return "", false
}

// IsBlank reports whether v carries no text at all: "" or a plural map
// whose forms are all empty.
func (v Value) IsBlank() bool {
	if !v.IsPlural() {
		return v.Text == ""
	}
	for _, f := range v.Plural {
		if f.Text != "" {
			return false
		}
	}
	return true
}

// MarshalJSON encodes a plain value as a string and a plural value as an
// object, keeping category order.
func (v Value) MarshalJSON() ([]byte, error) {
	var w writer
	v.encode(&w)
	return w.buf.Bytes(), nil
}

func (v Value) encode(w *writer) {
	if !v.IsPlural() {
		w.string(v.Text)
		return
	}
	w.beginObject()
	for i, f := range v.Plural {
		w.key(f.Category, i == 0)
		w.string(f.Text)
	}
	w.endObject()
}

// UnmarshalJSON accepts a string, null, or an object of strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	if !isObject(data) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("value must be a string or an object: %w", err)
		}
		*v = PlainValue(s)
		return nil
	}

	obj, err := parseObject(data)
	if err != nil {
		return err
	}
	forms := make([]PluralForm, 0, len(obj.keys))
	for _, k := range obj.keys {
		var s string
		if err := json.Unmarshal(obj.values[k], &s); err != nil {
			return fmt.Errorf("plural form %q must be a string: %w", k, err)
		}
		forms = append(forms, PluralForm{Category: k, Text: s})
	}
	*v = PluralValue(forms...)
	return nil
}

// BaseValue returns the source text of an entry: the base-locale unit when
// it has text, the key itself otherwise. A pluralized base yields a plural
// Value; empty categories fall back to the key.
func BaseValue(key string, e *Entry, baseLocale string) Value {
	if e == nil {
		return PlainValue(key)
	}
	u, ok := e.Unit(baseLocale)
	if !ok {
		return PlainValue(key)
	}

	switch u := u.(type) {
	case *StringUnit:
		if u.Value != "" {
			return PlainValue(u.Value)
		}
	case *PluralUnit:
		forms := make([]PluralForm, 0, len(u.categories))
		for _, c := range u.categories {
			text := u.forms[c].Value
			if text == "" {
				text = key
			}
			forms = append(forms, PluralForm{Category: c, Text: text})
		}
		return PluralValue(forms...)
	}
	return PlainValue(key)
}

// String returns the compact JSON form of v.
func (v Value) String() string {
	b, _ := v.MarshalJSON()
	return string(b)
}
