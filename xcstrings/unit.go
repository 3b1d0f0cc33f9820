package xcstrings

import (
	"encoding/json"
	"fmt"
)

// State is the translation state of a string unit.
type State string

const (
	StateTranslated  State = "translated"
	StateNeedsReview State = "needs_review"
	StateNew         State = "new"
)

// Unit is one locale's value for one string key. It is either a
// *StringUnit, a *PluralUnit or an *OpaqueUnit.
type Unit interface {
	// IsEmpty reports whether the unit still needs a translation.
	IsEmpty() bool
	// Clone returns a deep copy.
	Clone() Unit

	encode(w *writer)
}

// ---------------------------------------------------------------------------
// Simple
// ---------------------------------------------------------------------------

// StringUnit is the simple shape: {"stringUnit": {"state", "value"}}.
type StringUnit struct {
	State State
	Value string
}

// Translated returns a StringUnit in the translated state.
func Translated(value string) *StringUnit {
	return &StringUnit{State: StateTranslated, Value: value}
}

// IsEmpty is true for an empty value or a unit that needs review.
func (u *StringUnit) IsEmpty() bool {
	return u.Value == "" || u.State == StateNeedsReview
}

func (u *StringUnit) Clone() Unit {
	cp := *u
	return &cp
}

func (u *StringUnit) encode(w *writer) {
	w.beginObject()
	w.key("stringUnit", true)
	u.encodeBody(w)
	w.endObject()
}

func (u *StringUnit) encodeBody(w *writer) {
	w.beginObject()
	w.key("state", true)
	w.string(string(u.State))
	w.key("value", false)
	w.string(u.Value)
	w.endObject()
}

// ---------------------------------------------------------------------------
// Pluralized
// ---------------------------------------------------------------------------

// PluralUnit is the pluralized shape:
// {"variations": {"plural": {"one": {"stringUnit": ...}, ...}}}.
// Category order is kept as found in the file.
type PluralUnit struct {
	categories []string
	forms      map[string]*StringUnit
}

// NewPluralUnit returns an empty PluralUnit.
func NewPluralUnit() *PluralUnit {
	return &PluralUnit{forms: make(map[string]*StringUnit)}
}

// Categories returns the plural categories in document order.
func (p *PluralUnit) Categories() []string {
	out := make([]string, len(p.categories))
	copy(out, p.categories)
	return out
}

// Form returns the string unit of a plural category.
func (p *PluralUnit) Form(category string) (*StringUnit, bool) {
	su, ok := p.forms[category]
	return su, ok
}

// SetForm sets the string unit of a plural category, appending the
// category when it is new.
func (p *PluralUnit) SetForm(category string, su *StringUnit) {
	if _, ok := p.forms[category]; !ok {
		p.categories = append(p.categories, category)
	}
	p.forms[category] = su
}

// IsEmpty is true only when every category is empty.
func (p *PluralUnit) IsEmpty() bool {
	for _, c := range p.categories {
		if !p.forms[c].IsEmpty() {
			return false
		}
	}
	return true
}

func (p *PluralUnit) Clone() Unit {
	cp := NewPluralUnit()
	for _, c := range p.categories {
		form := *p.forms[c]
		cp.SetForm(c, &form)
	}
	return cp
}

func (p *PluralUnit) encode(w *writer) {
	w.beginObject()
	w.key("variations", true)
	w.beginObject()
	w.key("plural", true)
	w.beginObject()
	for i, c := range p.categories {
		w.key(c, i == 0)
		w.beginObject()
		w.key("stringUnit", true)
		p.forms[c].encodeBody(w)
		w.endObject()
	}
	w.endObject()
	w.endObject()
	w.endObject()
}

// ---------------------------------------------------------------------------
// Opaque
// ---------------------------------------------------------------------------

// OpaqueUnit is a localization in a shape xcfill does not model (device
// variations, substitutions, ...). It is written back verbatim, counts as
// present and is never overwritten by a merge.
type OpaqueUnit struct {
	raw json.RawMessage
}

func (o *OpaqueUnit) IsEmpty() bool { return false }

func (o *OpaqueUnit) Clone() Unit {
	raw := make(json.RawMessage, len(o.raw))
	copy(raw, o.raw)
	return &OpaqueUnit{raw: raw}
}

func (o *OpaqueUnit) encode(w *writer) { w.raw(o.raw) }

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

type stringUnitJSON struct {
	State string `json:"state"`
	Value string `json:"value"`
}

// decodeUnit turns one localization value into a Unit. Anything that is not
// exactly a stringUnit or a plural variation becomes an OpaqueUnit.
func decodeUnit(raw json.RawMessage) Unit {
	opaque := &OpaqueUnit{raw: raw}
	if !isObject(raw) {
		return opaque
	}
	obj, err := parseObject(raw)
	if err != nil || len(obj.keys) != 1 {
		return opaque
	}

	switch obj.keys[0] {
	case "stringUnit":
		su, err := decodeStringUnit(obj.values["stringUnit"])
		if err != nil {
			return opaque
		}
		return su

	case "variations":
		variations, err := parseObject(obj.values["variations"])
		if err != nil || len(variations.keys) != 1 || variations.keys[0] != "plural" {
			return opaque
		}
		plural, err := parseObject(variations.values["plural"])
		if err != nil {
			return opaque
		}
		p := NewPluralUnit()
		for _, category := range plural.keys {
			form, err := parseObject(plural.values[category])
			if err != nil || len(form.keys) != 1 || form.keys[0] != "stringUnit" {
				return opaque
			}
			su, err := decodeStringUnit(form.values["stringUnit"])
			if err != nil {
				return opaque
			}
			p.SetForm(category, su)
		}
		return p
	}
	return opaque
}

func decodeStringUnit(raw json.RawMessage) (*StringUnit, error) {
	if !isObject(raw) {
		return nil, fmt.Errorf("stringUnit is not an object")
	}
	obj, err := parseObject(raw)
	if err != nil {
		return nil, err
	}
	for _, k := range obj.keys {
		if k != "state" && k != "value" {
			return nil, fmt.Errorf("stringUnit has unsupported field %q", k)
		}
	}
	var su stringUnitJSON
	if err := json.Unmarshal(raw, &su); err != nil {
		return nil, err
	}
	return &StringUnit{State: State(su.State), Value: su.Value}, nil
}

// MarshalUnit returns the indented JSON form of a single unit.
func MarshalUnit(u Unit) ([]byte, error) {
	var w writer
	u.encode(&w)
	return indent(w.buf.Bytes())
}
