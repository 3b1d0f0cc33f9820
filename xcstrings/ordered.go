package xcstrings

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// object is a JSON object that remembers the order of its keys and keeps
// every value as raw JSON until someone asks for it.
type object struct {
	keys   []string
	values map[string]json.RawMessage
}

func newObject() *object {
	return &object{values: make(map[string]json.RawMessage)}
}

// parseObject decodes a JSON object with json.Decoder token streaming so
// that key order survives a load/save round trip.
func parseObject(data []byte) (*object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected '{', got %v", tok)
	}

	o := newObject()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %T", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("value for %q: %w", key, err)
		}
		o.set(key, raw)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err == nil {
		return nil, fmt.Errorf("unexpected data after top-level object")
	}
	return o, nil
}

func (o *object) get(key string) (json.RawMessage, bool) {
	v, ok := o.values[key]
	return v, ok
}

// set replaces the value of key in place, or appends key when it is new.
func (o *object) set(key string, raw json.RawMessage) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = raw
}

// isObject reports whether raw holds a JSON object.
func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// writer produces compact JSON with ordered keys. The result is indented
// once at the very end by Marshal.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) beginObject() { w.buf.WriteByte('{') }
func (w *writer) endObject()   { w.buf.WriteByte('}') }

// key writes a member name, prefixed with a comma unless it is the first.
func (w *writer) key(name string, first bool) {
	if !first {
		w.buf.WriteByte(',')
	}
	w.string(name)
	w.buf.WriteByte(':')
}

// string writes s as a JSON string without HTML escaping.
func (w *writer) string(s string) {
	w.buf.Write(encodeString(s))
}

func (w *writer) raw(v json.RawMessage) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, v); err != nil {
		w.buf.Write(v)
		return
	}
	w.buf.Write(compact.Bytes())
}

// encodeString returns the JSON encoding of s. Unlike json.Marshal it leaves
// <, > and & alone, which keeps format strings readable in the catalogs.
func encodeString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// indent pretty-prints compact JSON with two-space indentation and a
// trailing newline.
func indent(compact []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// ---------------------------------------------------------------------------
// Exported helpers for other ordered JSON documents (task files)
// ---------------------------------------------------------------------------

// Members decodes a JSON object into its member names, in document order,
// and their raw values.
func Members(data []byte) ([]string, map[string]json.RawMessage, error) {
	o, err := parseObject(data)
	if err != nil {
		return nil, nil, err
	}
	return o.keys, o.values, nil
}

// IsObject reports whether raw holds a JSON object.
func IsObject(raw json.RawMessage) bool { return isObject(raw) }

// Quote returns s as a JSON string without HTML escaping.
func Quote(s string) []byte { return encodeString(s) }

// Indent pretty-prints compact JSON the way catalogs are written.
func Indent(compact []byte) ([]byte, error) { return indent(compact) }
