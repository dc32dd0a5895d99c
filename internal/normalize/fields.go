// Package normalize turns raw generator JSON into the canonical content graph.
//
// Every payload passes through a Shape first, which resolves snake_case,
// camelCase and legacy aliases of each logical field into one canonical
// snake_case key. Code after that point reads only canonical keys.
package normalize

import (
	"strings"

	"github.com/p-n-ai/pai-content/internal/content"
)

// Field is one logical field of a payload object.
type Field struct {
	Name     string
	Aliases  []string
	Required bool
}

// Required declares a field that must be present under some alias.
func Required(name string, legacy ...string) Field {
	return Field{Name: name, Aliases: aliasesFor(name, legacy), Required: true}
}

// Optional declares a field that may be absent.
func Optional(name string, legacy ...string) Field {
	return Field{Name: name, Aliases: aliasesFor(name, legacy)}
}

// aliasesFor lists the lookup order: snake_case first for legacy payloads,
// then camelCase, then each extra name followed by its camelCase form.
func aliasesFor(name string, legacy []string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, n := range append([]string{name}, legacy...) {
		add(n)
		add(camelCase(n))
	}
	return out
}

func camelCase(snake string) string {
	parts := strings.Split(snake, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// Shape is the ordered field list of one payload object.
type Shape []Field

// Reconcile projects raw onto the shape's canonical keys.
func (s Shape) Reconcile(raw map[string]any) (Record, error) {
	return s.ReconcileAt("", raw)
}

// ReconcileAt is Reconcile with missing-field paths prefixed by path.
func (s Shape) ReconcileAt(path string, raw map[string]any) (Record, error) {
	out := make(Record, len(s))
	for _, f := range s {
		v, ok := lookup(raw, f)
		if !ok {
			if f.Required {
				return nil, &content.MissingFieldError{Field: joinPath(path, f.Name)}
			}
			continue
		}
		out[f.Name] = v
	}
	return out, nil
}

func lookup(raw map[string]any, f Field) (any, bool) {
	for _, key := range f.Aliases {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// Record is a reconciled object keyed by canonical field names.
type Record map[string]any

// Has reports whether the field was present.
func (r Record) Has(name string) bool {
	_, ok := r[name]
	return ok
}

func (r Record) Raw(name string) any { return r[name] }

func (r Record) String(name string) string { return stringFromAny(r[name]) }

// StringOr returns the field or def when it is empty.
func (r Record) StringOr(name, def string) string {
	if s := r.String(name); s != "" {
		return s
	}
	return def
}

func (r Record) Int(name string, def int) int { return intFromAny(r[name], def) }

func (r Record) Float(name string, def float64) float64 { return floatFromAny(r[name], def) }

// Bool returns the field and whether it held a recognizable boolean.
func (r Record) Bool(name string) (bool, bool) { return boolFromAny(r[name]) }

func (r Record) Strings(name string) []string { return stringSliceFromAny(r[name]) }

// Object returns a nested object field.
func (r Record) Object(name string) (map[string]any, bool) { return objectFromAny(r[name]) }

// Objects returns the object items of an array field, skipping non-objects.
func (r Record) Objects(name string) []map[string]any { return objectsFromAny(r[name]) }

// Items returns an array field as-is.
func (r Record) Items(name string) []any {
	arr, _ := r[name].([]any)
	return arr
}
