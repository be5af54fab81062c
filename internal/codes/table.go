// Package codes holds the static code tables and the pure normalization
// functions used by every segment interpreter. Tables are built once at
// package initialisation and never mutated afterwards.
package codes

import (
	"sort"
	"strings"
)

// Entry is the result of resolving one raw code.
type Entry struct {
	Raw         string `json:"raw"`
	Standard    string `json:"standard"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Mapped      bool   `json:"mapped"`
}

// Table is an immutable code-to-description dictionary. Lookups on a Table
// are safe for concurrent use.
type Table struct {
	name     string
	category string
	entries  map[string]string
}

// NewTable copies m into a new Table.
func NewTable(name, category string, m map[string]string) *Table {
	entries := make(map[string]string, len(m))
	for k, v := range m {
		entries[k] = v
	}
	return &Table{name: name, category: category, entries: entries}
}

// Name identifies the table in audits, e.g. "carc".
func (t *Table) Name() string { return t.name }

// Lookup resolves code. It is total: unknown codes come back unchanged
// with Mapped false.
func (t *Table) Lookup(code string) Entry {
	code = strings.TrimSpace(code)
	desc, ok := t.entries[code]
	if !ok {
		return Entry{Raw: code, Standard: code, Category: t.category}
	}
	return Entry{Raw: code, Standard: code, Description: desc, Category: t.category, Mapped: true}
}

// Describe returns the description for code, or fallback when unknown.
func (t *Table) Describe(code, fallback string) string {
	if desc, ok := t.entries[strings.TrimSpace(code)]; ok {
		return desc
	}
	return fallback
}

// Has reports whether code is present.
func (t *Table) Has(code string) bool {
	_, ok := t.entries[strings.TrimSpace(code)]
	return ok
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Codes returns every code in the table, sorted.
func (t *Table) Codes() []string {
	out := make([]string, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
