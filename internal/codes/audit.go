package codes

import "sort"

// MappingUsage records one occurrence of a code being translated.
type MappingUsage struct {
	File        string `json:"file"`
	Table       string `json:"table"`
	Segment     int    `json:"segment"`
	Raw         string `json:"raw"`
	Standard    string `json:"standard"`
	Description string `json:"description"`
}

// UnmappedCode records one occurrence of a code no table knew.
type UnmappedCode struct {
	File    string `json:"file"`
	Table   string `json:"table"`
	Segment int    `json:"segment"`
	Raw     string `json:"raw"`
}

// CodeCount is one row of an audit summary.
type CodeCount struct {
	Table    string `json:"table"`
	Raw      string `json:"raw"`
	Standard string `json:"standard,omitempty"`
	Count    int    `json:"count"`
	Mapped   bool   `json:"mapped"`
}

// Audit accumulates code translations for a single file. Like diag.List it
// is owned by one parse and merged afterwards.
type Audit struct {
	file     string
	usages   []MappingUsage
	unmapped []UnmappedCode
}

// NewAudit creates an audit attributed to file.
func NewAudit(file string) *Audit {
	return &Audit{file: file}
}

// File returns the file the audit is attributed to.
func (a *Audit) File() string {
	return a.file
}

// Record notes the outcome of resolving a code from table at segment.
// Remapped codes produce a usage and unknown codes an unmapped entry; plain
// standard hits are not recorded.
func (a *Audit) Record(table string, segment int, r Resolution) {
	if a == nil {
		return
	}
	switch {
	case r.Remapped:
		a.usages = append(a.usages, MappingUsage{
			File:        a.file,
			Table:       table,
			Segment:     segment,
			Raw:         r.Raw,
			Standard:    r.Standard,
			Description: r.Description,
		})
	case !r.Mapped:
		a.RecordUnmapped(table, segment, r.Raw)
	}
}

// RecordUnmapped notes a code that passed through untranslated.
func (a *Audit) RecordUnmapped(table string, segment int, raw string) {
	if a == nil || raw == "" {
		return
	}
	a.unmapped = append(a.unmapped, UnmappedCode{File: a.file, Table: table, Segment: segment, Raw: raw})
}

// Usages returns the recorded translations in order.
func (a *Audit) Usages() []MappingUsage {
	if a == nil {
		return nil
	}
	out := make([]MappingUsage, len(a.usages))
	copy(out, a.usages)
	return out
}

// Unmapped returns the recorded unknown codes in order.
func (a *Audit) Unmapped() []UnmappedCode {
	if a == nil {
		return nil
	}
	out := make([]UnmappedCode, len(a.unmapped))
	copy(out, a.unmapped)
	return out
}

// Merge appends other's entries to a.
func (a *Audit) Merge(other *Audit) {
	if a == nil || other == nil {
		return
	}
	a.usages = append(a.usages, other.usages...)
	a.unmapped = append(a.unmapped, other.unmapped...)
}

// Summary counts occurrences per (table, code), sorted by table then code.
func (a *Audit) Summary() []CodeCount {
	if a == nil {
		return nil
	}
	type key struct{ table, raw string }
	idx := make(map[key]int)
	var out []CodeCount
	add := func(k key, standard string, mapped bool) {
		if i, ok := idx[k]; ok {
			out[i].Count++
			return
		}
		idx[k] = len(out)
		out = append(out, CodeCount{Table: k.table, Raw: k.raw, Standard: standard, Count: 1, Mapped: mapped})
	}
	for _, u := range a.usages {
		add(key{u.Table, u.Raw}, u.Standard, true)
	}
	for _, u := range a.unmapped {
		add(key{u.Table, u.Raw}, "", false)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Table != out[j].Table {
			return out[i].Table < out[j].Table
		}
		return out[i].Raw < out[j].Raw
	})
	return out
}
