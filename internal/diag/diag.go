// Package diag holds the structured diagnostics produced while parsing
// transaction files. Field and segment problems are never returned as errors;
// they are appended to a List and surfaced with the parsed records.
package diag

import (
	"fmt"
	"sort"
)

// Kind classifies a diagnostic.
type Kind string

const (
	// MalformedSegment is an unparseable tag or out-of-order hierarchical
	// nesting. The segment is skipped.
	MalformedSegment Kind = "malformed_segment"

	// UnmappedCode is a vendor or non-standard code absent from the mapping
	// table. The value passes through unchanged.
	UnmappedCode Kind = "unmapped_code"

	// InvalidDomainValue is a non-numeric amount, an unparseable date or a
	// malformed code. The field defaults to zero or empty.
	InvalidDomainValue Kind = "invalid_domain_value"

	// FileLevelFailure is an I/O error or catastrophic parse failure. The
	// whole file is skipped.
	FileLevelFailure Kind = "file_level_failure"
)

// Diagnostic is one anomaly found in an input file.
type Diagnostic struct {
	Kind    Kind   `json:"kind"`
	File    string `json:"file,omitempty"`
	Segment int    `json:"segment"` // 0-based ordinal in the segment stream, -1 when not tied to a segment
	Tag     string `json:"tag,omitempty"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Segment < 0 {
		return fmt.Sprintf("%s: %s: %s", d.File, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: segment %d (%s): %s: %s", d.File, d.Segment, d.Tag, d.Kind, d.Message)
}

// List accumulates diagnostics for a single file. It is not safe for
// concurrent use; each parse owns its own List.
type List struct {
	file  string
	items []Diagnostic
}

// NewList creates a List whose entries are attributed to file.
func NewList(file string) *List {
	return &List{file: file}
}

// File returns the file the list is attributed to.
func (l *List) File() string {
	return l.file
}

// Add records a diagnostic tied to a segment.
func (l *List) Add(kind Kind, segment int, tag, format string, args ...interface{}) {
	l.items = append(l.items, Diagnostic{
		Kind:    kind,
		File:    l.file,
		Segment: segment,
		Tag:     tag,
		Message: fmt.Sprintf(format, args...),
	})
}

// AddFile records a diagnostic that is not tied to a single segment.
func (l *List) AddFile(kind Kind, format string, args ...interface{}) {
	l.Add(kind, -1, "", format, args...)
}

// Items returns the recorded diagnostics in the order they were added.
func (l *List) Items() []Diagnostic {
	if l == nil {
		return nil
	}
	out := make([]Diagnostic, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of diagnostics recorded.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Count returns the number of diagnostics of the given kind.
func (l *List) Count(kind Kind) int {
	if l == nil {
		return 0
	}
	n := 0
	for _, d := range l.items {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// CountByKind tallies a slice of diagnostics per kind.
func CountByKind(items []Diagnostic) map[Kind]int {
	counts := make(map[Kind]int)
	for _, d := range items {
		counts[d.Kind]++
	}
	return counts
}

// Kinds returns the distinct kinds present in items, sorted.
func Kinds(items []Diagnostic) []Kind {
	seen := make(map[Kind]bool)
	var kinds []Kind
	for _, d := range items {
		if !seen[d.Kind] {
			seen[d.Kind] = true
			kinds = append(kinds, d.Kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// FileError pairs an input file with the error that caused it to be skipped.
type FileError struct {
	File string `json:"file"`
	Err  error  `json:"-"`
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}
