// Package x12 tokenizes ANSI X12 interchanges (835, 837, 270/271) and walks
// their hierarchical loop structure.
package x12

import (
	"strings"
)

const (
	// isaLength is the fixed byte length of a conforming ISA segment,
	// terminator included.
	isaLength = 106

	isaElementSeparatorIndex = 3
	isaRepetitionIndex       = 82
	isaComponentIndex        = 104
	isaTerminatorIndex       = 105

	// isaElementCount is the number of data elements in an ISA segment.
	isaElementCount = 16
)

// Delimiters are the separator characters of one interchange.
type Delimiters struct {
	Segment    byte
	Element    byte
	Component  byte
	Repetition byte // 0 when the interchange declares none
}

// DefaultDelimiters are the separators used when no ISA header is present.
var DefaultDelimiters = Delimiters{
	Segment:    '~',
	Element:    '*',
	Component:  ':',
	Repetition: '^',
}

// Segment is one tokenized X12 segment. Elements[0] is the tag.
type Segment struct {
	Index     int
	Elements  []string
	component byte
}

// NewSegment builds a segment from its elements using the default component
// separator.
func NewSegment(elements ...string) Segment {
	return Segment{Elements: elements, component: DefaultDelimiters.Component}
}

// Tag returns the segment identifier, or "" for an empty segment.
func (s Segment) Tag() string {
	if len(s.Elements) == 0 {
		return ""
	}
	return strings.TrimSpace(s.Elements[0])
}

// Len returns the number of data elements, excluding the tag.
func (s Segment) Len() int {
	if len(s.Elements) == 0 {
		return 0
	}
	return len(s.Elements) - 1
}

// Elem returns element i (1-based, as in CLP01) trimmed, or "" when absent.
func (s Segment) Elem(i int) string {
	if i < 0 || i >= len(s.Elements) {
		return ""
	}
	return strings.TrimSpace(s.Elements[i])
}

// Components splits element i on the component separator.
func (s Segment) Components(i int) []string {
	v := s.Elem(i)
	if v == "" {
		return nil
	}
	sep := s.component
	if sep == 0 {
		sep = DefaultDelimiters.Component
	}
	return strings.Split(v, string(sep))
}

// Component returns sub-element j (1-based) of element i, or "".
func (s Segment) Component(i, j int) string {
	parts := s.Components(i)
	if j < 1 || j > len(parts) {
		return ""
	}
	return strings.TrimSpace(parts[j-1])
}

// String renders the segment with default separators, without terminator.
func (s Segment) String() string {
	return strings.Join(s.Elements, string(DefaultDelimiters.Element))
}

// DetectDelimiters reads the separators from a leading ISA segment. Input
// without an ISA header gets DefaultDelimiters.
func DetectDelimiters(raw string) Delimiters {
	raw = trimLeading(raw)
	if !strings.HasPrefix(raw, "ISA") || len(raw) <= isaElementSeparatorIndex {
		return DefaultDelimiters
	}

	d := DefaultDelimiters
	d.Element = raw[isaElementSeparatorIndex]

	if len(raw) >= isaLength && raw[isaTerminatorIndex-2] == d.Element && countByte(raw[:isaComponentIndex], d.Element) == isaElementCount {
		d.Component = raw[isaComponentIndex]
		d.Segment = raw[isaTerminatorIndex]
		d.Repetition = repetitionOf(raw[isaRepetitionIndex])
		return d
	}

	// Non-padded ISA: the component separator follows the 16th element
	// separator and the terminator follows it.
	seen := 0
	for i := isaElementSeparatorIndex; i < len(raw); i++ {
		if raw[i] != d.Element {
			continue
		}
		seen++
		if seen == 11 && i+1 < len(raw) {
			d.Repetition = repetitionOf(raw[i+1])
		}
		if seen == isaElementCount {
			if i+1 < len(raw) {
				d.Component = raw[i+1]
			}
			if i+2 < len(raw) {
				d.Segment = raw[i+2]
			}
			break
		}
	}
	return d
}

// Tokenize splits raw text into segments. When the segment terminator does
// not occur in the input but line breaks do, each line is a segment. Blank
// segments are dropped. Tokenize never fails; absent elements are absent.
func Tokenize(raw string, d Delimiters) []Segment {
	raw = trimLeading(raw)
	if raw == "" {
		return nil
	}

	var pieces []string
	if d.Segment != '\n' && d.Segment != '\r' && strings.IndexByte(raw, d.Segment) >= 0 {
		raw = strings.NewReplacer("\r", "", "\n", "").Replace(raw)
		pieces = strings.Split(raw, string(d.Segment))
	} else {
		raw = strings.ReplaceAll(raw, "\r\n", "\n")
		raw = strings.ReplaceAll(raw, "\r", "\n")
		pieces = strings.Split(raw, "\n")
	}

	segs := make([]Segment, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		segs = append(segs, Segment{
			Index:     len(segs),
			Elements:  strings.Split(p, string(d.Element)),
			component: d.Component,
		})
	}
	return segs
}

// Parse detects delimiters and tokenizes raw in one step.
func Parse(raw string) []Segment {
	return Tokenize(raw, DetectDelimiters(raw))
}

// SplitInterchanges splits a segment stream holding several concatenated
// interchanges at each ISA header. Segments before the first ISA form their
// own group.
func SplitInterchanges(segs []Segment) [][]Segment {
	var groups [][]Segment
	var cur []Segment
	for _, s := range segs {
		if s.Tag() == "ISA" && len(cur) > 0 {
			groups = append(groups, cur)
			cur = nil
		}
		cur = append(cur, s)
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// Transaction is the ST..SE slice of a segment stream.
type Transaction struct {
	Type     string // ST01, e.g. "835"
	Control  string // ST02
	Segments []Segment
}

// Transactions groups segs into ST..SE transaction sets. A trailing set
// without SE is kept. Streams without any ST yield a single untyped
// transaction holding every segment.
func Transactions(segs []Segment) []Transaction {
	var out []Transaction
	var cur *Transaction
	for _, s := range segs {
		switch s.Tag() {
		case "ST":
			if cur != nil {
				out = append(out, *cur)
			}
			cur = &Transaction{Type: s.Elem(1), Control: s.Elem(2)}
			cur.Segments = append(cur.Segments, s)
		case "SE":
			if cur != nil {
				cur.Segments = append(cur.Segments, s)
				out = append(out, *cur)
				cur = nil
			}
		default:
			if cur != nil {
				cur.Segments = append(cur.Segments, s)
			}
		}
	}
	if cur != nil {
		out = append(out, *cur)
	}
	if len(out) == 0 && len(segs) > 0 {
		out = append(out, Transaction{Segments: segs})
	}
	return out
}

// TransactionType returns ST01 of the first transaction set, or "".
func TransactionType(segs []Segment) string {
	for _, s := range segs {
		if s.Tag() == "ST" {
			return s.Elem(1)
		}
	}
	return ""
}

func repetitionOf(b byte) byte {
	if (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == ' ' {
		return 0
	}
	return b
}

func countByte(s string, b byte) int {
	return strings.Count(s, string(b))
}

func trimLeading(raw string) string {
	raw = strings.TrimPrefix(raw, "\uFEFF")
	return strings.TrimLeft(raw, " \t\r\n")
}
