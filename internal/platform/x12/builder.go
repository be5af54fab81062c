package x12

import (
	"fmt"
	"strings"
)

// Builder assembles an outbound X12 document segment by segment and keeps
// the transaction-set segment count needed for SE01.
type Builder struct {
	d        Delimiters
	segments []string
	inSet    int // segments since ST, inclusive
	counting bool
}

// NewBuilder returns a Builder writing with the given delimiters.
func NewBuilder(d Delimiters) *Builder {
	return &Builder{d: d}
}

// Add appends a segment. Trailing empty elements are trimmed.
func (b *Builder) Add(tag string, elements ...string) {
	last := len(elements)
	for last > 0 && elements[last-1] == "" {
		last--
	}
	parts := make([]string, 0, last+1)
	parts = append(parts, tag)
	parts = append(parts, elements[:last]...)
	b.AddRaw(strings.Join(parts, string(b.d.Element)))

	switch tag {
	case "ST":
		b.counting = true
		b.inSet = 1
	case "SE":
		b.counting = false
	default:
		if b.counting {
			b.inSet++
		}
	}
}

// AddRaw appends a pre-rendered segment body without its terminator. It does
// not affect the transaction-set count.
func (b *Builder) AddRaw(body string) {
	b.segments = append(b.segments, body)
}

// SetCount returns the number of segments in the open transaction set
// including ST and the SE about to be written.
func (b *Builder) SetCount() int {
	return b.inSet + 1
}

// Composite joins sub-elements with the component separator.
func (b *Builder) Composite(parts ...string) string {
	return strings.Join(parts, string(b.d.Component))
}

// Len returns the number of segments written.
func (b *Builder) Len() int {
	return len(b.segments)
}

// String renders every segment followed by the terminator and a newline.
func (b *Builder) String() string {
	var sb strings.Builder
	for _, s := range b.segments {
		sb.WriteString(s)
		sb.WriteByte(b.d.Segment)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ISA renders a fixed-width interchange header. Sender and receiver ids are
// padded or truncated to 15 characters.
func ISA(d Delimiters, senderID, receiverID, date, clock string, control int) string {
	pad := func(s string, n int) string {
		if len(s) >= n {
			return s[:n]
		}
		return s + strings.Repeat(" ", n-len(s))
	}
	if len(date) == 8 {
		date = date[2:]
	}
	rep := d.Repetition
	if rep == 0 {
		rep = 'U'
	}
	e := string(d.Element)
	return strings.Join([]string{
		"ISA", "00", pad("", 10), "00", pad("", 10),
		"ZZ", pad(senderID, 15), "ZZ", pad(receiverID, 15),
		pad(date, 6), pad(clock, 4), string(rep), "00501",
		fmt.Sprintf("%09d", control), "0", "P", string(d.Component),
	}, e)
}

// FormatAmount renders a money value with two decimals.
func FormatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
