package hl7v2

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEmptyMessage is returned when the input holds no segments.
	ErrEmptyMessage = errors.New("hl7v2: message is empty")

	// ErrNoMSH is returned when the first segment is not a message header.
	ErrNoMSH = errors.New("hl7v2: first segment must be MSH")
)

// Delimiters are the encoding characters declared in MSH-1 and MSH-2.
type Delimiters struct {
	Field        byte
	Component    byte
	Repetition   byte
	Escape       byte
	SubComponent byte
}

// DefaultDelimiters are the standard HL7 encoding characters |^~\&.
var DefaultDelimiters = Delimiters{
	Field:        '|',
	Component:    '^',
	Repetition:   '~',
	Escape:       '\\',
	SubComponent: '&',
}

// Encoding renders MSH-2 for these delimiters.
func (d Delimiters) Encoding() string {
	return string([]byte{d.Component, d.Repetition, d.Escape, d.SubComponent})
}

// Message represents a parsed HL7v2 message.
type Message struct {
	Type         string    // MSH-9 message type (e.g. "ADT^A01")
	ControlID    string    // MSH-10
	Version      string    // MSH-12 (e.g. "2.5.1")
	Timestamp    time.Time // MSH-7
	RawTimestamp string    // MSH-7 as sent
	SendingApp   string    // MSH-3
	SendingFac   string    // MSH-4
	ReceivingApp string    // MSH-5
	ReceivingFac string    // MSH-6
	Delimiters   Delimiters
	Segments     []Segment
}

// Segment represents a single HL7v2 segment.
type Segment struct {
	Name   string // e.g. "MSH", "PID", "OBR", "OBX"
	Fields []Field
	Index  int // position within the message
}

// Field represents a field which can have components and repetitions.
type Field struct {
	Value      string
	Components []string   // components of the first repetition
	Repeats    [][]string // one component list per repetition
	subSep     byte
}

// DetectDelimiters reads the encoding characters from an MSH line. Missing
// characters fall back to the defaults.
func DetectDelimiters(line string) Delimiters {
	d := DefaultDelimiters
	if !strings.HasPrefix(line, "MSH") || len(line) < 4 {
		return d
	}
	d.Field = line[3]
	enc := line[4:]
	if i := strings.IndexByte(enc, d.Field); i >= 0 {
		enc = enc[:i]
	}
	targets := []*byte{&d.Component, &d.Repetition, &d.Escape, &d.SubComponent}
	for i := 0; i < len(enc) && i < len(targets); i++ {
		*targets[i] = enc[i]
	}
	return d
}

// splitLines normalises \r\n and \n to \r and returns the non-blank lines.
func splitLines(raw []byte) []string {
	text := string(raw)
	text = strings.ReplaceAll(text, "\r\n", "\r")
	text = strings.ReplaceAll(text, "\n", "\r")

	var lines []string
	for _, line := range strings.Split(text, "\r") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// SplitMessages splits a buffer holding several messages at each MSH
// segment. Lines before the first MSH are returned as their own chunk so
// the caller can report them.
func SplitMessages(raw []byte) [][]byte {
	var out [][]byte
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, []byte(strings.Join(cur, "\r")))
			cur = nil
		}
	}
	for _, line := range splitLines(raw) {
		if strings.HasPrefix(line, "MSH") {
			flush()
		}
		cur = append(cur, line)
	}
	flush()
	return out
}

// Parse parses raw HL7v2 message bytes into a structured Message.
// It supports \r, \n, and \r\n line endings for segment separation.
// Delimiters are taken from the MSH segment.
func Parse(raw []byte) (*Message, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyMessage
	}

	lines := splitLines(raw)
	if len(lines) == 0 {
		return nil, fmt.Errorf("hl7v2: no segments found: %w", ErrEmptyMessage)
	}

	if !strings.HasPrefix(lines[0], "MSH") {
		return nil, fmt.Errorf("%w, got %q", ErrNoMSH, lines[0][:min(3, len(lines[0]))])
	}

	msg := &Message{Delimiters: DetectDelimiters(lines[0])}

	for i, line := range lines {
		seg, err := parseSegment(line, msg.Delimiters)
		if err != nil {
			return nil, fmt.Errorf("hl7v2: failed to parse segment %d: %w", i, err)
		}
		seg.Index = i
		msg.Segments = append(msg.Segments, seg)
	}

	msg.extractMSHFields()
	return msg, nil
}

// parseSegment parses a single segment line into a Segment struct.
func parseSegment(line string, d Delimiters) (Segment, error) {
	if len(line) < 3 {
		return Segment{}, fmt.Errorf("segment too short: %q", line)
	}

	sep := string(d.Field)
	seg := Segment{}

	// MSH is special: the field separator is MSH-1 itself and MSH-2 holds
	// the encoding characters, which must not be split.
	if strings.HasPrefix(line, "MSH") {
		seg.Name = "MSH"
		seg.Fields = append(seg.Fields, Field{Value: sep, Components: []string{sep}})
		if len(line) < 5 {
			return seg, nil
		}
		parts := strings.Split(line[4:], sep)
		seg.Fields = append(seg.Fields, Field{Value: parts[0], Components: []string{parts[0]}})
		for _, part := range parts[1:] {
			seg.Fields = append(seg.Fields, parseField(part, d))
		}
		return seg, nil
	}

	parts := strings.SplitN(line, sep, 2)
	seg.Name = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		for _, f := range strings.Split(parts[1], sep) {
			seg.Fields = append(seg.Fields, parseField(f, d))
		}
	}
	return seg, nil
}

// parseField parses a single field, handling components and repetitions.
func parseField(raw string, d Delimiters) Field {
	f := Field{Value: raw, subSep: d.SubComponent}
	for _, rep := range strings.Split(raw, string(d.Repetition)) {
		f.Repeats = append(f.Repeats, strings.Split(rep, string(d.Component)))
	}
	f.Components = f.Repeats[0]
	return f
}

// extractMSHFields copies commonly used MSH fields into the Message struct.
func (m *Message) extractMSHFields() {
	msh := m.GetSegment("MSH")
	if msh == nil {
		return
	}

	m.SendingApp = msh.GetField(3)
	m.SendingFac = msh.GetField(4)
	m.ReceivingApp = msh.GetField(5)
	m.ReceivingFac = msh.GetField(6)
	m.RawTimestamp = msh.GetField(7)
	if m.RawTimestamp != "" {
		if t, err := ParseTimestamp(m.RawTimestamp); err == nil {
			m.Timestamp = t
		}
	}
	m.Type = msh.GetField(9)
	m.ControlID = msh.GetField(10)
	m.Version = msh.GetField(12)
}

// ParseTimestamp parses an HL7v2 timestamp (YYYYMMDD[HHMM[SS[.ffff]]][+ZZZZ]).
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "+-"); i >= 8 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	switch {
	case len(s) >= 14:
		return time.Parse("20060102150405", s[:14])
	case len(s) >= 12:
		return time.Parse("200601021504", s[:12])
	case len(s) >= 8:
		return time.Parse("20060102", s[:8])
	default:
		return time.Time{}, fmt.Errorf("hl7v2: unrecognized timestamp format: %q", s)
	}
}

// GetSegment returns the first segment with the given name, or nil if not found.
func (m *Message) GetSegment(name string) *Segment {
	for i := range m.Segments {
		if m.Segments[i].Name == name {
			return &m.Segments[i]
		}
	}
	return nil
}

// GetSegments returns all segments with the given name.
func (m *Message) GetSegments(name string) []Segment {
	var result []Segment
	for _, seg := range m.Segments {
		if seg.Name == name {
			result = append(result, seg)
		}
	}
	return result
}

// field returns a pointer to the field at a 1-based index. MSH-1 is
// Fields[0] so MSH and ordinary segments index the same way.
func (s *Segment) field(index int) *Field {
	idx := index - 1
	if idx < 0 || idx >= len(s.Fields) {
		return nil
	}
	return &s.Fields[idx]
}

// GetField returns the trimmed value of a field by 1-based index.
func (s *Segment) GetField(index int) string {
	f := s.field(index)
	if f == nil {
		return ""
	}
	return strings.TrimSpace(f.Value)
}

// GetComponent returns a component of the first repetition by 1-based
// field and component indices.
func (s *Segment) GetComponent(fieldIdx, compIdx int) string {
	f := s.field(fieldIdx)
	if f == nil {
		return ""
	}
	ci := compIdx - 1
	if ci < 0 || ci >= len(f.Components) {
		return ""
	}
	return strings.TrimSpace(f.Components[ci])
}

// GetRepeat returns the components of repetition r (1-based) of a field.
func (s *Segment) GetRepeat(fieldIdx, r int) []string {
	f := s.field(fieldIdx)
	if f == nil || r < 1 || r > len(f.Repeats) {
		return nil
	}
	return f.Repeats[r-1]
}

// RepeatCount returns the number of repetitions of a field.
func (s *Segment) RepeatCount(fieldIdx int) int {
	f := s.field(fieldIdx)
	if f == nil || f.Value == "" {
		return 0
	}
	return len(f.Repeats)
}

// GetSubComponent returns sub-component k of component j of field i.
func (s *Segment) GetSubComponent(fieldIdx, compIdx, subIdx int) string {
	f := s.field(fieldIdx)
	if f == nil {
		return ""
	}
	comp := s.GetComponent(fieldIdx, compIdx)
	sep := f.subSep
	if sep == 0 {
		sep = DefaultDelimiters.SubComponent
	}
	parts := strings.Split(comp, string(sep))
	if subIdx < 1 || subIdx > len(parts) {
		return ""
	}
	return strings.TrimSpace(parts[subIdx-1])
}

// Escape encodes text for use as a field value: the delimiters in d become
// \F\ \S\ \T\ \R\ \E\ and line breaks, which would end the segment,
// become spaces.
func Escape(v string, d Delimiters) string {
	if d.Field == 0 {
		d = DefaultDelimiters
	}
	if d.Escape == 0 {
		d.Escape = DefaultDelimiters.Escape
	}
	esc := string(d.Escape)
	return strings.NewReplacer(
		esc, esc+"E"+esc,
		string(d.Field), esc+"F"+esc,
		string(d.Component), esc+"S"+esc,
		string(d.SubComponent), esc+"T"+esc,
		string(d.Repetition), esc+"R"+esc,
		"\r\n", " ",
		"\r", " ",
		"\n", " ",
	).Replace(v)
}

// Unescape decodes the HL7 escape sequences \F\ \S\ \T\ \R\ \E\ in v.
func Unescape(v string, d Delimiters) string {
	esc := string(d.Escape)
	if !strings.Contains(v, esc) {
		return v
	}
	r := strings.NewReplacer(
		esc+"F"+esc, string(d.Field),
		esc+"S"+esc, string(d.Component),
		esc+"T"+esc, string(d.SubComponent),
		esc+"R"+esc, string(d.Repetition),
		esc+"E"+esc, esc,
	)
	return r.Replace(v)
}
