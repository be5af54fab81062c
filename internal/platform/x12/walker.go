package x12

import (
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ehr/edi/internal/diag"
)

// Level is a position in the loop hierarchy of a transaction set.
type Level int

const (
	LevelEnvelope Level = iota
	LevelA              // root: payer / billing provider
	LevelB              // provider or claim
	LevelC              // subscriber or service line
)

// Grammars needing deeper nesting use levels past LevelC.

func (l Level) String() string {
	switch l {
	case LevelEnvelope:
		return "envelope"
	case LevelA:
		return "level-a"
	case LevelB:
		return "level-b"
	case LevelC:
		return "level-c"
	default:
		return "level-" + strconv.Itoa(int(l))
	}
}

// Grammar describes one transaction set's loop structure and interprets its
// segments. The grammar owns the hierarchical context; the Walker only
// decides when loops open and when the record in progress is flushed.
type Grammar interface {
	// RecordLevel is the loop level whose instances become output records.
	RecordLevel() Level

	// LevelForHL maps an HL03 hierarchical level code to a loop level.
	LevelForHL(code string) (Level, bool)

	// Implicit reports whether seg opens a loop without an HL segment.
	Implicit(seg Segment) (Level, bool)

	// Open starts a new loop instance at level; seg is the opening segment.
	Open(level Level, seg Segment)

	// Close flushes the record in progress into the grammar's output.
	Close()

	// Interpret applies seg to the current context. It returns false when
	// the tag is not understood at this level.
	Interpret(level Level, seg Segment) bool
}

// Stats summarises one walk.
type Stats struct {
	Segments     int
	Transactions int
	Records      int
	Skipped      int
}

// Walker drives a Grammar over a segment stream.
type Walker struct {
	diags  *diag.List
	logger zerolog.Logger
}

// NewWalker creates a walker reporting anomalies into diags.
func NewWalker(diags *diag.List, logger zerolog.Logger) *Walker {
	return &Walker{diags: diags, logger: logger}
}

type walkState struct {
	g          Grammar
	level      Level
	recordOpen bool
	hl         map[string]Level
	stats      Stats
}

func (s *walkState) closeRecord() {
	if s.recordOpen {
		s.g.Close()
		s.recordOpen = false
		s.stats.Records++
	}
}

func (s *walkState) open(level Level, seg Segment) {
	if level <= s.g.RecordLevel() {
		s.closeRecord()
	}
	s.g.Open(level, seg)
	s.level = level
	if level == s.g.RecordLevel() {
		s.recordOpen = true
	}
}

// Walk consumes segs, dispatching each segment to g. Every record opened is
// closed exactly once, at the latest when the input ends.
func (w *Walker) Walk(segs []Segment, g Grammar) Stats {
	s := &walkState{g: g, level: LevelEnvelope, hl: make(map[string]Level)}

	for _, seg := range segs {
		tag := seg.Tag()
		if tag == "" {
			continue
		}
		s.stats.Segments++

		switch tag {
		case "ISA", "GS", "GE", "IEA":
			s.closeRecord()
			s.level = LevelEnvelope
			continue
		case "ST":
			s.closeRecord()
			s.level = LevelEnvelope
			s.hl = make(map[string]Level)
			s.stats.Transactions++
			g.Interpret(LevelEnvelope, seg)
			continue
		case "SE":
			s.closeRecord()
			s.level = LevelEnvelope
			continue
		case "HL":
			w.walkHL(s, seg)
			continue
		}

		if level, ok := g.Implicit(seg); ok {
			if level > g.RecordLevel() && !s.recordOpen {
				w.diags.Add(diag.MalformedSegment, seg.Index, tag,
					"%s opens a %s loop before any %s loop", tag, level, g.RecordLevel())
				s.stats.Skipped++
				continue
			}
			s.open(level, seg)
			continue
		}

		if !g.Interpret(s.level, seg) {
			w.diags.Add(diag.MalformedSegment, seg.Index, tag, "unrecognized segment %s in %s", tag, s.level)
			s.stats.Skipped++
		}
	}
	s.closeRecord()

	w.logger.Debug().
		Int("segments", s.stats.Segments).
		Int("transactions", s.stats.Transactions).
		Int("records", s.stats.Records).
		Int("skipped", s.stats.Skipped).
		Msg("walk complete")

	return s.stats
}

func (w *Walker) walkHL(s *walkState, seg Segment) {
	id, parent, code := seg.Elem(1), seg.Elem(2), seg.Elem(3)

	level, ok := s.g.LevelForHL(code)
	if !ok {
		w.diags.Add(diag.MalformedSegment, seg.Index, "HL", "unknown hierarchical level code %q", code)
		s.stats.Skipped++
		return
	}

	// Out-of-order nesting is reported but the loop still opens so the
	// data beneath it is not lost.
	if level > LevelA {
		parentLevel, seen := s.hl[parent]
		switch {
		case parent == "":
			w.diags.Add(diag.MalformedSegment, seg.Index, "HL", "HL %s at %s has no parent", id, level)
		case !seen:
			w.diags.Add(diag.MalformedSegment, seg.Index, "HL", "HL %s refers to parent %s which was never opened", id, parent)
		case parentLevel >= level:
			w.diags.Add(diag.MalformedSegment, seg.Index, "HL", "HL %s at %s nested under %s", id, level, parentLevel)
		}
	}
	if id != "" {
		if _, dup := s.hl[id]; dup {
			w.diags.Add(diag.MalformedSegment, seg.Index, "HL", "duplicate HL id %s", id)
		}
		s.hl[id] = level
	}

	s.open(level, seg)
}
