// Package claim reads 837P professional claim submissions into claim
// records.
package claim

import (
	"github.com/rs/zerolog"

	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/diag"
	"github.com/ehr/edi/internal/platform/x12"
	"github.com/ehr/edi/internal/record"
)

// TransactionType is the ST01 value this package reads.
const TransactionType = "837"

// Submission is everything read from one 837 file.
type Submission struct {
	File   string                `json:"file"`
	Claims []*record.ClaimRecord `json:"claims"`
	Stats  x12.Stats             `json:"-"`
}

// Records returns the claims as generic records.
func (s *Submission) Records() []record.Record {
	out := make([]record.Record, len(s.Claims))
	for i, c := range s.Claims {
		out[i] = c
	}
	return out
}

// Parser reads 837P transactions. It is stateless and safe for concurrent
// use.
type Parser struct {
	logger zerolog.Logger
}

func NewParser(logger zerolog.Logger) *Parser {
	return &Parser{logger: logger.With().Str("component", "claim").Logger()}
}

// Parse tokenizes raw and reads every 837 transaction in it.
func (p *Parser) Parse(file, raw string, diags *diag.List, audit *codes.Audit) *Submission {
	return p.ParseSegments(file, x12.Parse(raw), diags, audit)
}

// ParseSegments reads an already tokenized segment stream.
func (p *Parser) ParseSegments(file string, segs []x12.Segment, diags *diag.List, audit *codes.Audit) *Submission {
	g := newGrammar(file, diags, audit)
	stats := x12.NewWalker(diags, p.logger).Walk(segs, g)
	g.out.Stats = stats

	p.logger.Debug().
		Str("file", file).
		Int("claims", len(g.out.Claims)).
		Int("diagnostics", diags.Len()).
		Msg("837 parsed")
	return g.out
}
