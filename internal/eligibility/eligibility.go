// Package eligibility reads 270 eligibility inquiries and 271 eligibility
// responses into one record per subscriber.
package eligibility

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/diag"
	"github.com/ehr/edi/internal/platform/x12"
	"github.com/ehr/edi/internal/record"
)

// Transaction types read by this package.
const (
	TransactionInquiry  = "270"
	TransactionResponse = "271"
)

// Response is everything read from one 270 or 271 file.
type Response struct {
	File    string                      `json:"file"`
	Records []*record.EligibilityRecord `json:"records"`
	// Rejections are AAA segments sent at payer or provider level, outside
	// any subscriber.
	Rejections []record.Rejection `json:"rejections,omitempty"`
	Stats      x12.Stats          `json:"-"`
}

// AsRecords returns the eligibility records as generic records.
func (r *Response) AsRecords() []record.Record {
	out := make([]record.Record, len(r.Records))
	for i, e := range r.Records {
		out[i] = e
	}
	return out
}

// Parser reads 270/271 transactions. Coverage dates are judged against the
// reference time given at construction, so runs are reproducible.
type Parser struct {
	now    time.Time
	logger zerolog.Logger
}

// NewParser returns a parser evaluating term dates and alerts as of now.
func NewParser(now time.Time, logger zerolog.Logger) *Parser {
	return &Parser{now: now, logger: logger.With().Str("component", "eligibility").Logger()}
}

// Parse tokenizes raw and reads every 270/271 transaction in it.
func (p *Parser) Parse(file, raw string, diags *diag.List, audit *codes.Audit) *Response {
	return p.ParseSegments(file, x12.Parse(raw), diags, audit)
}

// ParseSegments reads an already tokenized segment stream.
func (p *Parser) ParseSegments(file string, segs []x12.Segment, diags *diag.List, audit *codes.Audit) *Response {
	g := newGrammar(file, p.now, diags, audit)
	stats := x12.NewWalker(diags, p.logger).Walk(segs, g)
	g.out.Stats = stats

	p.logger.Debug().
		Str("file", file).
		Int("subscribers", len(g.out.Records)).
		Int("diagnostics", diags.Len()).
		Msg("eligibility parsed")
	return g.out
}
