// Package remit reads 835 health care claim payment/advice transactions
// into claim records.
package remit

import (
	"github.com/rs/zerolog"

	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/diag"
	"github.com/ehr/edi/internal/platform/x12"
	"github.com/ehr/edi/internal/record"
)

// TransactionType is the ST01 value this package reads.
const TransactionType = "835"

// ProviderAdjustment is one reason/amount pair from a PLB segment. Amounts
// keep their sign: negative values are payments back to the provider.
type ProviderAdjustment struct {
	ProviderID   string  `json:"provider_id"`
	FiscalPeriod string  `json:"fiscal_period"`
	Reason       string  `json:"reason"`
	Reference    string  `json:"reference,omitempty"`
	Amount       float64 `json:"amount"`
}

// Remittance is everything read from one 835 file.
type Remittance struct {
	File                string                `json:"file"`
	Claims              []*record.ClaimRecord `json:"claims"`
	ProviderAdjustments []ProviderAdjustment  `json:"provider_adjustments,omitempty"`
	Stats               x12.Stats             `json:"-"`
}

// Parser reads 835 transactions. A Parser holds no per-file state and may
// be shared between goroutines.
type Parser struct {
	remapper *codes.Remapper
	logger   zerolog.Logger
}

// NewParser returns a parser resolving adjustment reasons with remapper.
// A nil remapper uses the built-in vendor mapping.
func NewParser(remapper *codes.Remapper, logger zerolog.Logger) *Parser {
	if remapper == nil {
		remapper = codes.DefaultRemapper()
	}
	return &Parser{remapper: remapper, logger: logger.With().Str("component", "remit").Logger()}
}

// Parse tokenizes raw and reads every 835 transaction in it.
func (p *Parser) Parse(file, raw string, diags *diag.List, audit *codes.Audit) *Remittance {
	return p.ParseSegments(file, x12.Parse(raw), diags, audit)
}

// ParseSegments reads an already tokenized segment stream.
func (p *Parser) ParseSegments(file string, segs []x12.Segment, diags *diag.List, audit *codes.Audit) *Remittance {
	g := newGrammar(file, p.remapper, diags, audit)
	stats := x12.NewWalker(diags, p.logger).Walk(segs, g)
	g.out.Stats = stats

	p.logger.Debug().
		Str("file", file).
		Int("claims", len(g.out.Claims)).
		Int("provider_adjustments", len(g.out.ProviderAdjustments)).
		Int("diagnostics", diags.Len()).
		Msg("835 parsed")
	return g.out
}

// Records returns the claims as generic records.
func (r *Remittance) Records() []record.Record {
	out := make([]record.Record, len(r.Claims))
	for i, c := range r.Claims {
		out[i] = c
	}
	return out
}
