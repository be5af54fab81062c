package hl7etl

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/diag"
	"github.com/ehr/edi/internal/platform/hl7v2"
	"github.com/ehr/edi/internal/record"
)

// Sink receives each record standardised from a live feed together with the
// diagnostics raised while reading it.
type Sink func(rec *record.PatientEncounterRecord, diags []diag.Diagnostic)

// AckHandler standardises messages arriving over MLLP and acknowledges
// them: AA when clean, AE when segments were skipped, AR when no record
// could be built.
type AckHandler struct {
	parser *Parser
	sink   Sink
	now    func() time.Time
	logger zerolog.Logger
}

// NewAckHandler returns a handler feeding records to sink. sink may be nil.
func NewAckHandler(p *Parser, sink Sink, now func() time.Time, logger zerolog.Logger) *AckHandler {
	return &AckHandler{parser: p, sink: sink, now: now, logger: logger.With().Str("component", "hl7-ack").Logger()}
}

// HandleMessage implements hl7v2.Handler.
func (h *AckHandler) HandleMessage(msg *hl7v2.Message) *hl7v2.Message {
	source := "mllp:" + msg.ControlID
	diags := diag.NewList(source)
	audit := codes.NewAudit(source)

	rec, err := Standardize(msg, h.parser.DialectFor(msg), source, diags, audit)
	if err != nil {
		h.logger.Warn().Err(err).Str("control_id", msg.ControlID).Msg("message rejected")
		return hl7v2.GenerateACK(msg, hl7v2.AckReject, err.Error(), h.now())
	}

	if h.sink != nil {
		h.sink(rec, diags.Items())
	}

	for _, d := range diags.Items() {
		if d.Kind == diag.MalformedSegment {
			h.logger.Info().Str("control_id", msg.ControlID).
				Int("malformed", diags.Count(diag.MalformedSegment)).
				Msg("message accepted with errors")
			return hl7v2.GenerateACK(msg, hl7v2.AckError, d.Tag+": "+d.Message, h.now())
		}
	}
	return hl7v2.GenerateACK(msg, hl7v2.AckAccept, "", h.now())
}
