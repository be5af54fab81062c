// Package hl7etl standardises HL7 v2 messages from several sending systems
// into patient encounter records.
package hl7etl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/diag"
	"github.com/ehr/edi/internal/platform/hl7v2"
	"github.com/ehr/edi/internal/record"
)

var (
	// ErrEmptyInput is returned when a source holds no HL7 segments.
	ErrEmptyInput = errors.New("hl7etl: input is empty")

	// ErrNoMessages is returned when no chunk of a source parsed as a message.
	ErrNoMessages = errors.New("hl7etl: no parseable HL7 messages")

	// ErrNoPatient is returned by Standardize for messages without PID.
	ErrNoPatient = errors.New("hl7etl: message has no PID segment")
)

// TableFacility names sending facilities in mapping audits.
const TableFacility = "facility"

// ignored segments carry nothing the encounter record keeps.
var ignored = map[string]bool{
	"EVN": true, "NK1": true, "AL1": true, "ORC": true, "NTE": true,
	"PD1": true, "PV2": true, "GT1": true, "IN2": true, "ROL": true,
	"SFT": true, "MRG": true,
}

// Batch is everything read from one HL7 source.
type Batch struct {
	File    string                           `json:"file"`
	System  string                           `json:"system"`
	Records []*record.PatientEncounterRecord `json:"records"`
}

// AsRecords returns the encounters as generic records.
func (b *Batch) AsRecords() []record.Record {
	out := make([]record.Record, len(b.Records))
	for i, r := range b.Records {
		out[i] = r
	}
	return out
}

// Parser standardises HL7 sources. With no system configured, each message
// picks its dialect from MSH-12.
type Parser struct {
	dialect Dialect
	logger  zerolog.Logger
}

// generic is used when neither a system nor a known version is available.
var generic Dialect = base{name: "unknown"}

// NewParser returns a parser for system. An empty or unknown system falls
// back to version detection.
func NewParser(system string, logger zerolog.Logger) *Parser {
	d, _ := LookupDialect(system)
	return &Parser{dialect: d, logger: logger.With().Str("component", "hl7etl").Logger()}
}

// DialectFor returns the dialect used for msg.
func (p *Parser) DialectFor(msg *hl7v2.Message) Dialect {
	if p.dialect != nil {
		return p.dialect
	}
	version := msg.Version
	if i := strings.IndexByte(version, msg.Delimiters.Component); i >= 0 {
		version = version[:i]
	}
	return DialectForVersion(version, generic)
}

// Parse splits raw into messages and standardises each one. Messages that
// fail to parse or lack a PID are reported and skipped; the error is only
// set when nothing in raw was usable.
func (p *Parser) Parse(file string, raw []byte, diags *diag.List, audit *codes.Audit) (*Batch, error) {
	chunks := hl7v2.SplitMessages(raw)
	if len(chunks) == 0 {
		return nil, ErrEmptyInput
	}

	b := &Batch{File: file}
	if p.dialect != nil {
		b.System = p.dialect.Name()
	}
	offset, parsed := 0, 0
	for _, chunk := range chunks {
		n := strings.Count(string(chunk), "\r") + 1
		msg, err := hl7v2.Parse(chunk)
		if err != nil {
			diags.Add(diag.MalformedSegment, offset, "MSH", "%v", err)
			offset += n
			continue
		}
		parsed++

		d := p.DialectFor(msg)
		s := newStandardizer(file, d, msg.Delimiters, diags, audit, offset)
		rec, err := s.run(msg)
		if err != nil {
			diags.Add(diag.MalformedSegment, offset, "MSH", "message %s: %v", msg.ControlID, err)
		} else {
			b.Records = append(b.Records, rec)
		}
		if b.System == "" {
			b.System = d.Name()
		}
		offset += len(msg.Segments)
	}
	if parsed == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoMessages, file)
	}

	p.logger.Debug().
		Str("file", file).
		Str("system", b.System).
		Int("records", len(b.Records)).
		Int("diagnostics", diags.Len()).
		Msg("hl7 standardised")
	return b, nil
}

// Standardize converts a single parsed message.
func Standardize(msg *hl7v2.Message, d Dialect, file string, diags *diag.List, audit *codes.Audit) (*record.PatientEncounterRecord, error) {
	return newStandardizer(file, d, msg.Delimiters, diags, audit, 0).run(msg)
}

// NumberEncounters gives every record without an encounter id the next
// ENC%06d value starting at next, and returns the following number.
func NumberEncounters(recs []*record.PatientEncounterRecord, next int) int {
	for _, r := range recs {
		if r.EncounterID == "" {
			r.EncounterID = fmt.Sprintf("ENC%06d", next)
			next++
		}
	}
	return next
}

type standardizer struct {
	file   string
	d      Dialect
	delims hl7v2.Delimiters
	diags  *diag.List
	audit  *codes.Audit
	offset int

	rec        *record.PatientEncounterRecord
	dgCount    int
	orderSetID string
	rawGender  string
}

func newStandardizer(file string, d Dialect, delims hl7v2.Delimiters, diags *diag.List, audit *codes.Audit, offset int) *standardizer {
	return &standardizer{file: file, d: d, delims: delims, diags: diags, audit: audit, offset: offset}
}

func (s *standardizer) run(msg *hl7v2.Message) (*record.PatientEncounterRecord, error) {
	if msg.GetSegment("PID") == nil {
		return nil, ErrNoPatient
	}
	s.rec = &record.PatientEncounterRecord{
		File:          s.file,
		System:        s.d.Name(),
		SystemVersion: s.d.Version(),
	}
	for i := range msg.Segments {
		seg := &msg.Segments[i]
		switch seg.Name {
		case "MSH":
			s.msh(seg, msg)
		case "PID":
			s.pid(seg)
		case "PV1":
			s.pv1(seg)
		case "DG1":
			s.dg1(seg)
		case "IN1":
			s.in1(seg)
		case "OBR":
			s.obr(seg)
		case "OBX":
			s.obx(seg)
		default:
			if !ignored[seg.Name] {
				s.diags.Add(diag.MalformedSegment, s.idx(seg), seg.Name, "unrecognized segment")
			}
		}
	}

	switch {
	case s.rec.VisitNumber != "":
		s.rec.EncounterID = s.rec.VisitNumber
	case s.rec.ControlID != "":
		s.rec.EncounterID = s.rec.ControlID
	}
	s.rec.Issues = Check(s.rec, s.rawGender)
	return s.rec, nil
}

func (s *standardizer) idx(seg *hl7v2.Segment) int {
	return s.offset + seg.Index
}

func (s *standardizer) text(v string) string {
	return strings.TrimSpace(hl7v2.Unescape(v, s.delims))
}

// describe resolves raw against t. Empty input gives def; unknown codes are
// audited and kept as sent.
func (s *standardizer) describe(t *codes.Table, raw, def string, seg *hl7v2.Segment) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	e := t.Lookup(strings.ToUpper(raw))
	if !e.Mapped {
		s.audit.RecordUnmapped(t.Name(), s.idx(seg), raw)
		return raw
	}
	return e.Description
}

func (s *standardizer) msh(seg *hl7v2.Segment, msg *hl7v2.Message) {
	raw := seg.GetComponent(4, 1)
	name, ok := codes.FacilityName(raw, s.d.Name())
	if !ok && raw != "" {
		s.audit.RecordUnmapped(TableFacility, s.idx(seg), raw)
	}
	s.rec.Facility = name
	s.rec.FacilityRaw = raw
	s.rec.MessageTime = s.d.Timestamp(msg.RawTimestamp)
	s.rec.MessageType = seg.GetComponent(9, 1)
	s.rec.EventType = seg.GetComponent(9, 2)
	s.rec.ControlID = msg.ControlID
	s.rec.Version = seg.GetComponent(12, 1)
}

func (s *standardizer) pid(seg *hl7v2.Segment) {
	r := s.rec
	r.PatientID = s.d.PatientID(seg)
	last, first := s.d.PersonName(seg, 5)
	r.LastName, r.FirstName = s.text(last), s.text(first)
	r.FullName = codes.DisplayName(r.LastName, r.FirstName)
	r.DOB = codes.NormalizeDate(seg.GetComponent(7, 1))

	s.rawGender = seg.GetField(8)
	r.Gender = codes.NormalizeGender(s.rawGender)

	street := s.text(seg.GetComponent(11, 1))
	if other := s.text(seg.GetComponent(11, 2)); other != "" {
		street += " " + other
	}
	r.Address = codes.NormalizeAddress(street,
		s.text(seg.GetComponent(11, 3)), seg.GetComponent(11, 4), seg.GetComponent(11, 5))
	r.Phone = s.d.Phone(seg)
	r.SSN = codes.NormalizeSSN(seg.GetField(19))
}

func (s *standardizer) pv1(seg *hl7v2.Segment) {
	r := s.rec
	r.HasVisit = true
	r.VisitType = s.describe(codes.PatientClass, seg.GetComponent(2, 1), "Unknown", seg)

	var loc []string
	for j := 1; j <= 4; j++ {
		if c := seg.GetComponent(3, j); c != "" {
			loc = append(loc, c)
		}
	}
	r.Location = strings.Join(loc, "-")

	r.AttendingNPI = seg.GetComponent(7, 1)
	r.AttendingName = codes.DisplayName(
		strings.ToUpper(s.text(seg.GetComponent(7, 2))),
		strings.ToUpper(s.text(seg.GetComponent(7, 3))))
	r.VisitNumber = seg.GetComponent(19, 1)
	r.ServicingFacility = seg.GetComponent(39, 1)
	r.AdmitTime = codes.NormalizeDate(seg.GetComponent(44, 1))
	r.DischargeTime = codes.NormalizeDate(seg.GetComponent(45, 1))
}

func (s *standardizer) dg1(seg *hl7v2.Segment) {
	s.dgCount++
	dx := record.EncounterDiagnosis{Sequence: seg.GetField(1)}
	if dx.Sequence == "" {
		dx.Sequence = strconv.Itoa(s.dgCount)
	}
	dx.Valid, dx.Code = codes.ValidateICD10(seg.GetComponent(3, 1))
	dx.Description = s.text(seg.GetComponent(3, 2))
	if dx.Description == "" {
		dx.Description = s.text(seg.GetField(4))
	}
	dx.Date = codes.NormalizeDate(seg.GetComponent(5, 1))
	dx.Type = s.describe(codes.DiagnosisType, seg.GetField(6), "Working", seg)
	s.rec.Diagnoses = append(s.rec.Diagnoses, dx)
}

func (s *standardizer) in1(seg *hl7v2.Segment) {
	ins := record.Insurance{
		PlanID:      seg.GetComponent(2, 1),
		CompanyID:   seg.GetComponent(3, 1),
		GroupNumber: seg.GetField(8),
	}
	ins.PlanType = s.text(seg.GetComponent(2, 2))
	if ins.PlanType == "" {
		ins.PlanType = s.text(seg.GetField(15))
	}
	if ins.PlanType != "" {
		ins.PlanTypeCode = codes.PlanTypeCode(ins.PlanType)
	}
	ins.PayerName = s.text(seg.GetComponent(4, 1))
	if ins.PayerName == "" {
		ins.PayerName = s.text(seg.GetField(4))
	}
	for _, id := range []string{seg.GetField(36), seg.GetComponent(2, 1), seg.GetField(49)} {
		if id != "" {
			ins.MemberID = id
			break
		}
	}
	last, first := s.d.PersonName(seg, 16)
	ins.SubscriberName = codes.DisplayName(s.text(last), s.text(first))
	ins.Relationship = s.describe(codes.InsuredRelationship, seg.GetComponent(17, 1), "Self", seg)
	s.rec.Insurance = append(s.rec.Insurance, ins)
}

func (s *standardizer) obr(seg *hl7v2.Segment) {
	o := record.Order{
		SetID:                seg.GetField(1),
		PlacerOrder:          seg.GetComponent(2, 1),
		FillerOrder:          seg.GetComponent(3, 1),
		ProcedureCode:        seg.GetComponent(4, 1),
		ProcedureDescription: s.text(seg.GetComponent(4, 2)),
		ObservationTime:      s.d.Timestamp(seg.GetComponent(7, 1)),
		ResultsTime:          s.d.Timestamp(seg.GetComponent(22, 1)),
		Status:               s.describe(codes.OrderStatus, seg.GetField(25), "Final", seg),
	}
	s.orderSetID = o.SetID
	if s.orderSetID == "" {
		s.orderSetID = strconv.Itoa(len(s.rec.Orders) + 1)
	}
	s.rec.Orders = append(s.rec.Orders, o)
}

func (s *standardizer) obx(seg *hl7v2.Segment) {
	o := record.Observation{
		SetID:       seg.GetField(1),
		OrderSetID:  s.orderSetID,
		ValueType:   seg.GetField(2),
		Code:        seg.GetComponent(3, 1),
		Description: s.text(seg.GetComponent(3, 2)),
		Value:       s.text(seg.GetField(5)),
		Units:       seg.GetComponent(6, 1),
		Range:       s.text(seg.GetField(7)),
		Flag:        s.describe(codes.AbnormalFlags, seg.GetField(8), "Normal", seg),
		Status:      s.describe(codes.ResultStatus, seg.GetField(11), "Final", seg),
	}
	if o.Units == "" {
		o.Units = seg.GetField(6)
	}
	s.rec.Observations = append(s.rec.Observations, o)
}
