// Package eob reads printed Explanation of Benefits text and converts it to
// 835 remittance transactions.
package eob

import (
	"errors"
	"strings"

	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/diag"
)

// ErrNotEOB is returned when text holds none of the EOB section headers.
var ErrNotEOB = errors.New("eob: no EOB sections found")

// ServiceLine is one row of the SERVICE DETAILS table.
type ServiceLine struct {
	Number      string   `json:"line"`
	CPT         string   `json:"cpt"`
	Description string   `json:"description,omitempty"`
	Billed      float64  `json:"billed"`
	Allowed     float64  `json:"allowed"`
	Deductible  float64  `json:"deductible"`
	Copay       float64  `json:"copay"`
	AdjCodes    []string `json:"adj_codes,omitempty"`
	AdjAmount   float64  `json:"adj_amount"`
	Paid        float64  `json:"paid"`
}

// Totals is the TOTALS block.
type Totals struct {
	Billed                float64 `json:"billed"`
	Allowed               float64 `json:"allowed"`
	Deductible            float64 `json:"deductible"`
	Copay                 float64 `json:"copay"`
	Adjustment            float64 `json:"adjustment"`
	Paid                  float64 `json:"paid"`
	PatientResponsibility float64 `json:"patient_responsibility"`
}

// CodeText is a code with its printed explanation.
type CodeText struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// EOB is one parsed explanation of benefits. Dates are kept as printed
// (MM/DD/YYYY).
type EOB struct {
	PayerName string `json:"payer_name"`
	PayerID   string `json:"payer_id"`
	PlanType  string `json:"plan_type,omitempty"`
	Date      string `json:"date"`
	Number    string `json:"eob_number"`
	TaxID     string `json:"tax_id,omitempty"`

	PatientName    string `json:"patient_name"`
	PatientDOB     string `json:"patient_dob,omitempty"`
	MemberID       string `json:"member_id,omitempty"`
	Group          string `json:"group,omitempty"`
	PatientAccount string `json:"patient_account,omitempty"`
	Relationship   string `json:"relationship,omitempty"`

	ProviderName   string `json:"provider_name"`
	NPI            string `json:"npi"`
	ProviderStreet string `json:"provider_street,omitempty"`
	ProviderCity   string `json:"provider_city,omitempty"`
	ProviderState  string `json:"provider_state,omitempty"`
	ProviderZip    string `json:"provider_zip,omitempty"`

	ClaimNumber    string `json:"claim_number"`
	ReceivedDate   string `json:"received_date,omitempty"`
	ServiceFrom    string `json:"service_from,omitempty"`
	ServiceTo      string `json:"service_to,omitempty"`
	PlaceOfService string `json:"place_of_service,omitempty"`
	ClaimStatus    string `json:"claim_status,omitempty"`

	Lines           []ServiceLine `json:"service_lines"`
	Totals          Totals        `json:"totals"`
	AdjustmentCodes []CodeText    `json:"adjustment_reason_codes,omitempty"`
	Remarks         []CodeText    `json:"remarks,omitempty"`
}

// Parse reads EOB text. Problems are returned as diagnostics; when the text
// is not an EOB at all the EOB is nil and a single file-level diagnostic is
// returned.
func Parse(text string) (*EOB, []diag.Diagnostic) {
	diags := diag.NewList("")
	e, err := Read(text, diags)
	if err != nil {
		diags.AddFile(diag.FileLevelFailure, "%v", err)
		return nil, diags.Items()
	}
	return e, diags.Items()
}

// Read parses EOB text, attributing diagnostics to diags. Line numbers are
// used as segment positions.
func Read(text string, diags *diag.List) (*EOB, error) {
	doc := Tokenize(text)
	if len(doc.Sections) == 0 {
		return nil, ErrNotEOB
	}

	r := &reader{eob: &EOB{}, diags: diags}
	// Generators print the payer block either under the title or before it.
	r.header(doc.Preamble)
	for _, s := range doc.Sections {
		switch s.Name {
		case SectionHeader:
			r.header(s.Lines)
		case SectionPatient:
			r.patient(s.Lines)
		case SectionProvider:
			r.provider(s.Lines)
		case SectionClaim:
			r.claim(s.Lines)
		case SectionService:
			r.services(s.Lines)
		case SectionTotals:
			r.totals(s.Lines)
		case SectionAdjustment:
			r.eob.AdjustmentCodes = append(r.eob.AdjustmentCodes, r.codeList(s.Lines)...)
		case SectionRemarks:
			r.eob.Remarks = append(r.eob.Remarks, r.codeList(s.Lines)...)
		}
	}
	r.check()
	return r.eob, nil
}

type reader struct {
	eob   *EOB
	diags *diag.List
}

// keyValues assigns the values of known keys on each line.
func (r *reader) keyValues(lines []Line, fields map[string]*string) {
	for _, l := range lines {
		for _, kv := range splitPairs(l.Text) {
			if dst, ok := fields[kv[0]]; ok && kv[0] != "" {
				*dst = kv[1]
			}
		}
	}
}

func (r *reader) header(lines []Line) {
	e := r.eob
	r.keyValues(lines, map[string]*string{
		"PAYER":      &e.PayerName,
		"PAYER ID":   &e.PayerID,
		"PLAN TYPE":  &e.PlanType,
		"DATE":       &e.Date,
		"EOB NUMBER": &e.Number,
		"TAX ID":     &e.TaxID,
	})
}

func (r *reader) patient(lines []Line) {
	e := r.eob
	r.keyValues(lines, map[string]*string{
		"PATIENT NAME":    &e.PatientName,
		"DATE OF BIRTH":   &e.PatientDOB,
		"MEMBER ID":       &e.MemberID,
		"GROUP":           &e.Group,
		"PATIENT ACCOUNT": &e.PatientAccount,
		"RELATIONSHIP":    &e.Relationship,
	})
}

func (r *reader) provider(lines []Line) {
	e := r.eob
	fields := map[string]*string{
		"PROVIDER NAME":    &e.ProviderName,
		"NPI":              &e.NPI,
		"PROVIDER ADDRESS": &e.ProviderStreet,
	}
	for _, l := range lines {
		if pairs := splitPairs(l.Text); len(pairs) > 0 && pairs[0][0] != "" {
			r.keyValues([]Line{l}, fields)
			continue
		}
		// City, ST ZIP follows the street line.
		if e.ProviderStreet == "" || e.ProviderCity != "" || !r.cityStateZip(l.Text) {
			r.diags.Add(diag.MalformedSegment, l.Number, SectionProvider, "unrecognized provider line %q", l.Text)
		}
	}
}

// cityStateZip reads "City, ST 12345[-6789]".
func (r *reader) cityStateZip(s string) bool {
	i := strings.LastIndexByte(s, ',')
	if i <= 0 {
		return false
	}
	parts := strings.Fields(s[i+1:])
	if len(parts) != 2 || len(parts[0]) != 2 {
		return false
	}
	r.eob.ProviderCity = strings.TrimSpace(s[:i])
	r.eob.ProviderState = strings.ToUpper(parts[0])
	r.eob.ProviderZip = parts[1]
	return true
}

func (r *reader) claim(lines []Line) {
	e := r.eob
	r.keyValues(lines, map[string]*string{
		"CLAIM NUMBER":     &e.ClaimNumber,
		"RECEIVED DATE":    &e.ReceivedDate,
		"SERVICE FROM":     &e.ServiceFrom,
		"SERVICE TO":       &e.ServiceTo,
		"PLACE OF SERVICE": &e.PlaceOfService,
		"CLAIM STATUS":     &e.ClaimStatus,
	})
}

func (r *reader) totals(lines []Line) {
	t := &r.eob.Totals
	targets := map[string]*float64{
		"TOTAL BILLED":           &t.Billed,
		"TOTAL ALLOWED":          &t.Allowed,
		"TOTAL DEDUCTIBLE":       &t.Deductible,
		"TOTAL COPAY":            &t.Copay,
		"TOTAL ADJUSTMENT":       &t.Adjustment,
		"TOTAL PAID":             &t.Paid,
		"PATIENT RESPONSIBILITY": &t.PatientResponsibility,
	}
	for _, l := range lines {
		i := strings.IndexByte(l.Text, ':')
		if i < 0 {
			continue
		}
		label := strings.ToUpper(strings.TrimSpace(l.Text[:i]))
		dst, ok := targets[label]
		if !ok {
			continue
		}
		v, ok := codes.ParseMoney(l.Text[i+1:])
		if !ok {
			r.diags.Add(diag.InvalidDomainValue, l.Number, SectionTotals, "%s: invalid amount %q",
				label, strings.TrimSpace(l.Text[i+1:]))
		}
		*dst = v
	}
}

func (r *reader) codeList(lines []Line) []CodeText {
	var out []CodeText
	for _, l := range lines {
		code, text, ok := codeText(l.Text)
		if !ok {
			continue
		}
		out = append(out, CodeText{Code: code, Text: text})
	}
	return out
}

// check compares the printed totals with the service lines.
func (r *reader) check() {
	e := r.eob
	if e.ClaimNumber == "" {
		r.diags.AddFile(diag.InvalidDomainValue, "EOB has no claim number")
	}
	if len(e.Lines) == 0 {
		return
	}
	var billed, paid float64
	for _, l := range e.Lines {
		billed += l.Billed
		paid += l.Paid
	}
	if d := codes.Round2(billed - e.Totals.Billed); d > 0.01 || d < -0.01 {
		r.diags.AddFile(diag.InvalidDomainValue, "line billed %.2f does not match total billed %.2f",
			codes.Round2(billed), e.Totals.Billed)
	}
	if d := codes.Round2(paid - e.Totals.Paid); d > 0.01 || d < -0.01 {
		r.diags.AddFile(diag.InvalidDomainValue, "line paid %.2f does not match total paid %.2f",
			codes.Round2(paid), e.Totals.Paid)
	}
}
