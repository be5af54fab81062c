package record

import (
	"fmt"
	"math"

	"github.com/ehr/edi/internal/codes"
)

// Claim statuses.
const (
	StatusProcessed = "Processed"
	StatusDenied    = "Denied"
	StatusSubmitted = "Submitted"
)

// BalanceTolerance is the rounding slack allowed when checking claim totals.
const BalanceTolerance = 0.01

// Adjustment is one (group, reason, amount) triplet from a CAS segment.
type Adjustment struct {
	Group            string  `json:"group"`
	GroupDescription string  `json:"group_description,omitempty"`
	Code             string  `json:"code"`
	OriginalCode     string  `json:"original_code,omitempty"`
	Description      string  `json:"description,omitempty"`
	Amount           float64 `json:"amount"`
	Quantity         string  `json:"quantity,omitempty"`
	Remapped         bool    `json:"remapped,omitempty"`
}

// Remark is an LQ remittance advice remark.
type Remark struct {
	Qualifier   string `json:"qualifier"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// Diagnosis is one coded diagnosis on an 837 claim.
type Diagnosis struct {
	Qualifier string `json:"qualifier"`
	Code      string `json:"code"`
	Valid     bool   `json:"valid"`
	Principal bool   `json:"principal,omitempty"`
}

// ServiceLine is an SVC (835) or SV1 (837) line.
type ServiceLine struct {
	Number             int          `json:"number"`
	ProcedureQualifier string       `json:"procedure_qualifier,omitempty"`
	ProcedureCode      string       `json:"procedure_code"`
	Modifiers          []string     `json:"modifiers,omitempty"`
	Description        string       `json:"description,omitempty"`
	Billed             float64      `json:"billed"`
	Paid               float64      `json:"paid"`
	Allowed            float64      `json:"allowed,omitempty"`
	Units              string       `json:"units,omitempty"`
	ServiceDate        string       `json:"service_date,omitempty"`
	DiagnosisPointers  []string     `json:"diagnosis_pointers,omitempty"`
	Adjustments        []Adjustment `json:"adjustments,omitempty"`
	Remarks            []Remark     `json:"remarks,omitempty"`
	References         []Reference  `json:"references,omitempty"`
}

// AdjustmentTotal sums the line's adjustment amounts.
func (l *ServiceLine) AdjustmentTotal() float64 {
	return sumAdjustments(l.Adjustments)
}

// ClaimRecord is a claim as paid (835) or as submitted (837).
type ClaimRecord struct {
	File        string `json:"file"`
	Transaction string `json:"transaction"`

	ClaimID           string  `json:"claim_id"`
	PayerClaimID      string  `json:"payer_claim_id,omitempty"`
	StatusCode        string  `json:"status_code,omitempty"`
	StatusDescription string  `json:"status_description,omitempty"`
	Status            string  `json:"status"`
	Billed            float64 `json:"billed"`
	Paid              float64 `json:"paid"`
	PatientResp       float64 `json:"patient_responsibility"`
	CoverageAmount    float64 `json:"coverage_amount,omitempty"`
	PlanTypeCode      string  `json:"plan_type_code,omitempty"`
	PlanType          string  `json:"plan_type,omitempty"`
	FacilityCode      string  `json:"facility_code,omitempty"`
	FrequencyCode     string  `json:"frequency_code,omitempty"`

	Payer     Party  `json:"payer"`
	Payee     Party  `json:"payee"`
	Patient   Person `json:"patient"`
	Insured   Person `json:"insured,omitempty"`
	Rendering Person `json:"rendering_provider,omitempty"`

	// 835 payment header.
	PaymentMethod  string  `json:"payment_method,omitempty"`
	PaymentAmount  float64 `json:"payment_amount,omitempty"`
	PaymentDate    string  `json:"payment_date,omitempty"`
	TraceNumber    string  `json:"trace_number,omitempty"`
	ProductionDate string  `json:"production_date,omitempty"`

	// 837 submission detail.
	Submitter       Party       `json:"submitter,omitempty"`
	Receiver        Party       `json:"receiver,omitempty"`
	BillingTaxonomy string      `json:"billing_taxonomy,omitempty"`
	PlaceOfService  string      `json:"place_of_service,omitempty"`
	SubmissionDate  string      `json:"submission_date,omitempty"`
	OnsetDate       string      `json:"onset_date,omitempty"`
	AdmissionDate   string      `json:"admission_date,omitempty"`
	Diagnoses       []Diagnosis `json:"diagnoses,omitempty"`
	Notes           []string    `json:"notes,omitempty"`

	ServiceFrom  string `json:"service_from,omitempty"`
	ServiceTo    string `json:"service_to,omitempty"`
	ReceivedDate string `json:"received_date,omitempty"`

	Adjustments []Adjustment  `json:"adjustments,omitempty"`
	Lines       []ServiceLine `json:"lines,omitempty"`
	References  []Reference   `json:"references,omitempty"`

	LineBilled      float64 `json:"line_billed"`
	LinePaid        float64 `json:"line_paid"`
	AdjustmentTotal float64 `json:"adjustment_total"`
}

func (*ClaimRecord) Kind() Kind { return KindClaim }

func (c *ClaimRecord) SourceFile() string { return c.File }

func (*ClaimRecord) isRecord() {}

// DeriveStatus applies the remittance rule: Denied when nothing was paid or
// the payer sent the explicit denial code 4, otherwise Processed.
func DeriveStatus(statusCode string, paid float64) string {
	if paid == 0 || statusCode == "4" {
		return StatusDenied
	}
	return StatusProcessed
}

// ComputeTotals aggregates line billed and paid amounts and every claim and
// line adjustment.
func (c *ClaimRecord) ComputeTotals() {
	var billed, paid float64
	adj := sumAdjustments(c.Adjustments)
	for i := range c.Lines {
		billed += c.Lines[i].Billed
		paid += c.Lines[i].Paid
		adj += c.Lines[i].AdjustmentTotal()
	}
	c.LineBilled = codes.Round2(billed)
	c.LinePaid = codes.Round2(paid)
	c.AdjustmentTotal = codes.Round2(adj)
}

// CheckBalance verifies billed >= paid + adjustments within tolerance.
// ComputeTotals must have run first.
func (c *ClaimRecord) CheckBalance() error {
	if c.Billed+BalanceTolerance < c.Paid+c.AdjustmentTotal {
		return fmt.Errorf("claim %s: billed %.2f is less than paid %.2f plus adjustments %.2f",
			c.ClaimID, c.Billed, c.Paid, c.AdjustmentTotal)
	}
	return nil
}

// FirstAdjustment returns the first claim or line adjustment, used by the
// denials view.
func (c *ClaimRecord) FirstAdjustment() (Adjustment, bool) {
	if len(c.Adjustments) > 0 {
		return c.Adjustments[0], true
	}
	for _, l := range c.Lines {
		if len(l.Adjustments) > 0 {
			return l.Adjustments[0], true
		}
	}
	return Adjustment{}, false
}

// FirstRemark returns the first line remark code.
func (c *ClaimRecord) FirstRemark() string {
	for _, l := range c.Lines {
		if len(l.Remarks) > 0 {
			return l.Remarks[0].Code
		}
	}
	return ""
}

func sumAdjustments(adjs []Adjustment) float64 {
	var total float64
	for _, a := range adjs {
		total += a.Amount
	}
	return math.Round(total*100) / 100
}
