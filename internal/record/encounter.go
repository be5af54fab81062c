package record

import (
	"strings"

	"github.com/ehr/edi/internal/codes"
)

// EncounterDiagnosis is a DG1 entry.
type EncounterDiagnosis struct {
	Sequence    string `json:"sequence"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Date        string `json:"date,omitempty"`
	Valid       bool   `json:"valid"`
}

// Insurance is an IN1 entry.
type Insurance struct {
	PlanID         string `json:"plan_id,omitempty"`
	PlanType       string `json:"plan_type,omitempty"`
	PlanTypeCode   string `json:"plan_type_code,omitempty"`
	CompanyID      string `json:"company_id,omitempty"`
	PayerName      string `json:"payer_name,omitempty"`
	MemberID       string `json:"member_id,omitempty"`
	GroupNumber    string `json:"group_number,omitempty"`
	SubscriberName string `json:"subscriber_name,omitempty"`
	Relationship   string `json:"relationship"`
}

// Order is an OBR entry.
type Order struct {
	SetID                string `json:"set_id,omitempty"`
	PlacerOrder          string `json:"placer_order,omitempty"`
	FillerOrder          string `json:"filler_order,omitempty"`
	ProcedureCode        string `json:"procedure_code,omitempty"`
	ProcedureDescription string `json:"procedure_description,omitempty"`
	ObservationTime      string `json:"observation_datetime,omitempty"`
	ResultsTime          string `json:"results_datetime,omitempty"`
	Status               string `json:"status"`
}

// Observation is an OBX entry. OrderSetID links it to the OBR it followed.
type Observation struct {
	SetID       string `json:"set_id,omitempty"`
	OrderSetID  string `json:"order_set_id,omitempty"`
	ValueType   string `json:"value_type,omitempty"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
	Value       string `json:"value"`
	Units       string `json:"units,omitempty"`
	Range       string `json:"reference_range,omitempty"`
	Flag        string `json:"abnormal_flag"`
	Status      string `json:"status"`
}

// QualityIssue is a data-quality finding on a standardised record.
type QualityIssue struct {
	Field   string `json:"field"`
	Problem string `json:"problem"`
}

// PatientEncounterRecord is one standardised HL7 v2 message.
type PatientEncounterRecord struct {
	File          string `json:"file"`
	System        string `json:"system"`
	SystemVersion string `json:"system_version"`

	Facility    string `json:"facility"`
	FacilityRaw string `json:"facility_raw,omitempty"`
	MessageTime string `json:"message_datetime,omitempty"`
	MessageType string `json:"message_type,omitempty"`
	EventType   string `json:"event_type,omitempty"`
	ControlID   string `json:"control_id,omitempty"`
	Version     string `json:"hl7_version,omitempty"`

	PatientID string        `json:"patient_id"`
	LastName  string        `json:"last_name"`
	FirstName string        `json:"first_name"`
	FullName  string        `json:"full_name"`
	DOB       string        `json:"dob"`
	Gender    string        `json:"gender"`
	Address   codes.Address `json:"address"`
	Phone     string        `json:"phone,omitempty"`
	SSN       string        `json:"ssn,omitempty"`

	EncounterID       string `json:"encounter_id"`
	VisitType         string `json:"visit_type,omitempty"`
	Location          string `json:"location,omitempty"`
	AttendingName     string `json:"attending_name,omitempty"`
	AttendingNPI      string `json:"attending_npi,omitempty"`
	VisitNumber       string `json:"visit_number,omitempty"`
	ServicingFacility string `json:"servicing_facility,omitempty"`
	AdmitTime         string `json:"admit_datetime,omitempty"`
	DischargeTime     string `json:"discharge_datetime,omitempty"`
	HasVisit          bool   `json:"-"`

	Diagnoses    []EncounterDiagnosis `json:"diagnoses,omitempty"`
	Insurance    []Insurance          `json:"insurance,omitempty"`
	Orders       []Order              `json:"orders,omitempty"`
	Observations []Observation        `json:"observations,omitempty"`
	Issues       []QualityIssue       `json:"quality_issues,omitempty"`
}

func (*PatientEncounterRecord) Kind() Kind { return KindEncounter }

func (p *PatientEncounterRecord) SourceFile() string { return p.File }

func (*PatientEncounterRecord) isRecord() {}

// DedupKey is LAST|FIRST|DOB upper-cased. Records with no name and no DOB
// return "" and are never merged.
func (p *PatientEncounterRecord) DedupKey() string {
	last := strings.ToUpper(strings.TrimSpace(p.LastName))
	first := strings.ToUpper(strings.TrimSpace(p.FirstName))
	dob := strings.TrimSpace(p.DOB)
	if last == "" && first == "" && dob == "" {
		return ""
	}
	return last + "|" + first + "|" + dob
}

// FillFrom copies into p every blank scalar field that other has set, and
// appends other's list entries when p has none of that kind.
func (p *PatientEncounterRecord) FillFrom(other *PatientEncounterRecord) {
	fill := func(dst *string, src string) {
		if strings.TrimSpace(*dst) == "" && src != "" {
			*dst = src
		}
	}
	fill(&p.PatientID, other.PatientID)
	fill(&p.FullName, other.FullName)
	fill(&p.Gender, other.Gender)
	fill(&p.Phone, other.Phone)
	fill(&p.SSN, other.SSN)
	fill(&p.Address.Street, other.Address.Street)
	fill(&p.Address.City, other.Address.City)
	fill(&p.Address.State, other.Address.State)
	fill(&p.Address.Zip, other.Address.Zip)
	fill(&p.VisitType, other.VisitType)
	fill(&p.Location, other.Location)
	fill(&p.AttendingName, other.AttendingName)
	fill(&p.AttendingNPI, other.AttendingNPI)
	fill(&p.VisitNumber, other.VisitNumber)
	fill(&p.ServicingFacility, other.ServicingFacility)
	fill(&p.AdmitTime, other.AdmitTime)
	fill(&p.DischargeTime, other.DischargeTime)
	if p.Gender == "U" && other.Gender != "" && other.Gender != "U" {
		p.Gender = other.Gender
	}
	if len(p.Diagnoses) == 0 {
		p.Diagnoses = append(p.Diagnoses, other.Diagnoses...)
	}
	if len(p.Insurance) == 0 {
		p.Insurance = append(p.Insurance, other.Insurance...)
	}
	if len(p.Orders) == 0 {
		p.Orders = append(p.Orders, other.Orders...)
	}
	if len(p.Observations) == 0 {
		p.Observations = append(p.Observations, other.Observations...)
	}
}
