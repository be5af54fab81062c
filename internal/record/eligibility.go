package record

// Coverage statuses.
const (
	CoverageActive     = "Active"
	CoverageInactive   = "Inactive"
	CoverageTerminated = "Terminated"
)

// Benefit is one EB segment carrying a service type.
type Benefit struct {
	InfoCode        string  `json:"info_code"`
	Info            string  `json:"info"`
	CoverageLevel   string  `json:"coverage_level,omitempty"`
	ServiceTypeCode string  `json:"service_type_code"`
	ServiceType     string  `json:"service_type"`
	InsuranceType   string  `json:"insurance_type,omitempty"`
	Amount          float64 `json:"amount"`
	Percent         int     `json:"percent,omitempty"`
	TimePeriod      string  `json:"time_period,omitempty"`
	InNetwork       bool    `json:"in_network"`
}

// PreauthService is a service the payer requires authorization for.
type PreauthService struct {
	ServiceTypeCode string `json:"service_type_code"`
	ServiceType     string `json:"service_type"`
	CoverageLevel   string `json:"coverage_level,omitempty"`
}

// Rejection is an AAA request validation error.
type Rejection struct {
	Valid    string `json:"valid"`
	Reason   string `json:"reason"`
	FollowUp string `json:"follow_up,omitempty"`
}

// Alert is a front-desk coverage warning.
type Alert struct {
	Type        string `json:"alert_type"`
	Description string `json:"alert_description"`
	Action      string `json:"action_required"`
}

// Provider is the information receiver of a 271.
type Provider struct {
	Name          string `json:"name,omitempty"`
	NPI           string `json:"npi,omitempty"`
	NetworkStatus string `json:"network_status"`
	Participating string `json:"participating"`
	Taxonomy      string `json:"taxonomy,omitempty"`
}

// EligibilityRecord is one subscriber loop of a 271 response (or 270
// inquiry, which carries no benefits).
type EligibilityRecord struct {
	File        string `json:"file"`
	Transaction string `json:"transaction"`

	Payer    Party    `json:"payer"`
	Provider Provider `json:"provider"`

	Subscriber       Person `json:"subscriber"`
	Name             string `json:"patient_name"`
	MemberID         string `json:"member_id"`
	DOB              string `json:"dob,omitempty"`
	DOBDisplay       string `json:"dob_formatted,omitempty"`
	Relationship     string `json:"relationship,omitempty"`
	RelationshipCode string `json:"relationship_code,omitempty"`
	TraceNumber      string `json:"trace_number,omitempty"`

	GroupNumber  string `json:"group_number,omitempty"`
	GroupName    string `json:"group_name,omitempty"`
	PlanTypeCode string `json:"plan_type_code,omitempty"`
	PlanType     string `json:"plan_type,omitempty"`

	EffectiveDate    string `json:"effective_date,omitempty"`
	EffectiveDisplay string `json:"effective_date_formatted,omitempty"`
	TermDate         string `json:"term_date,omitempty"`
	TermDisplay      string `json:"term_date_formatted,omitempty"`

	CoverageStatus string `json:"coverage_status"`
	// ActiveSeen and InactiveSeen record EB01 status codes as they arrive.
	ActiveSeen   bool `json:"-"`
	InactiveSeen bool `json:"-"`

	Deductible                float64 `json:"deductible"`
	DeductibleRemaining       float64 `json:"deductible_remaining"`
	FamilyDeductible          float64 `json:"family_deductible"`
	FamilyDeductibleRemaining float64 `json:"family_deductible_remaining"`
	OOPMax                    float64 `json:"oop_max"`
	OOPRemaining              float64 `json:"oop_remaining"`
	LifetimeMax               float64 `json:"lifetime_max"`

	Copay             float64            `json:"copay"`
	CopayKeys         []string           `json:"-"`
	Copays            map[string]float64 `json:"copays,omitempty"`
	CopaysOON         map[string]float64 `json:"copays_oon,omitempty"`
	CoinsurancePct    int                `json:"coinsurance_pct"`
	CoinsurancePctOON int                `json:"coinsurance_pct_oon"`
	CoinsuranceIn     map[string]int     `json:"coinsurance_in,omitempty"`
	CoinsuranceOON    map[string]int     `json:"coinsurance_oon,omitempty"`

	Benefits        []Benefit        `json:"services,omitempty"`
	Preauth         []PreauthService `json:"preauth_services,omitempty"`
	Messages        []string         `json:"messages,omitempty"`
	PreauthMessages []string         `json:"preauth_messages,omitempty"`
	Rejections      []Rejection      `json:"rejections,omitempty"`
	Alerts          []Alert          `json:"alerts,omitempty"`
}

func (*EligibilityRecord) Kind() Kind { return KindEligibility }

func (e *EligibilityRecord) SourceFile() string { return e.File }

func (*EligibilityRecord) isRecord() {}

// NewEligibilityRecord returns a record with the provider defaults the
// payer omits when it has no network data.
func NewEligibilityRecord(file, transaction string) *EligibilityRecord {
	return &EligibilityRecord{
		File:        file,
		Transaction: transaction,
		Provider:    Provider{NetworkStatus: "Unknown", Participating: "Unknown"},
	}
}

// SetCopay stores an in-network copay keyed by service, keeping first-seen
// key order for the default copay selection.
func (e *EligibilityRecord) SetCopay(key string, amount float64) {
	if e.Copays == nil {
		e.Copays = make(map[string]float64)
	}
	if _, ok := e.Copays[key]; !ok {
		e.CopayKeys = append(e.CopayKeys, key)
	}
	e.Copays[key] = amount
}
