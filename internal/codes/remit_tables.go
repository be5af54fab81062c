package codes

// Table names used in mapping audits.
const (
	TableCARC          = "carc"
	TableRARC          = "rarc"
	TableGroup         = "cas_group"
	TableClaimStatus   = "claim_status"
	TableFiling        = "claim_filing"
	TableServiceType   = "service_type"
	TableBenefit       = "eligibility_benefit"
	TableInsuranceType = "insurance_type"
	TableCoverageLevel = "coverage_level"
	TableTimePeriod    = "time_period"
	TableRelationship  = "relationship"
	TableRejectReason  = "reject_reason"
)

// CARC is the standard Claim Adjustment Reason Code table.
var CARC = NewTable(TableCARC, "adjustment_reason", map[string]string{
	"1":   "Deductible amount",
	"2":   "Coinsurance amount",
	"3":   "Copay amount",
	"4":   "The procedure code is inconsistent with the modifier used",
	"5":   "The procedure code/type of bill is inconsistent with the place of service",
	"6":   "The procedure/revenue code is inconsistent with the patient's age",
	"11":  "The diagnosis is inconsistent with the procedure",
	"15":  "The authorization number is missing, invalid, or does not apply to the billed services or provider",
	"16":  "Claim/service lacks information or has submission/billing error(s)",
	"18":  "Exact duplicate claim/service",
	"22":  "This care may be covered by another payer per coordination of benefits",
	"23":  "The impact of prior payer(s) adjudication including payments and/or adjustments",
	"26":  "Expenses incurred prior to coverage",
	"27":  "Expenses incurred after coverage terminated",
	"29":  "The time limit for filing has expired",
	"31":  "Patient cannot be identified as our insured",
	"45":  "Charge exceeds fee schedule/maximum allowable",
	"50":  "These are non-covered services",
	"96":  "Non-covered charge(s)",
	"97":  "The benefit for this service is included in payment for another service",
	"109": "Claim/service not covered by this payer/contractor",
	"119": "Benefit maximum for this time period or occurrence has been reached",
	"151": "Payment adjusted because the payer deems the information submitted does not support this many/frequency of services",
	"167": "This (these) diagnosis(es) is (are) not covered",
	"170": "Payment is denied when performed/billed by this type of provider",
	"185": "The rendering provider is not eligible to perform the service billed",
	"197": "Precertification/authorization/notification absent",
	"204": "This service/equipment/drug is not covered under the patient's current benefit plan",
	"222": "Exceeds the facility's maximum length of stay or benefit limits",
	"242": "Services not provided by network/primary care providers",
	"253": "Sequestration - reduction in federal payment",
})

// RARC holds the remittance advice remark codes seen in LQ segments.
var RARC = NewTable(TableRARC, "remark", map[string]string{
	"M15":   "Separately billed services/tests have been bundled as they are considered components of the same procedure",
	"M20":   "Missing/incomplete/invalid HCPCS",
	"M51":   "Missing/incomplete/invalid procedure code(s)",
	"M76":   "Missing/incomplete/invalid diagnosis or condition",
	"M80":   "Not covered when performed during the same session/date as a previously processed service for the patient",
	"MA04":  "Secondary payment cannot be considered without the identity of or payment information from the primary payer",
	"MA130": "Your claim contains incomplete and/or invalid information, and no appeal rights are afforded",
	"N20":   "Service not payable with other service rendered on the same date",
	"N30":   "Patient ineligible for this service",
	"N54":   "Claim information is inconsistent with pre-certified/authorized services",
	"N115":  "This decision was based on a Local Coverage Determination (LCD)",
	"N130":  "Consult plan benefit documents/guidelines for information about restrictions for this service",
	"N179":  "Additional information has been requested from the member",
	"N290":  "Missing/incomplete/invalid rendering provider primary identifier",
	"N362":  "The number of Days or Units of Service exceeds our acceptable maximum",
	"N386":  "This decision was based on a National Coverage Determination (NCD)",
})

// GroupCodes are the CAS01 claim adjustment group codes.
var GroupCodes = NewTable(TableGroup, "adjustment_group", map[string]string{
	"CO": "Contractual Obligations",
	"PR": "Patient Responsibility",
	"OA": "Other Adjustments",
	"PI": "Payer Initiated Reductions",
	"CR": "Corrections and Reversals",
})

// ClaimStatus are the CLP02 claim status codes.
var ClaimStatus = NewTable(TableClaimStatus, "claim_status", map[string]string{
	"1":  "Processed as Primary",
	"2":  "Processed as Secondary",
	"3":  "Processed as Tertiary",
	"4":  "Denied",
	"19": "Processed as Primary, Forwarded to Additional Payer(s)",
	"20": "Processed as Secondary, Forwarded to Additional Payer(s)",
	"21": "Processed as Tertiary, Forwarded to Additional Payer(s)",
	"22": "Reversal of Previous Payment",
	"23": "Not Our Claim, Forwarded to Additional Payer(s)",
})

// ClaimFiling are the CLP06 / SBR09 claim filing indicator codes.
var ClaimFiling = NewTable(TableFiling, "plan_type", map[string]string{
	"11": "Other Non-Federal Programs",
	"12": "Preferred Provider Organization (PPO)",
	"13": "Point of Service (POS)",
	"14": "Exclusive Provider Organization (EPO)",
	"15": "Indemnity Insurance",
	"16": "Health Maintenance Organization (HMO) Medicare Risk",
	"17": "Dental Maintenance Organization",
	"AM": "Automobile Medical",
	"BL": "Blue Cross/Blue Shield",
	"CH": "Champus",
	"CI": "Commercial Insurance Co.",
	"DS": "Disability",
	"EP": "Exclusive Provider Organization",
	"GV": "Government",
	"HM": "Health Maintenance Organization",
	"IN": "Indemnity",
	"LM": "Liability Medical",
	"MA": "Medicare Part A",
	"MB": "Medicare Part B",
	"MC": "Medicaid",
	"OF": "Other Federal Program",
	"PP": "Preferred Provider Organization",
	"PS": "Point of Service",
	"TV": "Title V",
	"VA": "Veterans Affairs Plan",
	"WC": "Workers' Compensation Health Claim",
	"ZZ": "Mutually Defined",
})

// defaultNonStandard maps vendor CARC codes to standard ones.
var defaultNonStandard = map[string]Mapping{
	"N001": {Standard: "167", Description: "Medical necessity"},
	"N002": {Standard: "185", Description: "Provider not eligible"},
	"N003": {Standard: "197", Description: "Authorization"},
	"N004": {Standard: "29", Description: "Timely filing"},
	"N005": {Standard: "27", Description: "Coverage terminated"},
	"N006": {Standard: "18", Description: "Duplicate"},
	"N007": {Standard: "4", Description: "Modifier error"},
	"N008": {Standard: "97", Description: "Bundling"},
	"N009": {Standard: "1", Description: "Deductible"},
	"N010": {Standard: "222", Description: "Benefit limits"},
}

// planTypeCodes maps plan text to an X12 claim filing code. Order matters:
// the first keyword contained in the text wins.
var planTypeCodes = []struct {
	keyword string
	code    string
}{
	{"HMO", "HM"},
	{"PPO", "PP"},
	{"MEDICARE", "MA"},
	{"MEDICAID", "MC"},
	{"GOVERNMENT", "GV"},
	{"INDEMNITY", "IN"},
	{"EPO", "EP"},
	{"POS", "PS"},
}
