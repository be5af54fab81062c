package codes

import "strings"

// PatientClass maps PV1-2.
var PatientClass = NewTable("patient_class", "visit_type", map[string]string{
	"I": "Inpatient",
	"O": "Outpatient",
	"E": "Emergency",
	"P": "Preadmit",
	"R": "Recurring",
	"B": "Obstetrics",
})

// DiagnosisType maps DG1-6.
var DiagnosisType = NewTable("diagnosis_type", "diagnosis_type", map[string]string{
	"A": "Admitting",
	"W": "Working",
	"F": "Final",
})

// InsuredRelationship maps IN1-17.
var InsuredRelationship = NewTable("insured_relationship", "relationship", map[string]string{
	"01":  "Self",
	"SEL": "Self",
	"18":  "Self",
	"02":  "Spouse",
	"SPO": "Spouse",
	"03":  "Child",
	"CHD": "Child",
	"04":  "Other",
	"OTH": "Other",
})

// OrderStatus maps OBR-25.
var OrderStatus = NewTable("order_status", "result_status", map[string]string{
	"F": "Final",
	"P": "Preliminary",
	"C": "Corrected",
	"R": "Results entered",
	"I": "Pending",
	"O": "Order received",
})

// AbnormalFlags maps OBX-8.
var AbnormalFlags = NewTable("abnormal_flag", "abnormal_flag", map[string]string{
	"N":  "Normal",
	"H":  "High",
	"L":  "Low",
	"HH": "Critical High",
	"LL": "Critical Low",
	"A":  "Abnormal",
	"AA": "Critical Abnormal",
	">":  "Above High",
	"<":  "Below Low",
})

// ResultStatus maps OBX-11.
var ResultStatus = NewTable("result_status", "result_status", map[string]string{
	"F": "Final",
	"P": "Preliminary",
	"C": "Corrected",
	"D": "Deleted",
})

type facility struct {
	key  string
	name string
}

// facilities lists sending-facility spellings in lookup order.
var facilities = []facility{
	{"METRO_HEALTH", "Metro Health Medical Center"},
	{"METROHEALTHMC", "Metro Health Medical Center"},
	{"METRO HEALTH MEDICAL CENTER", "Metro Health Medical Center"},
	{"COMMUNITY_GEN", "Community General Hospital"},
	{"COMMUNITYGENHOSP", "Community General Hospital"},
	{"COMMUNITY GENERAL HOSPITAL", "Community General Hospital"},
	{"VALLEY_MED", "Valley Medical Associates"},
	{"VALLEYMEDASSOC", "Valley Medical Associates"},
	{"VALLEY MEDICAL ASSOCIATES", "Valley Medical Associates"},
	{"REGIONAL_HC", "Regional Healthcare System"},
	{"REGIONALHCS", "Regional Healthcare System"},
	{"REGIONAL HEALTHCARE SYSTEM", "Regional Healthcare System"},
	{"UNIV_MED", "University Medical Partners"},
	{"UNIVMEDPARTNERS", "University Medical Partners"},
	{"UNIVERSITY MEDICAL PARTNERS", "University Medical Partners"},
	{"SUMMIT_HEALTH", "Summit Health Network"},
	{"SUMMITHEALTHNET", "Summit Health Network"},
	{"SUMMIT HEALTH NETWORK", "Summit Health Network"},
	{"PACIFIC_CARE", "Pacific Care Medical Group"},
	{"PACIFICCAREMG", "Pacific Care Medical Group"},
	{"PACIFIC CARE MEDICAL GROUP", "Pacific Care Medical Group"},
	{"ATLANTIC_HP", "Atlantic Health Partners"},
	{"ATLANTICHEALTHP", "Atlantic Health Partners"},
	{"ATLANTIC HEALTH PARTNERS", "Atlantic Health Partners"},
	{"MIDWEST_CLIN", "Midwest Clinical Services"},
	{"MIDWESTCLINSVCS", "Midwest Clinical Services"},
	{"MIDWEST CLINICAL SERVICES", "Midwest Clinical Services"},
	{"NATIONAL_HA", "National Health Alliance"},
	{"NATIONALHLTHAL", "National Health Alliance"},
	{"NATIONAL HEALTH ALLIANCE", "National Health Alliance"},
	{"HERITAGE_HS", "Heritage Health System"},
	{"HERITAGEHEALTHSYS", "Heritage Health System"},
	{"HERITAGE HEALTH SYSTEM", "Heritage Health System"},
	{"PREMIER_MED", "Premier Medical Associates"},
	{"PREMIERMEDASSOC", "Premier Medical Associates"},
	{"PREMIER MEDICAL ASSOCIATES", "Premier Medical Associates"},
	{"ADVANCED_CARE", "Advanced Care Network"},
	{"ADVANCEDCARENET", "Advanced Care Network"},
	{"ADVANCED CARE NETWORK", "Advanced Care Network"},
	{"INTEGRATED_HS", "Integrated Health Services"},
	{"INTEGRATEDHSVCS", "Integrated Health Services"},
	{"INTEGRATED HEALTH SERVICES", "Integrated Health Services"},
	{"PINNACLE_HCG", "Pinnacle Healthcare Group"},
	{"PINNACLEHCG", "Pinnacle Healthcare Group"},
	{"PINNACLE HEALTHCARE GROUP", "Pinnacle Healthcare Group"},
}

// FacilityName standardises a sending facility: an exact (case-insensitive)
// match first, then the first entry where either name contains the other.
// Unknown names are returned trimmed; empty input yields
// "Unknown Facility (<system>)". The second result reports a table hit.
func FacilityName(raw, system string) (string, bool) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if key == "" {
		return "Unknown Facility (" + system + ")", false
	}
	for _, f := range facilities {
		if f.key == key {
			return f.name, true
		}
	}
	for _, f := range facilities {
		if strings.Contains(f.key, key) || strings.Contains(key, f.key) {
			return f.name, true
		}
	}
	return strings.TrimSpace(raw), false
}

// PlanTypeCode converts free-text plan names ("Blue PPO Plus", "MEDICAID")
// to an X12 claim filing code, ZZ when nothing matches.
func PlanTypeCode(text string) string {
	upper := strings.ToUpper(text)
	for _, p := range planTypeCodes {
		if strings.Contains(upper, p.keyword) {
			return p.code
		}
	}
	return "ZZ"
}
