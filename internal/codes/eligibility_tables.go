package codes

// ServiceTypes are the EB03 service type codes.
var ServiceTypes = NewTable(TableServiceType, "service_type", map[string]string{
	"1":  "Medical Care",
	"2":  "Surgical",
	"3":  "Consultation",
	"4":  "Diagnostic X-Ray",
	"5":  "Diagnostic Lab",
	"6":  "Radiation Therapy",
	"7":  "Anesthesia",
	"8":  "Surgical Assistance",
	"12": "Durable Medical Equipment",
	"14": "Renal Supplies In The Home",
	"23": "Diagnostic Dental",
	"24": "Periodontics",
	"25": "Prosthodontics",
	"26": "Oral Surgery",
	"27": "Orthodontics",
	"30": "Health Benefit Plan Coverage",
	"33": "Chiropractic",
	"35": "Dental Care",
	"37": "Optometry",
	"38": "Eye Exam",
	"41": "Optometry/Vision",
	"42": "Home Health Care",
	"45": "Hospice",
	"47": "Hospital",
	"48": "Hospital Inpatient",
	"50": "Hospital Outpatient",
	"51": "Hospital Emergency",
	"52": "Hospital Emergency Medical",
	"53": "Hospital Ambulatory Surgical",
	"54": "Long Term Care",
	"56": "Medically Related Transportation",
	"60": "General Benefits",
	"61": "In-vitro Fertilization",
	"62": "MRI/CAT Scan",
	"63": "Donor Procedures",
	"65": "Newborn Care",
	"67": "Smoking Cessation",
	"68": "Well Baby Care",
	"69": "Maternity",
	"70": "Transplant",
	"71": "Audiology Exam",
	"72": "Inhalation Therapy",
	"73": "Diagnostic Medical",
	"76": "Dialysis",
	"82": "Chemotherapy",
	"83": "Radiation Therapy (Duplicate)",
	"84": "Physical Therapy",
	"85": "Occupational Therapy",
	"86": "Speech Therapy",
	"88": "Pharmacy",
	"89": "Free Standing Prescription Drug",
	"90": "Mail Order Prescription Drug",
	"91": "Brand Name Prescription Drug",
	"92": "Generic Prescription Drug",
	"93": "Podiatry",
	"94": "Podiatry - Office Visits",
	"96": "Professional (Physician) Visit - Office",
	"98": "Professional (Physician) Visit - Inpatient",
	"99": "Professional (Physician) Visit - Outpatient",
	"A4": "Psychiatric",
	"A6": "Psychotherapy",
	"A7": "Psychiatric - Inpatient",
	"A8": "Psychiatric - Outpatient",
	"AB": "Optometry",
	"AE": "Physical Medicine",
	"AF": "Speech Therapy (Duplicate)",
	"AG": "Skilled Nursing Care",
	"AJ": "Alcoholism",
	"AK": "Drug Addiction",
	"AL": "Vision",
	"BB": "Partial Hospitalization (Psychiatric)",
	"UC": "Urgent Care",
})

// BenefitCodes are the EB01 eligibility or benefit information codes.
var BenefitCodes = NewTable(TableBenefit, "benefit", map[string]string{
	"1":  "Active",
	"2":  "Active - Full Risk Capitation",
	"3":  "Active - Services Capitated",
	"4":  "Active - Services Capitated to Primary Care Physician",
	"5":  "Active - Pending Investigation",
	"6":  "Inactive",
	"7":  "Inactive - Pending Eligibility Update",
	"8":  "Inactive - Pending Investigation",
	"A":  "Co-Insurance",
	"B":  "Co-Payment",
	"C":  "Deductible",
	"D":  "Benefit Description",
	"E":  "Exclusions",
	"F":  "Limitations",
	"G":  "Out of Pocket (Stop Loss)",
	"H":  "Unlimited",
	"I":  "Non-Covered",
	"J":  "Cost Containment",
	"K":  "Reserve",
	"L":  "Primary Care Provider",
	"M":  "Pre-existing Condition",
	"MC": "Managed Care Coordinator",
	"N":  "Services Restricted to Following Provider",
	"O":  "Not Deemed a Medical Necessity",
	"P":  "Benefit Disclaimer",
	"Q":  "Second Surgical Opinion Required",
	"R":  "Other or Additional Payor",
	"S":  "Prior Year(s) History",
	"T":  "Card(s) Reported Lost/Stolen",
	"U":  "Contact Following Entity for Information",
	"V":  "Cannot Process",
	"W":  "Other Source of Data",
	"X":  "Health Care Facility",
	"Y":  "Spend Down",
	"CB": "Coverage Basis",
})

// InsuranceTypes are the EB04 / SBR09 insurance type codes.
var InsuranceTypes = NewTable(TableInsuranceType, "insurance_type", map[string]string{
	"12": "Medicare Secondary Working Aged Beneficiary",
	"13": "Medicare Secondary End-Stage Renal Disease",
	"14": "Medicare Secondary, No-fault Insurance",
	"15": "Medicare Secondary Workers Compensation",
	"16": "Medicare Secondary Public Health Service",
	"41": "Medicare Secondary Black Lung",
	"42": "Medicare Secondary Veterans Administration",
	"43": "Medicare Secondary Disabled Beneficiary Under 65",
	"47": "Medicare Secondary, Other Liability Insurance",
	"AP": "Auto Insurance Policy",
	"C1": "Commercial",
	"CO": "Consolidated Omnibus Budget Reconciliation Act (COBRA)",
	"GP": "Group Policy",
	"HM": "Health Maintenance Organization (HMO)",
	"HN": "Health Maintenance Organization (HMO) - Medicare Risk",
	"IP": "Individual Policy",
	"MA": "Medicare Part A",
	"MB": "Medicare Part B",
	"MC": "Medicaid",
	"MP": "Medicare Primary",
	"OT": "Other",
	"PP": "Preferred Provider Organization (PPO)",
	"SP": "Supplemental Policy",
})

// CoverageLevels are the EB02 coverage level codes.
var CoverageLevels = NewTable(TableCoverageLevel, "coverage_level", map[string]string{
	"CHD": "Children Only",
	"DEP": "Dependents Only",
	"ECH": "Employee and Children",
	"EMP": "Employee Only",
	"ESP": "Employee and Spouse",
	"FAM": "Family",
	"IND": "Individual",
	"SPC": "Spouse and Children",
	"SPO": "Spouse Only",
})

// TimePeriods are the EB06 time period qualifiers.
var TimePeriods = NewTable(TableTimePeriod, "time_period", map[string]string{
	"6":  "Hour",
	"7":  "Day",
	"13": "24 Hours",
	"21": "Years",
	"22": "Service Year",
	"23": "Calendar Year",
	"24": "Year to Date",
	"25": "Contract",
	"26": "Episode",
	"27": "Visit",
	"28": "Outlier",
	"29": "Remaining",
	"30": "Exceeded",
	"31": "Not Exceeded",
	"32": "Lifetime",
	"33": "Lifetime Remaining",
	"34": "Month",
	"35": "Week",
	"36": "Admission",
})

// Relationships are the INS02 individual relationship codes.
var Relationships = NewTable(TableRelationship, "relationship", map[string]string{
	"18": "Self",
	"01": "Spouse",
	"19": "Child",
	"20": "Employee",
	"21": "Unknown",
	"34": "Other Adult",
	"39": "Organ Donor",
	"40": "Cadaver Donor",
	"53": "Life Partner",
	"G8": "Other Relationship",
})

// RejectReasons are the AAA03 request validation reject reason codes.
var RejectReasons = NewTable(TableRejectReason, "reject_reason", map[string]string{
	"15": "Required Application Data Missing",
	"41": "Authorization/Access Restrictions",
	"42": "Unable to Respond at Current Time",
	"43": "Invalid/Missing Provider Identification",
	"44": "Invalid/Missing Provider Name",
	"45": "Invalid/Missing Provider Specialty",
	"47": "Invalid/Missing Provider State",
	"48": "Invalid/Missing Referring Provider Identification Number",
	"49": "Provider is Not Primary Care Physician",
	"51": "Provider Not on File",
	"52": "Service Dates Not Within Provider Plan Enrollment",
	"56": "Inappropriate Date",
	"57": "Invalid/Missing Date(s) of Service",
	"58": "Invalid/Missing Date-of-Birth",
	"62": "Date of Service Not Within Allowable Inquiry Period",
	"63": "Date of Service in Future",
	"64": "Invalid/Missing Patient ID",
	"65": "Invalid/Missing Patient Name",
	"67": "Patient Not Found",
	"71": "Patient Birth Date Does Not Match That for the Patient on the Database",
	"72": "Invalid/Missing Subscriber/Insured ID",
	"73": "Invalid/Missing Subscriber/Insured Name",
	"75": "Subscriber/Insured Not Found",
	"76": "Duplicate Subscriber/Insured ID Number",
	"78": "Subscriber/Insured Not in Group/Plan Identified",
})

// FollowUpActions are the AAA04 follow-up action codes.
var FollowUpActions = NewTable("follow_up_action", "follow_up_action", map[string]string{
	"C": "Please Correct and Resubmit",
	"N": "Resubmission Not Allowed",
	"P": "Please Resubmit Original Transaction",
	"R": "Resubmission Allowed",
	"S": "Do Not Resubmit; Inquiry Initiated to a Third Party",
	"W": "Please Wait 30 Days and Resubmit",
	"X": "Please Wait 10 Days and Resubmit",
	"Y": "Do Not Resubmit; We Will Hand Deliver",
})

// planTypeShort are display names for insurance type codes.
var planTypeShort = map[string]string{
	"HM": "HMO", "HN": "HMO-Medicare", "PP": "PPO", "MA": "Medicare A",
	"MB": "Medicare B", "MP": "Medicare", "MC": "Medicaid", "C1": "Commercial",
	"GP": "Group", "IP": "Individual", "CO": "COBRA", "SP": "Supplement",
	"OT": "Other",
}

// PlanTypeName returns the display name of an insurance type code: the short
// name when one exists, then the full description, then the code itself.
func PlanTypeName(code string) string {
	if v, ok := planTypeShort[code]; ok {
		return v
	}
	return InsuranceTypes.Describe(code, code)
}
