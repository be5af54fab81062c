package hl7etl

import (
	"strings"

	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/record"
)

// Check lists data-quality problems on a standardised record. rawGender is
// PID-8 as sent, since the record only holds the normalised value.
func Check(r *record.PatientEncounterRecord, rawGender string) []record.QualityIssue {
	var issues []record.QualityIssue
	add := func(field, problem string) {
		issues = append(issues, record.QualityIssue{Field: field, Problem: problem})
	}

	if r.PatientID == "" {
		add("patient_id", "missing patient identifier")
	}
	if r.LastName == "" {
		add("last_name", "missing last name")
	}
	switch {
	case r.DOB == "":
		add("dob", "missing date of birth")
	case !codes.IsISODate(r.DOB):
		add("dob", "date of birth not in YYYY-MM-DD form: "+r.DOB)
	}
	if g := strings.ToUpper(strings.TrimSpace(rawGender)); g != "" && r.Gender == "U" && g != "U" && g != "UNKNOWN" {
		add("gender", "unrecognized gender value "+rawGender)
	}
	for _, dx := range r.Diagnoses {
		if !dx.Valid {
			add("diagnosis", "invalid ICD-10 code "+strings.TrimSpace(dx.Code))
		}
	}
	if r.MessageTime == "" {
		add("message_datetime", "missing message timestamp")
	}
	if r.HasVisit && (r.VisitType == "" || r.VisitType == "Unknown") {
		add("visit_type", "visit without a patient class")
	}
	return issues
}
