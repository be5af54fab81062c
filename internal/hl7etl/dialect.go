package hl7etl

import (
	"strings"

	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/platform/hl7v2"
)

// Dialect captures how one sending system formats the fields that differ
// between HL7 versions. A dialect is chosen once per source.
type Dialect interface {
	Name() string
	Version() string
	// PatientID reads the patient identifier from PID.
	PatientID(pid *hl7v2.Segment) string
	// Phone reads the home phone from PID-13 and normalizes it.
	Phone(pid *hl7v2.Segment) string
	// Timestamp renders a TS value as YYYY-MM-DD HH:MM:SS.
	Timestamp(raw string) string
	// PersonName splits an XPN field into upper-cased last and first names.
	PersonName(seg *hl7v2.Segment, field int) (last, first string)
}

// Known source systems.
const (
	SystemA = "system_a"
	SystemB = "system_b"
	SystemC = "system_c"
)

// base holds the behaviour shared by every dialect.
type base struct {
	name    string
	version string
}

func (b base) Name() string    { return b.name }
func (b base) Version() string { return b.version }

// PatientID prefers PID-3.1 and falls back to the external id in PID-2.
func (base) PatientID(pid *hl7v2.Segment) string {
	if id := pid.GetComponent(3, 1); id != "" {
		return id
	}
	return pid.GetComponent(2, 1)
}

func (base) Phone(pid *hl7v2.Segment) string {
	raw := pid.GetComponent(13, 1)
	if raw == "" {
		raw = pid.GetField(13)
	}
	return codes.NormalizePhone(raw)
}

func (base) Timestamp(raw string) string {
	return codes.NormalizeDateTime(raw)
}

func (base) PersonName(seg *hl7v2.Segment, field int) (string, string) {
	last, first := seg.GetComponent(field, 1), seg.GetComponent(field, 2)
	if last == "" && first == "" {
		return "", ""
	}
	if first == "" {
		// Free text such as "DOE, JOHN" or "JOHN DOE" in a single component.
		return codes.NormalizeName(last)
	}
	return strings.ToUpper(last), strings.ToUpper(first)
}

// systemA sends v2.3: identifiers often only in PID-2 and dates without
// time precision.
type systemA struct{ base }

// systemB sends v2.5.1: PID-13 repeats and timestamps carry fractional
// seconds and offsets.
type systemB struct{ base }

func (systemB) Phone(pid *hl7v2.Segment) string {
	rep := pid.GetRepeat(13, 1)
	if len(rep) == 0 {
		return ""
	}
	raw := strings.TrimSpace(rep[0])
	if raw == "" && len(rep) > 5 {
		// XTN with area code and number in components 6 and 7.
		raw = strings.TrimSpace(rep[5])
		if len(rep) > 6 {
			raw += strings.TrimSpace(rep[6])
		}
	}
	return codes.NormalizePhone(raw)
}

// systemC sends v2.4 with minute precision timestamps.
type systemC struct{ base }

var dialects = map[string]Dialect{
	SystemA: systemA{base{SystemA, "2.3"}},
	SystemB: systemB{base{SystemB, "2.5.1"}},
	SystemC: systemC{base{SystemC, "2.4"}},
}

// LookupDialect returns the dialect registered under name.
func LookupDialect(name string) (Dialect, bool) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// DialectForVersion picks the dialect whose HL7 version matches MSH-12.
// Unknown versions use fallback.
func DialectForVersion(version string, fallback Dialect) Dialect {
	switch v := strings.TrimSpace(version); {
	case v == "2.3" || strings.HasPrefix(v, "2.3."):
		return dialects[SystemA]
	case v == "2.4" || strings.HasPrefix(v, "2.4."):
		return dialects[SystemC]
	case strings.HasPrefix(v, "2.5"):
		return dialects[SystemB]
	}
	return fallback
}
