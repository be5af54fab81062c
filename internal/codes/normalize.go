package codes

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	tzSuffix   = regexp.MustCompile(`[+-]\d{4}$`)
	slashDate  = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	icd10      = regexp.MustCompile(`^[A-Z]\d{2}\.?[A-Z0-9]{0,7}$`)
	isoDate    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	nonStdCARC = regexp.MustCompile(`^N\d{3,4}$`)
)

func digitsOnly(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// NormalizeDate converts YYYYMMDD[HHMM[SS]], MM/DD/YYYY or ISO input to
// YYYY-MM-DD. A trailing ±HHMM offset and fractional seconds are dropped.
// Input that does not form a calendar date is returned trimmed.
func NormalizeDate(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	var digits string
	if slashDate.MatchString(trimmed) {
		parts := strings.Split(trimmed, "/")
		digits = parts[2] + parts[0] + parts[1]
	} else {
		cleaned := tzSuffix.ReplaceAllString(trimmed, "")
		if i := strings.IndexByte(cleaned, '.'); i >= 0 {
			cleaned = cleaned[:i]
		}
		digits = digitsOnly(cleaned)
	}
	if len(digits) < 8 {
		return trimmed
	}
	t, err := time.Parse("20060102", digits[:8])
	if err != nil {
		return trimmed
	}
	return t.Format("2006-01-02")
}

// NormalizeDateTime converts a 14, 12 or 8 digit timestamp to
// YYYY-MM-DD HH:MM:SS. Shorter input is returned trimmed.
func NormalizeDateTime(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	cleaned := tzSuffix.ReplaceAllString(trimmed, "")
	if i := strings.IndexByte(cleaned, '.'); i >= 0 {
		cleaned = cleaned[:i]
	}
	d := digitsOnly(cleaned)
	switch {
	case len(d) >= 14:
		return d[0:4] + "-" + d[4:6] + "-" + d[6:8] + " " + d[8:10] + ":" + d[10:12] + ":" + d[12:14]
	case len(d) >= 12:
		return d[0:4] + "-" + d[4:6] + "-" + d[6:8] + " " + d[8:10] + ":" + d[10:12] + ":00"
	case len(d) >= 8:
		return d[0:4] + "-" + d[4:6] + "-" + d[6:8] + " 00:00:00"
	}
	return trimmed
}

// IsISODate reports whether s is already YYYY-MM-DD.
func IsISODate(s string) bool {
	return isoDate.MatchString(s)
}

// DisplayDate renders an X12 CCYYMMDD date as MM/DD/YYYY; anything else is
// returned as is.
func DisplayDate(yyyymmdd string) string {
	if len(yyyymmdd) != 8 {
		return yyyymmdd
	}
	return yyyymmdd[4:6] + "/" + yyyymmdd[6:8] + "/" + yyyymmdd[:4]
}

// ParseCCYYMMDD parses an X12 date element.
func ParseCCYYMMDD(s string) (time.Time, bool) {
	t, err := time.Parse("20060102", strings.TrimSpace(s))
	return t, err == nil
}

// NormalizePhone formats a 10-digit number (after dropping a leading
// country code 1 from 11 digits) as (AAA) PPP-SSSS. Other input is
// returned trimmed.
func NormalizePhone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	d := digitsOnly(trimmed)
	if len(d) == 11 && d[0] == '1' {
		d = d[1:]
	}
	if len(d) != 10 {
		return trimmed
	}
	return "(" + d[0:3] + ") " + d[3:6] + "-" + d[6:10]
}

// NormalizeName splits LAST^FIRST, "LAST, FIRST" or "FIRST LAST" into
// upper-cased last and first names.
func NormalizeName(raw string) (last, first string) {
	if strings.TrimSpace(raw) == "" {
		return "", ""
	}
	if strings.Contains(raw, "^") {
		parts := strings.Split(raw, "^")
		last = strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			first = strings.TrimSpace(parts[1])
		}
		return strings.ToUpper(last), strings.ToUpper(first)
	}
	if i := strings.IndexByte(raw, ','); i >= 0 {
		return strings.ToUpper(strings.TrimSpace(raw[:i])), strings.ToUpper(strings.TrimSpace(raw[i+1:]))
	}
	parts := strings.Fields(raw)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return strings.ToUpper(parts[0]), ""
	}
	return strings.ToUpper(parts[len(parts)-1]), strings.ToUpper(parts[0])
}

// DisplayName renders "LAST, FIRST", or just LAST when first is empty.
func DisplayName(last, first string) string {
	if first == "" {
		return last
	}
	return last + ", " + first
}

// Address is a normalised postal address.
type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

// NormalizeAddress title-cases street and city, upper-cases the state and
// cuts the ZIP to five digits when it has at least five.
func NormalizeAddress(street, city, state, zip string) Address {
	// Casers keep state between calls and cannot be shared.
	title := cases.Title(language.English)
	a := Address{
		Street: title.String(strings.TrimSpace(street)),
		City:   title.String(strings.TrimSpace(city)),
		State:  strings.ToUpper(strings.TrimSpace(state)),
	}
	var z strings.Builder
	for _, r := range strings.TrimSpace(zip) {
		if (r >= '0' && r <= '9') || r == '-' {
			z.WriteRune(r)
		}
	}
	a.Zip = z.String()
	if flat := strings.ReplaceAll(a.Zip, "-", ""); len(flat) >= 5 {
		a.Zip = flat[:5]
	}
	return a
}

// NormalizeGender maps M/MALE and F/FEMALE; everything else is U.
func NormalizeGender(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "M", "MALE":
		return "M"
	case "F", "FEMALE":
		return "F"
	}
	return "U"
}

// NormalizeSSN formats nine digits as XXX-XX-XXXX.
func NormalizeSSN(raw string) string {
	d := digitsOnly(raw)
	if len(d) != 9 {
		return strings.TrimSpace(raw)
	}
	return d[0:3] + "-" + d[3:5] + "-" + d[5:9]
}

// ValidateICD10 checks the shape of an ICD-10 code: a letter, two digits,
// an optional dot and up to seven alphanumerics. The cleaned (trimmed,
// upper-cased) code is returned whether or not it is valid.
func ValidateICD10(code string) (bool, string) {
	cleaned := strings.ToUpper(strings.TrimSpace(code))
	if cleaned == "" {
		return false, ""
	}
	return icd10.MatchString(cleaned), cleaned
}

// IsNonStandard reports whether a CARC looks like a vendor code (N + 3-4
// digits).
func IsNonStandard(code string) bool {
	return nonStdCARC.MatchString(strings.TrimSpace(code))
}

// ParseMoney parses an amount such as "$ 1,145.00". Empty input is zero.
// Unparseable or negative amounts return 0 and false. Values are rounded
// to cents.
func ParseMoney(s string) (float64, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if cleaned == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v < 0 {
		return 0, false
	}
	return Round2(v), true
}

// Round2 rounds to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
