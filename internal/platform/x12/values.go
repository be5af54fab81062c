package x12

import (
	"strconv"
	"strings"

	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/diag"
)

// Amount reads element i as a non-negative money value. Empty elements are
// zero. Unparseable or negative values become zero and are reported as
// InvalidDomainValue.
func Amount(seg Segment, i int, diags *diag.List) float64 {
	raw := seg.Elem(i)
	v, ok := codes.ParseMoney(raw)
	if !ok {
		diags.Add(diag.InvalidDomainValue, seg.Index, seg.Tag(),
			"%s%02d: invalid amount %q, using 0.00", seg.Tag(), i, raw)
	}
	return v
}

// SignedAmount reads element i as a money value that may be negative.
func SignedAmount(seg Segment, i int, diags *diag.List) float64 {
	raw := seg.Elem(i)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		diags.Add(diag.InvalidDomainValue, seg.Index, seg.Tag(),
			"%s%02d: invalid amount %q, using 0.00", seg.Tag(), i, raw)
		return 0
	}
	return codes.Round2(v)
}

// Date reads element i as a CCYYMMDD date, or the first date of a
// CCYYMMDD-CCYYMMDD range. Invalid dates are reported and returned empty.
func Date(seg Segment, i int, diags *diag.List) string {
	raw := seg.Elem(i)
	if raw == "" {
		return ""
	}
	if j := strings.IndexByte(raw, '-'); j > 0 {
		raw = raw[:j]
	}
	if _, ok := codes.ParseCCYYMMDD(raw); !ok {
		diags.Add(diag.InvalidDomainValue, seg.Index, seg.Tag(),
			"%s%02d: invalid date %q", seg.Tag(), i, seg.Elem(i))
		return ""
	}
	return raw
}

// DateRange reads a CCYYMMDD-CCYYMMDD element. A single date is returned as
// both ends.
func DateRange(seg Segment, i int, diags *diag.List) (from, to string) {
	raw := seg.Elem(i)
	j := strings.IndexByte(raw, '-')
	if j < 0 {
		d := Date(seg, i, diags)
		return d, d
	}
	from, to = raw[:j], raw[j+1:]
	if _, ok := codes.ParseCCYYMMDD(from); !ok {
		from = ""
	}
	if _, ok := codes.ParseCCYYMMDD(to); !ok {
		to = ""
	}
	if from == "" || to == "" {
		diags.Add(diag.InvalidDomainValue, seg.Index, seg.Tag(),
			"%s%02d: invalid date range %q", seg.Tag(), i, raw)
	}
	return from, to
}
