package codes

import (
	"sort"
	"strings"
)

// Mapping is one vendor-to-standard CARC translation.
type Mapping struct {
	Standard    string `json:"standard_code" yaml:"standard_code"`
	Description string `json:"description" yaml:"description"`
}

// Resolution is the outcome of resolving an adjustment reason code.
type Resolution struct {
	Entry
	// Remapped is set when a non-standard code was translated.
	Remapped bool `json:"remapped"`
	// StandardDescription is the CARC table text for Standard.
	StandardDescription string `json:"standardDescription,omitempty"`
}

// Remapper resolves adjustment reason codes against the standard CARC table
// and a vendor mapping. It is immutable once built.
type Remapper struct {
	nonStandard map[string]Mapping
}

// NewRemapper returns a remapper over the built-in vendor mapping with
// overlay entries replacing or extending it.
func NewRemapper(overlay map[string]Mapping) *Remapper {
	m := make(map[string]Mapping, len(defaultNonStandard)+len(overlay))
	for k, v := range defaultNonStandard {
		m[k] = v
	}
	for k, v := range overlay {
		k = strings.TrimSpace(k)
		if k == "" || strings.TrimSpace(v.Standard) == "" {
			continue
		}
		m[k] = Mapping{Standard: strings.TrimSpace(v.Standard), Description: strings.TrimSpace(v.Description)}
	}
	return &Remapper{nonStandard: m}
}

// DefaultRemapper uses only the built-in vendor mapping.
func DefaultRemapper() *Remapper {
	return NewRemapper(nil)
}

// Resolve maps code. Vendor codes become their standard equivalent, standard
// codes get their description, and anything else passes through with
// Mapped false.
func (r *Remapper) Resolve(code string) Resolution {
	code = strings.TrimSpace(code)
	if m, ok := r.nonStandard[code]; ok {
		return Resolution{
			Entry: Entry{
				Raw:         code,
				Standard:    m.Standard,
				Description: m.Description,
				Category:    "adjustment_reason",
				Mapped:      true,
			},
			Remapped:            true,
			StandardDescription: CARC.Describe(m.Standard, ""),
		}
	}
	e := CARC.Lookup(code)
	return Resolution{Entry: e, StandardDescription: e.Description}
}

// Standard returns only the standard code for code.
func (r *Remapper) Standard(code string) string {
	return r.Resolve(code).Standard
}

// Len returns the number of vendor mappings.
func (r *Remapper) Len() int {
	return len(r.nonStandard)
}

// Mappings returns a sorted copy of the vendor mapping.
func (r *Remapper) Mappings() []struct {
	Code string
	Mapping
} {
	keys := make([]string, 0, len(r.nonStandard))
	for k := range r.nonStandard {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]struct {
		Code string
		Mapping
	}, len(keys))
	for i, k := range keys {
		out[i].Code = k
		out[i].Mapping = r.nonStandard[k]
	}
	return out
}
