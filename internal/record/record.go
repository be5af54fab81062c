// Package record defines the domain records produced by the transaction
// parsers: claims (835 and 837), eligibility responses (271) and patient
// encounters (HL7 v2).
package record

import "github.com/ehr/edi/internal/codes"

// Kind names a record variant.
type Kind string

const (
	KindClaim       Kind = "claim"
	KindEligibility Kind = "eligibility"
	KindEncounter   Kind = "encounter"
)

// Record is implemented by ClaimRecord, EligibilityRecord and
// PatientEncounterRecord only.
type Record interface {
	Kind() Kind
	// SourceFile is the input the record was parsed from.
	SourceFile() string
	isRecord()
}

// Party is a payer, payee or provider named in a transaction.
type Party struct {
	Name    string        `json:"name,omitempty"`
	ID      string        `json:"id,omitempty"`
	NPI     string        `json:"npi,omitempty"`
	TaxID   string        `json:"tax_id,omitempty"`
	Address codes.Address `json:"address,omitempty"`
}

// IsZero reports whether nothing was recorded for the party.
func (p Party) IsZero() bool {
	return p.Name == "" && p.ID == "" && p.NPI == "" && p.TaxID == "" && p.Address == (codes.Address{})
}

// Person is a patient, subscriber or individual provider.
type Person struct {
	Last     string        `json:"last,omitempty"`
	First    string        `json:"first,omitempty"`
	Middle   string        `json:"middle,omitempty"`
	ID       string        `json:"id,omitempty"`
	DOB      string        `json:"dob,omitempty"`
	Gender   string        `json:"gender,omitempty"`
	Address  codes.Address `json:"address,omitempty"`
	Relation string        `json:"relationship,omitempty"`
}

// DisplayName renders "LAST, FIRST".
func (p Person) DisplayName() string {
	return codes.DisplayName(p.Last, p.First)
}

// Reference is a qualified identifier from a REF segment.
type Reference struct {
	Qualifier string `json:"qualifier"`
	Value     string `json:"value"`
}

// Lookup returns the value of the first reference with the given qualifier.
func Lookup(refs []Reference, qualifier string) string {
	for _, r := range refs {
		if r.Qualifier == qualifier {
			return r.Value
		}
	}
	return ""
}
