package pipeline

import (
	"github.com/ehr/edi/internal/record"
)

// DuplicateEntry records one encounter dropped because an earlier record
// had the same patient key.
type DuplicateEntry struct {
	Key               string `json:"key"`
	File              string `json:"file"`
	System            string `json:"system"`
	PatientID         string `json:"patient_id"`
	OriginalFile      string `json:"original_file"`
	OriginalSystem    string `json:"original_system"`
	OriginalPatientID string `json:"original_patient_id"`
}

// Deduplicator merges patient encounters on (LAST, FIRST, DOB). The first
// record seen for a key is kept and later ones only fill its blank fields.
// It is not safe for concurrent use; the runner applies it during the
// sequential merge.
type Deduplicator struct {
	seen    map[string]*record.PatientEncounterRecord
	entries []DuplicateEntry
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]*record.PatientEncounterRecord)}
}

// Add reports whether rec is new. Records with an empty key are always new.
func (d *Deduplicator) Add(rec *record.PatientEncounterRecord) bool {
	key := rec.DedupKey()
	if key == "" {
		return true
	}
	first, ok := d.seen[key]
	if !ok {
		d.seen[key] = rec
		return true
	}
	first.FillFrom(rec)
	d.entries = append(d.entries, DuplicateEntry{
		Key:               key,
		File:              rec.File,
		System:            rec.System,
		PatientID:         rec.PatientID,
		OriginalFile:      first.File,
		OriginalSystem:    first.System,
		OriginalPatientID: first.PatientID,
	})
	return false
}

// Duplicates returns the dropped records in the order they were seen.
func (d *Deduplicator) Duplicates() []DuplicateEntry {
	out := make([]DuplicateEntry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Count is the number of redundant records dropped.
func (d *Deduplicator) Count() int {
	return len(d.entries)
}
