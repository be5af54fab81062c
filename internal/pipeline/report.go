package pipeline

import (
	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/diag"
	"github.com/ehr/edi/internal/record"
	"github.com/ehr/edi/internal/remit"
)

// TaggedRecord carries a record's kind next to it in serialized output.
type TaggedRecord struct {
	Kind record.Kind   `json:"kind"`
	Data record.Record `json:"data"`
}

// FileSummary is the per-file line of a report.
type FileSummary struct {
	File        string `json:"file"`
	Kind        Kind   `json:"kind"`
	System      string `json:"system,omitempty"`
	Records     int    `json:"records"`
	Diagnostics int    `json:"diagnostics"`
	Error       string `json:"error,omitempty"`
}

// Report is the serialized form of a Result written by the CLI and
// returned by the API.
type Report struct {
	Records             []TaggedRecord             `json:"records"`
	Diagnostics         []diag.Diagnostic          `json:"diagnostics"`
	MappingUsage        []codes.MappingUsage       `json:"mappingUsage"`
	Unmapped            []codes.UnmappedCode       `json:"unmapped"`
	CodeSummary         []codes.CodeCount          `json:"codeSummary,omitempty"`
	Duplicates          []DuplicateEntry           `json:"duplicates,omitempty"`
	ProviderAdjustments []remit.ProviderAdjustment `json:"providerAdjustments,omitempty"`
	Rejections          []record.Rejection         `json:"rejections,omitempty"`
	DiagnosticCounts    map[diag.Kind]int          `json:"diagnosticCounts,omitempty"`
	Files               []FileSummary              `json:"files"`
}

// Report builds the serialized view of r.
func (r *Result) Report() *Report {
	out := &Report{
		Records:             make([]TaggedRecord, 0, len(r.Records)),
		Diagnostics:         r.Diagnostics,
		MappingUsage:        r.MappingUsage,
		Unmapped:            r.Unmapped,
		CodeSummary:         r.CodeSummary,
		Duplicates:          r.Duplicates,
		ProviderAdjustments: r.ProviderAdjustments,
		Rejections:          r.Rejections,
		DiagnosticCounts:    diag.CountByKind(r.Diagnostics),
		Files:               make([]FileSummary, 0, len(r.Files)),
	}
	for _, rec := range r.Records {
		out.Records = append(out.Records, TaggedRecord{Kind: rec.Kind(), Data: rec})
	}
	for _, f := range r.Files {
		s := FileSummary{
			File:        f.File,
			Kind:        f.Kind,
			System:      f.System,
			Records:     len(f.Records),
			Diagnostics: len(f.Diagnostics),
		}
		if f.Err != nil {
			s.Error = f.Err.Error()
		}
		out.Files = append(out.Files, s)
	}
	return out
}
