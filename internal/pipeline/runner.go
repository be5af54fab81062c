// Package pipeline runs the parsers over a batch of input files. Files are
// parsed in parallel with no shared mutable state; results are then merged
// sequentially in input order, which is where patient deduplication and
// encounter numbering happen.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ehr/edi/internal/claim"
	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/diag"
	"github.com/ehr/edi/internal/eligibility"
	"github.com/ehr/edi/internal/eob"
	"github.com/ehr/edi/internal/hl7etl"
	"github.com/ehr/edi/internal/record"
	"github.com/ehr/edi/internal/remit"
)

// DefaultWorkers is used when Options.Workers is not positive.
const DefaultWorkers = 4

// Options configures a Runner.
type Options struct {
	Workers int
	// Remapper translates vendor adjustment codes. Nil uses the built-in
	// mapping.
	Remapper *codes.Remapper
	// Now is the reference time for coverage and generated 835 headers.
	// Zero means the wall clock at construction.
	Now time.Time
	// DefaultSystem is the HL7 dialect for sources whose system is not
	// known from their path.
	DefaultSystem string
	Logger        zerolog.Logger
}

// FileResult is the outcome of parsing one source.
type FileResult struct {
	File   string `json:"file"`
	Kind   Kind   `json:"kind"`
	System string `json:"system,omitempty"`

	Records             []record.Record            `json:"-"`
	ProviderAdjustments []remit.ProviderAdjustment `json:"provider_adjustments,omitempty"`
	Rejections          []record.Rejection         `json:"rejections,omitempty"`
	Diagnostics         []diag.Diagnostic          `json:"-"`
	EOB                 *eob.EOB                   `json:"-"`
	// Generated is the 835 produced from an EOB source.
	Generated string       `json:"-"`
	Audit     *codes.Audit `json:"-"`
	Err       error        `json:"-"`
}

// Result is a merged batch.
type Result struct {
	Records             []record.Record            `json:"records"`
	Diagnostics         []diag.Diagnostic          `json:"diagnostics"`
	MappingUsage        []codes.MappingUsage       `json:"mappingUsage"`
	Unmapped            []codes.UnmappedCode       `json:"unmapped"`
	CodeSummary         []codes.CodeCount          `json:"codeSummary,omitempty"`
	Duplicates          []DuplicateEntry           `json:"duplicates,omitempty"`
	ProviderAdjustments []remit.ProviderAdjustment `json:"providerAdjustments,omitempty"`
	Rejections          []record.Rejection         `json:"rejections,omitempty"`
	Errors              []diag.FileError           `json:"-"`
	Files               []*FileResult              `json:"files"`
}

// Claims returns the claim records of the batch.
func (r *Result) Claims() []*record.ClaimRecord {
	var out []*record.ClaimRecord
	for _, rec := range r.Records {
		if c, ok := rec.(*record.ClaimRecord); ok {
			out = append(out, c)
		}
	}
	return out
}

// Runner parses batches. It is safe for concurrent use.
type Runner struct {
	workers       int
	remapper      *codes.Remapper
	now           time.Time
	defaultSystem string
	logger        zerolog.Logger
	root          zerolog.Logger

	remit       *remit.Parser
	claims      *claim.Parser
	eligibility *eligibility.Parser
}

func NewRunner(opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Remapper == nil {
		opts.Remapper = codes.DefaultRemapper()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	logger := opts.Logger.With().Str("component", "pipeline").Logger()
	return &Runner{
		workers:       opts.Workers,
		remapper:      opts.Remapper,
		now:           opts.Now,
		defaultSystem: opts.DefaultSystem,
		logger:        logger,
		root:          opts.Logger,
		remit:         remit.NewParser(opts.Remapper, opts.Logger),
		claims:        claim.NewParser(opts.Logger),
		eligibility:   eligibility.NewParser(opts.Now, opts.Logger),
	}
}

// Run parses sources on a bounded pool and merges the results in input
// order. A failing file never stops the batch: it is reported in
// Result.Errors with a file-level diagnostic. Sources not yet started when
// ctx is cancelled fail with the context error.
func (r *Runner) Run(ctx context.Context, sources []Source) *Result {
	files := make([]*FileResult, len(sources))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				files[i] = r.failed(src, fmt.Errorf("pipeline: %s not parsed: %w", src.name(), err))
				return nil
			}
			files[i] = r.ParseSource(src, i+1)
			return nil
		})
	}
	_ = g.Wait()

	res := r.merge(files)
	r.logger.Info().
		Int("files", len(files)).
		Int("records", len(res.Records)).
		Int("diagnostics", len(res.Diagnostics)).
		Int("duplicates", len(res.Duplicates)).
		Int("failed", len(res.Errors)).
		Msg("batch complete")
	return res
}

func (r *Runner) failed(src Source, err error) *FileResult {
	name := src.name()
	diags := diag.NewList(name)
	diags.AddFile(diag.FileLevelFailure, "%v", err)
	return &FileResult{File: name, Kind: src.Kind, Err: err, Diagnostics: diags.Items(), Audit: codes.NewAudit(name)}
}

// ParseSource parses a single source. seq numbers the interchange generated
// for an EOB source. Panics inside a parser are recovered into the file's
// error.
func (r *Runner) ParseSource(src Source, seq int) (res *FileResult) {
	name := src.name()
	res = &FileResult{File: name, Kind: src.Kind}
	diags := diag.NewList(name)
	audit := codes.NewAudit(name)

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().
				Str("file", name).
				Interface("panic", p).
				Bytes("stack", debug.Stack()).
				Msg("parser panic recovered")
			res.Records = nil
			res.Err = fmt.Errorf("pipeline: parsing %s panicked: %v", name, p)
		}
		if res.Err != nil {
			diags.AddFile(diag.FileLevelFailure, "%v", res.Err)
		}
		res.Diagnostics = diags.Items()
		res.Audit = audit

		ev := r.logger.Debug()
		if res.Err != nil {
			ev = r.logger.Warn().Err(res.Err)
		}
		ev.Str("file", name).
			Str("kind", string(res.Kind)).
			Int("records", len(res.Records)).
			Int("diagnostics", len(res.Diagnostics)).
			Msg("file parsed")
	}()

	data, err := src.read()
	if err != nil {
		res.Err = err
		return res
	}
	if data, err = Decode(data); err != nil {
		res.Err = err
		return res
	}
	if res.Kind == KindAuto {
		if res.Kind, err = Sniff(data); err != nil {
			res.Err = fmt.Errorf("%s: %w", name, err)
			return res
		}
	}

	switch res.Kind {
	case Kind835:
		rem := r.remit.Parse(name, string(data), diags, audit)
		res.Records = rem.Records()
		res.ProviderAdjustments = rem.ProviderAdjustments
	case Kind837:
		res.Records = r.claims.Parse(name, string(data), diags, audit).Records()
	case Kind270, Kind271:
		resp := r.eligibility.Parse(name, string(data), diags, audit)
		res.Records = resp.AsRecords()
		res.Rejections = resp.Rejections
	case KindHL7:
		system := src.System
		if system == "" {
			system = r.defaultSystem
		}
		batch, err := hl7etl.NewParser(system, r.root).Parse(name, data, diags, audit)
		if err != nil {
			res.Err = err
			return res
		}
		res.System = batch.System
		res.Records = batch.AsRecords()
	case KindEOB:
		conv, err := r.ConvertEOB(name, string(data), seq, diags, audit)
		if err != nil {
			res.Err = err
			return res
		}
		res.EOB = conv.EOB
		res.Generated = conv.X12
		res.Records = conv.Remittance.Records()
	default:
		res.Err = fmt.Errorf("%w: %q", ErrUnknownFormat, res.Kind)
	}
	return res
}

// Conversion is an EOB with the 835 generated from it and that 835 read
// back as claims.
type Conversion struct {
	EOB        *eob.EOB
	X12        string
	Remittance *remit.Remittance
}

// ConvertEOB reads EOB text, generates an 835 numbered seq and parses the
// result. Findings from both steps go to diags; translations are audited
// once, at generation.
func (r *Runner) ConvertEOB(name, text string, seq int, diags *diag.List, audit *codes.Audit) (*Conversion, error) {
	e, err := eob.Read(text, diags)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	out := eob.Generate(e, r.remapper, audit, eob.Control{Interchange: seq, Group: seq}, r.now)
	rem := r.remit.Parse(name, out, diags, nil)
	return &Conversion{EOB: e, X12: out, Remittance: rem}, nil
}

// merge folds per-file results together in input order.
func (r *Runner) merge(files []*FileResult) *Result {
	res := &Result{
		Records:      []record.Record{},
		Diagnostics:  []diag.Diagnostic{},
		MappingUsage: []codes.MappingUsage{},
		Unmapped:     []codes.UnmappedCode{},
		Files:        files,
	}
	dedup := NewDeduplicator()
	audit := codes.NewAudit("")
	next := 1

	for _, f := range files {
		if f.Err != nil {
			res.Errors = append(res.Errors, diag.FileError{File: f.File, Err: f.Err})
		}
		res.Diagnostics = append(res.Diagnostics, f.Diagnostics...)
		res.ProviderAdjustments = append(res.ProviderAdjustments, f.ProviderAdjustments...)
		res.Rejections = append(res.Rejections, f.Rejections...)
		audit.Merge(f.Audit)

		var encounters []*record.PatientEncounterRecord
		for _, rec := range f.Records {
			enc, ok := rec.(*record.PatientEncounterRecord)
			if !ok {
				res.Records = append(res.Records, rec)
				continue
			}
			if dedup.Add(enc) {
				res.Records = append(res.Records, enc)
				encounters = append(encounters, enc)
			}
		}
		next = hl7etl.NumberEncounters(encounters, next)
	}

	res.MappingUsage = append(res.MappingUsage, audit.Usages()...)
	res.Unmapped = append(res.Unmapped, audit.Unmapped()...)
	res.CodeSummary = audit.Summary()
	res.Duplicates = dedup.Duplicates()
	return res
}
