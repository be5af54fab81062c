package claim

import (
	"math"
	"strconv"
	"strings"

	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/diag"
	"github.com/ehr/edi/internal/platform/x12"
	"github.com/ehr/edi/internal/record"
)

// Loop levels. HL 20 billing provider, HL 22 subscriber and HL 23 patient
// use the walker's named levels; claims and service lines nest below them.
const (
	levelBilling    = x12.LevelA
	levelSubscriber = x12.LevelB
	levelPatient    = x12.LevelC
	levelClaim      = x12.LevelC + 1
	levelLine       = x12.LevelC + 2
)

// maxHIElements is the number of diagnosis composites an HI segment can
// carry.
const maxHIElements = 12

// entity is the party the most recent NM1 named. N3, N4, DMG and header REF
// segments apply to it.
type entity int

const (
	entityNone entity = iota
	entitySubmitter
	entityReceiver
	entityBilling
	entitySubscriber
	entityPayer
	entityPatient
	entityRendering
)

// grammar walks 837P hierarchies. State at each level is kept until the
// level reopens so several claims under one subscriber share it.
type grammar struct {
	file  string
	diags *diag.List
	audit *codes.Audit

	submitter      record.Party
	receiver       record.Party
	submissionDate string

	billing  record.Party
	taxonomy string

	subscriber record.Person
	payer      record.Party
	filing     string

	patient    record.Person
	hasPatient bool

	target entity
	// street, city, state and zip of the NM1 loop in progress.
	addr [4]string

	claim    *record.ClaimRecord
	claimSeg int
	line     int

	out *Submission
}

func newGrammar(file string, diags *diag.List, audit *codes.Audit) *grammar {
	return &grammar{
		file:  file,
		diags: diags,
		audit: audit,
		line:  -1,
		out:   &Submission{File: file},
	}
}

func (g *grammar) RecordLevel() x12.Level { return levelClaim }

func (g *grammar) LevelForHL(code string) (x12.Level, bool) {
	switch code {
	case "20":
		return levelBilling, true
	case "22":
		return levelSubscriber, true
	case "23":
		return levelPatient, true
	}
	return x12.LevelEnvelope, false
}

func (g *grammar) Implicit(seg x12.Segment) (x12.Level, bool) {
	switch seg.Tag() {
	case "CLM":
		return levelClaim, true
	case "LX":
		return levelLine, true
	}
	return x12.LevelEnvelope, false
}

func (g *grammar) Open(level x12.Level, seg x12.Segment) {
	switch level {
	case levelBilling:
		g.billing = record.Party{}
		g.taxonomy = ""
		g.resetSubscriber()
		g.target = entityBilling
	case levelSubscriber:
		g.resetSubscriber()
		g.target = entityNone
	case levelPatient:
		g.patient = record.Person{}
		g.hasPatient = true
		g.target = entityNone
	case levelClaim:
		g.openClaim(seg)
	case levelLine:
		n, err := strconv.Atoi(seg.Elem(1))
		if err != nil || n <= 0 {
			n = len(g.claim.Lines) + 1
		}
		g.claim.Lines = append(g.claim.Lines, record.ServiceLine{Number: n})
		g.line = len(g.claim.Lines) - 1
	}
}

func (g *grammar) resetSubscriber() {
	g.subscriber = record.Person{}
	g.payer = record.Party{}
	g.filing = ""
	g.patient = record.Person{}
	g.hasPatient = false
}

// Close finishes the claim in progress. Submitted claims carry no payment,
// so instead of the remittance balance the total charge is checked against
// its lines.
func (g *grammar) Close() {
	c := g.claim
	if c == nil {
		return
	}
	g.claim = nil
	g.line = -1

	c.Status = record.StatusSubmitted
	c.ComputeTotals()
	if len(c.Lines) > 0 && math.Abs(c.Billed-c.LineBilled) > record.BalanceTolerance {
		g.diags.Add(diag.InvalidDomainValue, g.claimSeg, "CLM",
			"claim %s: total charge %.2f does not match line charges %.2f", c.ClaimID, c.Billed, c.LineBilled)
	}
	for _, l := range c.Lines {
		for _, p := range l.DiagnosisPointers {
			n, err := strconv.Atoi(p)
			if err != nil || n < 1 || n > len(c.Diagnoses) {
				g.diags.Add(diag.InvalidDomainValue, g.claimSeg, "SV1",
					"claim %s line %d: diagnosis pointer %q does not refer to a diagnosis", c.ClaimID, l.Number, p)
			}
		}
	}
	g.out.Claims = append(g.out.Claims, c)
}

func (g *grammar) Interpret(level x12.Level, seg x12.Segment) bool {
	switch seg.Tag() {
	case "ST":
		*g = grammar{file: g.file, diags: g.diags, audit: g.audit, line: -1, out: g.out}
	case "BHT":
		g.submissionDate = x12.Date(seg, 4, g.diags)
	case "NM1":
		return g.interpretNM1(seg)
	case "N3":
		g.addr[0] = strings.TrimSpace(seg.Elem(1) + " " + seg.Elem(2))
		g.applyAddress()
	case "N4":
		g.addr[1], g.addr[2], g.addr[3] = seg.Elem(1), seg.Elem(2), seg.Elem(3)
		g.applyAddress()
	case "PRV":
		if level == levelBilling && g.claim == nil {
			g.taxonomy = seg.Elem(3)
		}
	case "REF":
		g.interpretREF(level, seg)
	case "SBR":
		g.interpretSBR(seg)
	case "PAT":
		g.patient.Relation = g.relationship(seg, 1)
	case "DMG":
		g.interpretDMG(seg)
	case "DTP":
		g.interpretDTP(level, seg)
	case "HI":
		if g.claim == nil {
			return false
		}
		g.interpretHI(seg)
	case "NTE":
		if g.claim == nil {
			return false
		}
		if note := strings.TrimSpace(seg.Elem(2)); note != "" {
			g.claim.Notes = append(g.claim.Notes, note)
		}
	case "SV1":
		if g.claim == nil {
			return false
		}
		g.interpretSV1(level, seg)
	case "PER", "CUR", "AMT", "K3", "PWK", "CN1", "CR1", "CRC", "HCP", "MEA", "LIN", "CTP", "SV5", "PS1", "OI", "MOA":
		// Recognised; not carried on the record.
	default:
		return false
	}
	return true
}

func (g *grammar) openClaim(seg x12.Segment) {
	g.claimSeg = seg.Index
	g.line = -1
	g.target = entityNone

	patient := g.subscriber
	if g.hasPatient {
		patient = g.patient
	}
	g.claim = &record.ClaimRecord{
		File:            g.file,
		Transaction:     TransactionType,
		ClaimID:         seg.Elem(1),
		Status:          record.StatusSubmitted,
		Billed:          x12.Amount(seg, 2, g.diags),
		PlanTypeCode:    g.filing,
		PlanType:        codes.ClaimFiling.Describe(g.filing, g.filing),
		FacilityCode:    seg.Component(5, 1),
		FrequencyCode:   seg.Component(5, 3),
		PlaceOfService:  seg.Component(5, 1),
		Payer:           g.payer,
		Payee:           g.billing,
		Patient:         patient,
		Insured:         g.subscriber,
		Submitter:       g.submitter,
		Receiver:        g.receiver,
		BillingTaxonomy: g.taxonomy,
		SubmissionDate:  g.submissionDate,
	}
}

// interpretNM1 switches the current entity and records its name and
// identifier. Entities inside a claim update the claim directly.
func (g *grammar) interpretNM1(seg x12.Segment) bool {
	g.addr = [4]string{}
	party := record.Party{Name: organizationName(seg)}
	if seg.Elem(8) == "XX" {
		party.NPI = seg.Elem(9)
	} else {
		party.ID = seg.Elem(9)
	}

	switch seg.Elem(1) {
	case "41":
		g.submitter, g.target = party, entitySubmitter
	case "40":
		g.receiver, g.target = party, entityReceiver
	case "85":
		g.billing, g.target = party, entityBilling
	case "PR":
		g.payer = record.Party{Name: seg.Elem(3), ID: seg.Elem(9)}
		g.target = entityPayer
		if g.claim != nil {
			g.claim.Payer = g.payer
		}
	case "IL":
		g.subscriber = mergePerson(g.subscriber, seg)
		g.target = entitySubscriber
	case "QC":
		g.patient = mergePerson(g.patient, seg)
		g.hasPatient = true
		g.target = entityPatient
		if g.claim != nil {
			g.claim.Patient = g.patient
		}
	case "82":
		if g.claim == nil {
			return false
		}
		g.claim.Rendering = mergePerson(record.Person{}, seg)
		g.target = entityRendering
	default:
		// Pay-to, service facility, referring and other loops.
		g.target = entityNone
	}
	return true
}

// organizationName joins first and last names for individuals (NM102 1);
// organizations use NM103 alone.
func organizationName(seg x12.Segment) string {
	if seg.Elem(2) == "1" && seg.Elem(4) != "" {
		return seg.Elem(4) + " " + seg.Elem(3)
	}
	return seg.Elem(3)
}

func mergePerson(p record.Person, seg x12.Segment) record.Person {
	p.Last = seg.Elem(3)
	p.First = seg.Elem(4)
	p.Middle = seg.Elem(5)
	p.ID = seg.Elem(9)
	return p
}

func (g *grammar) applyAddress() {
	addr := codes.NormalizeAddress(g.addr[0], g.addr[1], g.addr[2], g.addr[3])
	switch g.target {
	case entityBilling:
		g.billing.Address = addr
	case entityPayer:
		g.payer.Address = addr
		if g.claim != nil {
			g.claim.Payer.Address = addr
		}
	case entitySubscriber:
		g.subscriber.Address = addr
	case entityPatient:
		g.patient.Address = addr
		if g.claim != nil {
			g.claim.Patient.Address = addr
		}
	case entityRendering:
		g.claim.Rendering.Address = addr
	}
}

func (g *grammar) currentLine(level x12.Level) *record.ServiceLine {
	if level != levelLine || g.claim == nil || g.line < 0 {
		return nil
	}
	return &g.claim.Lines[g.line]
}

func (g *grammar) interpretREF(level x12.Level, seg x12.Segment) {
	ref := record.Reference{Qualifier: seg.Elem(1), Value: seg.Elem(2)}
	if line := g.currentLine(level); line != nil {
		line.References = append(line.References, ref)
		return
	}
	if g.claim != nil {
		g.claim.References = append(g.claim.References, ref)
		return
	}
	if g.target == entityBilling && (ref.Qualifier == "EI" || ref.Qualifier == "SY") {
		g.billing.TaxID = ref.Value
	}
}

func (g *grammar) interpretSBR(seg x12.Segment) {
	if rel := seg.Elem(2); rel != "" {
		g.subscriber.Relation = g.relationship(seg, 2)
	}
	g.filing = seg.Elem(9)
	if g.filing != "" && !codes.ClaimFiling.Has(g.filing) {
		g.diags.Add(diag.UnmappedCode, seg.Index, "SBR", "unknown claim filing indicator %q", g.filing)
		g.audit.RecordUnmapped(codes.TableFiling, seg.Index, g.filing)
	}
}

// relationship resolves an individual relationship code, auditing codes the
// table does not know.
func (g *grammar) relationship(seg x12.Segment, i int) string {
	code := seg.Elem(i)
	if code == "" {
		return ""
	}
	e := codes.Relationships.Lookup(code)
	if !e.Mapped {
		g.audit.RecordUnmapped(codes.TableRelationship, seg.Index, code)
		return code
	}
	return e.Description
}

func (g *grammar) interpretDMG(seg x12.Segment) {
	var p *record.Person
	switch g.target {
	case entitySubscriber:
		p = &g.subscriber
	case entityPatient:
		p = &g.patient
	default:
		return
	}
	if seg.Elem(1) == "D8" {
		p.DOB = x12.Date(seg, 2, g.diags)
	}
	if seg.Elem(3) != "" {
		p.Gender = codes.NormalizeGender(seg.Elem(3))
	}
	if g.claim != nil && g.target == entityPatient {
		g.claim.Patient = g.patient
	}
}

func (g *grammar) interpretDTP(level x12.Level, seg x12.Segment) {
	if line := g.currentLine(level); line != nil {
		if seg.Elem(1) == "472" {
			line.ServiceDate = x12.Date(seg, 3, g.diags)
		}
		return
	}
	if g.claim == nil {
		return
	}
	switch seg.Elem(1) {
	case "431":
		g.claim.OnsetDate = x12.Date(seg, 3, g.diags)
	case "435":
		g.claim.AdmissionDate = x12.Date(seg, 3, g.diags)
	case "472", "434":
		if seg.Elem(2) == "RD8" {
			g.claim.ServiceFrom, g.claim.ServiceTo = x12.DateRange(seg, 3, g.diags)
		} else {
			d := x12.Date(seg, 3, g.diags)
			g.claim.ServiceFrom, g.claim.ServiceTo = d, d
		}
	}
}

// interpretHI reads qualifier:code composites. ABK/BK mark the principal
// diagnosis; ICD-10 codes are shape checked.
func (g *grammar) interpretHI(seg x12.Segment) {
	for i := 1; i <= maxHIElements && i <= seg.Len(); i++ {
		qual, code := seg.Component(i, 1), seg.Component(i, 2)
		if qual == "" && code == "" {
			continue
		}
		d := record.Diagnosis{Qualifier: qual, Code: code}
		switch qual {
		case "ABK", "ABF", "ABJ", "ABN", "APR":
			d.Valid, d.Code = codes.ValidateICD10(code)
			if !d.Valid {
				g.diags.Add(diag.InvalidDomainValue, seg.Index, "HI",
					"HI%02d: invalid ICD-10 code %q", i, code)
			}
		case "BK", "BF", "BJ", "PR":
			d.Code = strings.TrimSpace(code)
			d.Valid = d.Code != ""
		default:
			g.diags.Add(diag.InvalidDomainValue, seg.Index, "HI",
				"HI%02d: unknown diagnosis qualifier %q", i, qual)
		}
		d.Principal = qual == "ABK" || qual == "BK"
		g.claim.Diagnoses = append(g.claim.Diagnoses, d)
	}
}

// interpretSV1 fills the line opened by LX, or starts one when SV1 arrives
// without it.
func (g *grammar) interpretSV1(level x12.Level, seg x12.Segment) {
	line := g.currentLine(level)
	if line == nil || line.ProcedureCode != "" {
		g.claim.Lines = append(g.claim.Lines, record.ServiceLine{Number: len(g.claim.Lines) + 1})
		g.line = len(g.claim.Lines) - 1
		line = &g.claim.Lines[g.line]
	}

	comps := seg.Components(1)
	if len(comps) > 0 {
		line.ProcedureQualifier = comps[0]
	}
	if len(comps) > 1 {
		line.ProcedureCode = comps[1]
	}
	for i := 2; i < len(comps) && i < 6; i++ {
		if m := strings.TrimSpace(comps[i]); m != "" {
			line.Modifiers = append(line.Modifiers, m)
		}
	}
	if len(comps) > 6 {
		line.Description = comps[6]
	}
	line.Billed = x12.Amount(seg, 2, g.diags)
	line.Units = seg.Elem(4)
	if line.Units == "" {
		line.Units = "1"
	}
	for _, p := range seg.Components(7) {
		if p = strings.TrimSpace(p); p != "" {
			line.DiagnosisPointers = append(line.DiagnosisPointers, p)
		}
	}
}
