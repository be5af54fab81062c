package remit

import (
	"strings"

	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/diag"
	"github.com/ehr/edi/internal/platform/x12"
	"github.com/ehr/edi/internal/record"
)

// maxCASTriplets is the number of reason/amount/quantity groups a CAS
// segment can carry.
const maxCASTriplets = 6

// header is the payment information shared by every claim in a transaction.
type header struct {
	control        string
	payer          record.Party
	payee          record.Party
	paymentMethod  string
	paymentAmount  float64
	paymentDate    string
	traceNumber    string
	productionDate string
}

// grammar walks the 835 loops: LX header numbers at LevelA, CLP claims at
// LevelB and SVC service lines at LevelC. 835 has no HL segments.
type grammar struct {
	file     string
	remapper *codes.Remapper
	diags    *diag.List
	audit    *codes.Audit

	hdr   header
	party *record.Party
	// street, city, state and zip of the N1 loop in progress.
	addr [4]string

	claim    *record.ClaimRecord
	claimSeg int
	line     int

	out *Remittance
}

func newGrammar(file string, remapper *codes.Remapper, diags *diag.List, audit *codes.Audit) *grammar {
	return &grammar{
		file:     file,
		remapper: remapper,
		diags:    diags,
		audit:    audit,
		line:     -1,
		out:      &Remittance{File: file},
	}
}

func (g *grammar) RecordLevel() x12.Level { return x12.LevelB }

func (g *grammar) LevelForHL(string) (x12.Level, bool) { return x12.LevelEnvelope, false }

func (g *grammar) Implicit(seg x12.Segment) (x12.Level, bool) {
	switch seg.Tag() {
	case "LX":
		return x12.LevelA, true
	case "CLP":
		return x12.LevelB, true
	case "SVC":
		return x12.LevelC, true
	}
	return x12.LevelEnvelope, false
}

func (g *grammar) Open(level x12.Level, seg x12.Segment) {
	switch level {
	case x12.LevelA:
		g.party = nil
	case x12.LevelB:
		g.openClaim(seg)
	case x12.LevelC:
		g.openLine(seg)
	}
}

func (g *grammar) Close() {
	c := g.claim
	if c == nil {
		return
	}
	g.claim = nil
	g.line = -1

	c.Payer = g.hdr.payer
	c.Payee = g.hdr.payee
	c.PaymentMethod = g.hdr.paymentMethod
	c.PaymentAmount = g.hdr.paymentAmount
	c.PaymentDate = g.hdr.paymentDate
	c.TraceNumber = g.hdr.traceNumber
	c.ProductionDate = g.hdr.productionDate

	c.Status = record.DeriveStatus(c.StatusCode, c.Paid)
	c.ComputeTotals()
	if err := c.CheckBalance(); err != nil {
		g.diags.Add(diag.InvalidDomainValue, g.claimSeg, "CLP", "%v", err)
	}
	g.out.Claims = append(g.out.Claims, c)
}

func (g *grammar) Interpret(level x12.Level, seg x12.Segment) bool {
	switch seg.Tag() {
	case "ST":
		g.hdr = header{control: seg.Elem(2)}
		g.party = nil
	case "BPR":
		g.hdr.paymentMethod = seg.Elem(4)
		g.hdr.paymentAmount = x12.Amount(seg, 2, g.diags)
		g.hdr.paymentDate = x12.Date(seg, 16, g.diags)
	case "TRN":
		g.hdr.traceNumber = seg.Elem(2)
	case "N1":
		g.interpretN1(seg)
	case "N3":
		if g.party == nil {
			return level == x12.LevelEnvelope
		}
		g.addr[0] = strings.TrimSpace(seg.Elem(1) + " " + seg.Elem(2))
		g.party.Address = codes.NormalizeAddress(g.addr[0], g.addr[1], g.addr[2], g.addr[3])
	case "N4":
		if g.party == nil {
			return level == x12.LevelEnvelope
		}
		g.addr[1], g.addr[2], g.addr[3] = seg.Elem(1), seg.Elem(2), seg.Elem(3)
		g.party.Address = codes.NormalizeAddress(g.addr[0], g.addr[1], g.addr[2], g.addr[3])
	case "REF":
		g.interpretREF(level, seg)
	case "DTM":
		g.interpretDTM(level, seg)
	case "CAS":
		if g.claim == nil {
			return false
		}
		g.interpretCAS(level, seg)
	case "NM1":
		if g.claim == nil {
			return false
		}
		g.interpretNM1(seg)
	case "AMT":
		if g.claim == nil {
			return false
		}
		g.interpretAMT(level, seg)
	case "LQ":
		if g.claim == nil || level != x12.LevelC || g.line < 0 {
			return false
		}
		g.interpretLQ(seg)
	case "PLB":
		g.interpretPLB(seg)
	case "PER", "RDM", "TS3", "TS2", "MIA", "MOA", "QTY", "CUR", "BHT":
		// Recognised; not carried on the record.
	default:
		return false
	}
	return true
}

func (g *grammar) openClaim(seg x12.Segment) {
	g.party = nil
	g.claimSeg = seg.Index
	status := codes.ClaimStatus.Lookup(seg.Elem(2))
	if status.Raw != "" && !status.Mapped {
		g.diags.Add(diag.UnmappedCode, seg.Index, "CLP", "unknown claim status code %q", status.Raw)
		g.audit.RecordUnmapped(codes.TableClaimStatus, seg.Index, status.Raw)
	}
	g.claim = &record.ClaimRecord{
		File:              g.file,
		Transaction:       TransactionType,
		ClaimID:           seg.Elem(1),
		StatusCode:        status.Raw,
		StatusDescription: status.Description,
		Billed:            x12.Amount(seg, 3, g.diags),
		Paid:              x12.Amount(seg, 4, g.diags),
		PatientResp:       x12.Amount(seg, 5, g.diags),
		PlanTypeCode:      seg.Elem(6),
		PlanType:          codes.ClaimFiling.Describe(seg.Elem(6), seg.Elem(6)),
		PayerClaimID:      seg.Elem(7),
		FacilityCode:      seg.Elem(8),
		FrequencyCode:     seg.Elem(9),
	}
	g.line = -1
}

func (g *grammar) openLine(seg x12.Segment) {
	comps := seg.Components(1)
	line := record.ServiceLine{
		Number: len(g.claim.Lines) + 1,
		Billed: x12.Amount(seg, 2, g.diags),
		Paid:   x12.Amount(seg, 3, g.diags),
		Units:  seg.Elem(5),
	}
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
	if line.Units == "" {
		line.Units = "1"
	}
	g.claim.Lines = append(g.claim.Lines, line)
	g.line = len(g.claim.Lines) - 1
}

func (g *grammar) currentLine(level x12.Level) *record.ServiceLine {
	if level != x12.LevelC || g.claim == nil || g.line < 0 {
		return nil
	}
	return &g.claim.Lines[g.line]
}

func (g *grammar) interpretN1(seg x12.Segment) {
	g.addr = [4]string{}
	switch seg.Elem(1) {
	case "PR":
		g.party = &g.hdr.payer
		g.party.Name = seg.Elem(2)
		if id := seg.Elem(4); id != "" {
			g.party.ID = id
		}
	case "PE":
		g.party = &g.hdr.payee
		g.party.Name = seg.Elem(2)
		switch seg.Elem(3) {
		case "XX":
			g.party.NPI = seg.Elem(4)
		case "FI":
			g.party.TaxID = seg.Elem(4)
		default:
			g.party.ID = seg.Elem(4)
		}
	default:
		g.party = nil
	}
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
	switch {
	case ref.Qualifier == "2U" && g.party == &g.hdr.payer && g.hdr.payer.ID == "":
		g.hdr.payer.ID = ref.Value
	case ref.Qualifier == "TJ" && g.party == &g.hdr.payee:
		g.hdr.payee.TaxID = ref.Value
	}
}

func (g *grammar) interpretDTM(level x12.Level, seg x12.Segment) {
	date := x12.Date(seg, 2, g.diags)
	if line := g.currentLine(level); line != nil {
		switch seg.Elem(1) {
		case "472", "150":
			line.ServiceDate = date
		}
		return
	}
	if g.claim == nil {
		if seg.Elem(1) == "405" {
			g.hdr.productionDate = date
		}
		return
	}
	switch seg.Elem(1) {
	case "232":
		g.claim.ServiceFrom = date
	case "233":
		g.claim.ServiceTo = date
	case "050":
		g.claim.ReceivedDate = date
	}
}

// interpretCAS adds one adjustment per reason/amount/quantity triplet.
// Adjustments after an SVC belong to the line, otherwise to the claim.
func (g *grammar) interpretCAS(level x12.Level, seg x12.Segment) {
	group := codes.GroupCodes.Lookup(seg.Elem(1))
	if !group.Mapped {
		g.diags.Add(diag.InvalidDomainValue, seg.Index, "CAS", "unknown adjustment group code %q", group.Raw)
	}

	var adjs []record.Adjustment
	for t := 0; t < maxCASTriplets; t++ {
		base := 2 + t*3
		raw := seg.Elem(base)
		if raw == "" {
			if seg.Elem(base+1) != "" {
				g.diags.Add(diag.MalformedSegment, seg.Index, "CAS", "CAS%02d amount without reason code", base+1)
			}
			continue
		}
		res := g.remapper.Resolve(raw)
		g.audit.Record(codes.TableCARC, seg.Index, res)
		if !res.Mapped {
			g.diags.Add(diag.UnmappedCode, seg.Index, "CAS", "adjustment reason %q not in CARC table", raw)
		}
		adj := record.Adjustment{
			Group:            group.Raw,
			GroupDescription: group.Description,
			Code:             res.Standard,
			Description:      res.Description,
			Amount:           x12.Amount(seg, base+1, g.diags),
			Quantity:         seg.Elem(base + 2),
			Remapped:         res.Remapped,
		}
		if res.Remapped {
			adj.OriginalCode = raw
		}
		adjs = append(adjs, adj)
	}

	if line := g.currentLine(level); line != nil {
		line.Adjustments = append(line.Adjustments, adjs...)
		return
	}
	g.claim.Adjustments = append(g.claim.Adjustments, adjs...)
}

func (g *grammar) interpretNM1(seg x12.Segment) {
	p := record.Person{
		Last:   seg.Elem(3),
		First:  seg.Elem(4),
		Middle: seg.Elem(5),
		ID:     seg.Elem(9),
	}
	switch seg.Elem(1) {
	case "QC":
		g.claim.Patient = p
	case "IL":
		g.claim.Insured = p
	case "82":
		g.claim.Rendering = p
	}
}

func (g *grammar) interpretAMT(level x12.Level, seg x12.Segment) {
	amt := x12.Amount(seg, 2, g.diags)
	if line := g.currentLine(level); line != nil {
		if seg.Elem(1) == "B6" {
			line.Allowed = amt
		}
		return
	}
	if seg.Elem(1) == "AU" {
		g.claim.CoverageAmount = amt
	}
}

func (g *grammar) interpretLQ(seg x12.Segment) {
	code := seg.Elem(2)
	e := codes.RARC.Lookup(code)
	if !e.Mapped {
		g.audit.RecordUnmapped(codes.TableRARC, seg.Index, code)
	}
	line := &g.claim.Lines[g.line]
	line.Remarks = append(line.Remarks, record.Remark{
		Qualifier:   seg.Elem(1),
		Code:        code,
		Description: e.Description,
	})
}

// interpretPLB reads provider level balance pairs PLB03/04 through PLB13/14.
func (g *grammar) interpretPLB(seg x12.Segment) {
	for i := 3; i+1 <= seg.Len(); i += 2 {
		reason := seg.Component(i, 1)
		if reason == "" {
			continue
		}
		g.out.ProviderAdjustments = append(g.out.ProviderAdjustments, ProviderAdjustment{
			ProviderID:   seg.Elem(1),
			FiscalPeriod: seg.Elem(2),
			Reason:       reason,
			Reference:    seg.Component(i, 2),
			Amount:       x12.SignedAmount(seg, i+1, g.diags),
		})
	}
}
