package eligibility

import (
	"strconv"
	"strings"
	"time"

	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/diag"
	"github.com/ehr/edi/internal/platform/x12"
	"github.com/ehr/edi/internal/record"
)

// Loop levels of the 270/271 hierarchy.
const (
	levelPayer      = x12.LevelA
	levelProvider   = x12.LevelB
	levelSubscriber = x12.LevelC
	levelDependent  = x12.LevelC + 1
)

// grammar walks HL 20 (information source), HL 21 (information receiver),
// HL 22 (subscriber) and HL 23 (dependent) loops. Each subscriber becomes a
// record that inherits the payer and provider above it. A dependent becomes
// a record of its own, naming the subscriber it is covered under.
type grammar struct {
	file  string
	now   time.Time
	diags *diag.List
	audit *codes.Audit

	txn      string
	payer    record.Party
	provider record.Provider
	// inLS is set between LS and LE, where NM1 segments name benefit
	// related entities rather than the subscriber.
	inLS bool
	// street of the subscriber, kept for N4.
	street string

	rec *record.EligibilityRecord
	// sub is the subscriber record dependents are covered under.
	sub *record.EligibilityRecord
	out *Response
}

func newGrammar(file string, now time.Time, diags *diag.List, audit *codes.Audit) *grammar {
	return &grammar{
		file:     file,
		now:      now,
		diags:    diags,
		audit:    audit,
		txn:      TransactionResponse,
		provider: unknownProvider(),
		out:      &Response{File: file},
	}
}

func unknownProvider() record.Provider {
	return record.Provider{NetworkStatus: "Unknown", Participating: "Unknown"}
}

func (g *grammar) RecordLevel() x12.Level { return levelSubscriber }

func (g *grammar) LevelForHL(code string) (x12.Level, bool) {
	switch code {
	case "20":
		return levelPayer, true
	case "21":
		return levelProvider, true
	case "22":
		return levelSubscriber, true
	case "23":
		return levelDependent, true
	}
	return x12.LevelEnvelope, false
}

func (g *grammar) Implicit(x12.Segment) (x12.Level, bool) { return x12.LevelEnvelope, false }

func (g *grammar) Open(level x12.Level, _ x12.Segment) {
	g.inLS = false
	switch level {
	case levelPayer:
		g.payer = record.Party{}
	case levelProvider:
		g.provider = unknownProvider()
	case levelSubscriber:
		g.rec = record.NewEligibilityRecord(g.file, g.txn)
		g.rec.Payer = g.payer
		g.rec.Provider = g.provider
		g.sub = g.rec
		g.street = ""
	case levelDependent:
		// Finish the subscriber (or the previous dependent) first so its
		// benefits do not absorb the dependent's.
		g.Close()
		if g.sub == nil {
			return
		}
		g.rec = newDependent(g.sub, g.file, g.txn)
		g.street = ""
	}
}

func newDependent(sub *record.EligibilityRecord, file, txn string) *record.EligibilityRecord {
	e := record.NewEligibilityRecord(file, txn)
	e.Payer = sub.Payer
	e.Provider = sub.Provider
	e.Subscriber = sub.Subscriber
	e.MemberID = sub.MemberID
	e.GroupNumber = sub.GroupNumber
	e.GroupName = sub.GroupName
	e.TraceNumber = sub.TraceNumber
	return e
}

func (g *grammar) Close() {
	if g.rec == nil {
		return
	}
	Finalize(g.rec, g.now)
	g.out.Records = append(g.out.Records, g.rec)
	g.rec = nil
}

func (g *grammar) Interpret(level x12.Level, seg x12.Segment) bool {
	tag := seg.Tag()
	switch tag {
	case "ST":
		g.txn = seg.Elem(1)
		if g.txn == "" {
			g.txn = TransactionResponse
		}
		g.payer = record.Party{}
		g.provider = unknownProvider()
		g.sub = nil
		g.inLS = false
		return true
	case "BHT":
		return true
	case "LS":
		g.inLS = true
		return level >= levelSubscriber
	case "LE":
		g.inLS = false
		return level >= levelSubscriber
	case "AAA":
		g.interpretAAA(seg)
		return level != x12.LevelEnvelope
	}

	switch level {
	case levelPayer:
		return g.interpretPayer(seg)
	case levelProvider:
		return g.interpretProvider(seg)
	case levelSubscriber:
		return g.interpretMember(seg, false)
	case levelDependent:
		if g.rec == nil {
			return false
		}
		return g.interpretMember(seg, true)
	}
	return false
}

func (g *grammar) interpretPayer(seg x12.Segment) bool {
	switch seg.Tag() {
	case "NM1":
		if seg.Elem(1) == "PR" {
			g.payer.Name = seg.Elem(3)
			g.payer.ID = seg.Elem(9)
		}
	case "PER", "REF", "N3", "N4", "PRV":
	default:
		return false
	}
	return true
}

func (g *grammar) interpretProvider(seg x12.Segment) bool {
	switch seg.Tag() {
	case "NM1":
		if seg.Elem(1) == "1P" {
			g.provider.Name = strings.TrimSpace(seg.Elem(4) + " " + seg.Elem(3))
			g.provider.NPI = seg.Elem(9)
		}
	case "PRV":
		g.provider.Taxonomy = seg.Elem(3)
	case "REF":
		switch seg.Elem(1) {
		case "EO":
			g.provider.NetworkStatus = "Out-of-Network"
			if seg.Elem(2) == "IN" {
				g.provider.NetworkStatus = "In-Network"
			}
		case "9K":
			g.provider.Participating = "No"
			if seg.Elem(2) == "Y" {
				g.provider.Participating = "Yes"
			}
		}
	case "N3", "N4", "PER":
	default:
		return false
	}
	return true
}

// interpretMember reads a subscriber or dependent loop. A dependent's
// name, birth date and relationship describe the patient, not the
// subscriber.
func (g *grammar) interpretMember(seg x12.Segment, dependent bool) bool {
	e := g.rec
	switch seg.Tag() {
	case "NM1":
		if g.inLS {
			return true
		}
		if dependent {
			if seg.Elem(1) == "03" {
				e.Name = strings.TrimSpace(seg.Elem(4) + " " + seg.Elem(3))
				if id := seg.Elem(9); id != "" {
					e.MemberID = id
				}
			}
			return true
		}
		if seg.Elem(1) == "IL" {
			e.Subscriber.Last = seg.Elem(3)
			e.Subscriber.First = seg.Elem(4)
			e.Subscriber.Middle = seg.Elem(5)
			e.Subscriber.ID = seg.Elem(9)
			e.Name = strings.TrimSpace(seg.Elem(4) + " " + seg.Elem(3))
			e.MemberID = seg.Elem(9)
		}
	case "DMG":
		if g.inLS {
			return true
		}
		e.DOB = x12.Date(seg, 2, g.diags)
		if dependent {
			return true
		}
		e.Subscriber.DOB = e.DOB
		if seg.Elem(3) != "" {
			e.Subscriber.Gender = codes.NormalizeGender(seg.Elem(3))
		}
	case "N3":
		if g.inLS || dependent {
			return true
		}
		g.street = strings.TrimSpace(seg.Elem(1) + " " + seg.Elem(2))
		e.Subscriber.Address = codes.NormalizeAddress(g.street, "", "", "")
	case "N4":
		if g.inLS || dependent {
			return true
		}
		e.Subscriber.Address = codes.NormalizeAddress(g.street, seg.Elem(1), seg.Elem(2), seg.Elem(3))
	case "INS":
		code := seg.Elem(2)
		e.RelationshipCode = code
		rel := codes.Relationships.Lookup(code)
		if code != "" && !rel.Mapped {
			g.audit.RecordUnmapped(codes.TableRelationship, seg.Index, code)
		}
		e.Relationship = codes.Relationships.Describe(code, code)
		if !dependent {
			e.Subscriber.Relation = e.Relationship
		}
	case "TRN":
		if e.TraceNumber == "" {
			e.TraceNumber = seg.Elem(2)
		}
	case "DTP":
		g.interpretDTP(seg)
	case "REF":
		g.interpretREF(seg)
	case "EB":
		g.interpretEB(seg)
	case "MSG":
		msg := seg.Elem(1)
		if msg == "" {
			return true
		}
		e.Messages = append(e.Messages, msg)
		upper := strings.ToUpper(msg)
		if strings.Contains(upper, "PRE-AUTHORIZATION") || strings.Contains(upper, "PREAUTH") {
			e.PreauthMessages = append(e.PreauthMessages, msg)
		}
	case "PRV", "PER", "III", "HSD", "DTM", "HI", "EQ", "AMT", "MPI":
	default:
		return false
	}
	return true
}

func (g *grammar) interpretDTP(seg x12.Segment) {
	var date string
	if seg.Elem(2) == "RD8" {
		date, _ = x12.DateRange(seg, 3, g.diags)
	} else {
		date = x12.Date(seg, 3, g.diags)
	}
	switch seg.Elem(1) {
	case "356":
		g.rec.EffectiveDate = date
	case "357":
		g.rec.TermDate = date
	case "346", "291":
		// Plan begin / plan dates; effective date when none was sent.
		if g.rec.EffectiveDate == "" {
			g.rec.EffectiveDate = date
		}
	}
}

func (g *grammar) interpretREF(seg x12.Segment) {
	v := seg.Elem(2)
	switch seg.Elem(1) {
	case "18":
		g.rec.GroupNumber = v
	case "1L":
		g.rec.GroupName = v
	case "6P":
		g.rec.PlanTypeCode = v
		g.rec.PlanType = codes.PlanTypeName(v)
	}
}

func (g *grammar) interpretAAA(seg x12.Segment) {
	reason := codes.RejectReasons.Lookup(seg.Elem(3))
	if reason.Raw != "" && !reason.Mapped {
		g.audit.RecordUnmapped(codes.TableRejectReason, seg.Index, reason.Raw)
	}
	r := record.Rejection{
		Valid:    seg.Elem(1),
		Reason:   codes.RejectReasons.Describe(reason.Raw, reason.Raw),
		FollowUp: codes.FollowUpActions.Describe(seg.Elem(4), seg.Elem(4)),
	}
	if g.rec != nil {
		g.rec.Rejections = append(g.rec.Rejections, r)
		return
	}
	g.out.Rejections = append(g.out.Rejections, r)
}

// networkIndicator returns the in-plan-network flag: EB12, or EB10 when
// senders place a bare Y/N there.
func networkIndicator(seg x12.Segment) string {
	if v := seg.Elem(12); v != "" {
		return v
	}
	if v := seg.Elem(10); v == "Y" || v == "N" {
		return v
	}
	return ""
}

// coinsurancePercent reads EB08 (a fraction, or a whole percentage) and
// falls back to EB07.
func coinsurancePercent(seg x12.Segment) int {
	raw := seg.Elem(8)
	if raw == "" {
		raw = seg.Elem(7)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0
	}
	if seg.Elem(8) != "" && v <= 1 {
		v *= 100
	}
	return int(v + 0.5)
}

// interpretEB applies one eligibility or benefit fact to the subscriber.
func (g *grammar) interpretEB(seg x12.Segment) {
	e := g.rec
	info, level, svc := seg.Elem(1), seg.Elem(2), seg.Elem(3)
	period := seg.Elem(6)
	outOfNetwork := networkIndicator(seg) == "N"

	benefit := codes.BenefitCodes.Lookup(info)
	if !benefit.Mapped {
		g.diags.Add(diag.UnmappedCode, seg.Index, "EB", "unknown eligibility or benefit code %q", info)
		g.audit.RecordUnmapped(codes.TableBenefit, seg.Index, info)
	}
	if svc != "" && !codes.ServiceTypes.Has(svc) {
		g.audit.RecordUnmapped(codes.TableServiceType, seg.Index, svc)
	}
	coverageLevel := codes.CoverageLevels.Describe(level, level)
	serviceType := "General"
	if svc != "" {
		serviceType = codes.ServiceTypes.Describe(svc, svc)
	}

	var amount float64
	var pct int
	if info == "A" {
		pct = coinsurancePercent(seg)
	} else {
		amount = x12.Amount(seg, 7, g.diags)
	}

	switch info {
	case "1", "2", "3", "4", "5":
		e.ActiveSeen = true
		if plan := seg.Elem(5); plan != "" {
			e.PlanTypeCode = plan
			e.PlanType = codes.PlanTypeName(plan)
		}
	case "6", "7", "8":
		e.InactiveSeen = true
	}

	key := svc
	if key == "" {
		key = "general"
	}
	switch info {
	case "C":
		switch {
		case level == "IND" && period == "29":
			e.DeductibleRemaining = amount
		case level == "IND" && isPlanPeriod(period):
			e.Deductible = amount
		case level == "FAM" && period == "29":
			e.FamilyDeductibleRemaining = amount
		case level == "FAM" && isPlanPeriod(period):
			e.FamilyDeductible = amount
		}
	case "B":
		if amount <= 0 {
			break
		}
		if outOfNetwork {
			if e.CopaysOON == nil {
				e.CopaysOON = make(map[string]float64)
			}
			e.CopaysOON["copay_"+key] = amount
			break
		}
		e.SetCopay("copay_"+key, amount)
		if key == "96" || key == "UC" || key == "general" {
			e.Copay = amount
		}
	case "A":
		if pct <= 0 {
			break
		}
		if outOfNetwork {
			if e.CoinsuranceOON == nil {
				e.CoinsuranceOON = make(map[string]int)
			}
			e.CoinsuranceOON[key] = pct
			if e.CoinsurancePctOON == 0 {
				e.CoinsurancePctOON = pct
			}
			break
		}
		if e.CoinsuranceIn == nil {
			e.CoinsuranceIn = make(map[string]int)
		}
		e.CoinsuranceIn[key] = pct
		if e.CoinsurancePct == 0 {
			e.CoinsurancePct = pct
		}
	case "G":
		switch {
		case level == "IND" && period == "29":
			e.OOPRemaining = amount
		case level == "IND" && isPlanPeriod(period):
			e.OOPMax = amount
		}
	case "F":
		if period == "32" {
			e.LifetimeMax = amount
		}
	case "J":
		e.Preauth = append(e.Preauth, record.PreauthService{
			ServiceTypeCode: svc,
			ServiceType:     serviceType,
			CoverageLevel:   coverageLevel,
		})
	}

	if svc != "" && info != "J" {
		e.Benefits = append(e.Benefits, record.Benefit{
			InfoCode:        info,
			Info:            codes.BenefitCodes.Describe(info, info),
			CoverageLevel:   coverageLevel,
			ServiceTypeCode: svc,
			ServiceType:     serviceType,
			InsuranceType:   codes.InsuranceTypes.Describe(seg.Elem(4), seg.Elem(4)),
			Amount:          amount,
			Percent:         pct,
			TimePeriod:      codes.TimePeriods.Describe(period, period),
			InNetwork:       !outOfNetwork,
		})
	}
}

// isPlanPeriod reports calendar year, year to date and contract periods.
func isPlanPeriod(period string) bool {
	return period == "23" || period == "24" || period == "25"
}
