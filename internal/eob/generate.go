package eob

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/platform/x12"
)

// Control numbers stamped on a generated interchange.
type Control struct {
	Interchange int
	Group       int
}

// coinsuranceSlack is the smallest unexplained patient share treated as
// coinsurance.
const coinsuranceSlack = 0.005

// StatusCode picks CLP02: 4 when the claim was denied or nothing was paid,
// 2 when the plan is marked secondary, 1 otherwise.
func StatusCode(e *EOB) string {
	if strings.EqualFold(strings.TrimSpace(e.ClaimStatus), "DENIED") || e.Totals.Paid == 0 {
		return "4"
	}
	if strings.Contains(strings.ToUpper(e.PlanType), "SECONDARY") {
		return "2"
	}
	return "1"
}

// ediDate converts MM/DD/YYYY to CCYYMMDD. Other input loses its slashes.
func ediDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if t, err := time.Parse("01/02/2006", s); err == nil {
		return t.Format("20060102")
	}
	return strings.ReplaceAll(s, "/", "")
}

// splitName reads "LAST, FIRST".
func splitName(s string) (last, first string) {
	parts := strings.SplitN(s, ",", 2)
	last = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		first = strings.TrimSpace(parts[1])
	}
	return last, first
}

// Generate renders e as a single-claim 835 interchange. Vendor adjustment
// codes are translated with remapper and each translation is noted in
// audit. now stamps the interchange time, and the date when the EOB has
// none.
func Generate(e *EOB, remapper *codes.Remapper, audit *codes.Audit, ctl Control, now time.Time) string {
	if remapper == nil {
		remapper = codes.DefaultRemapper()
	}
	d := x12.DefaultDelimiters
	b := x12.NewBuilder(d)
	fa := x12.FormatAmount

	prodDate := ediDate(e.Date)
	if prodDate == "" {
		prodDate = now.Format("20060102")
	}
	clock := now.Format("1504")
	payerID := strings.TrimSpace(e.PayerID)
	npi := strings.TrimSpace(e.NPI)
	stControl := fmt.Sprintf("%04d", ctl.Interchange)
	group := strconv.Itoa(ctl.Group)

	b.AddRaw(x12.ISA(d, payerID, npi, prodDate, clock, ctl.Interchange))
	b.Add("GS", "HP", payerID, npi, prodDate, clock, group, "X", "005010X221A1")
	b.Add("ST", "835", stControl, "005010X221A1")

	method := "H"
	if e.Totals.Paid > 0 {
		method = "I"
	}
	b.Add("BPR", method, fa(e.Totals.Paid), "C", "CHK", "", "", "", "", "", payerID, "", "", "", "", "", prodDate)
	b.Add("TRN", "1", e.Number, strings.ReplaceAll(e.TaxID, "-", ""))
	b.Add("DTM", "405", prodDate)

	payerQual := ""
	if payerID != "" {
		payerQual = "PI"
	}
	b.Add("N1", "PR", e.PayerName, payerQual, payerID)
	b.Add("N1", "PE", e.ProviderName, "XX", npi)
	if e.ProviderStreet != "" {
		b.Add("N3", e.ProviderStreet)
		if e.ProviderCity != "" && e.ProviderState != "" {
			b.Add("N4", e.ProviderCity, e.ProviderState, e.ProviderZip)
		}
	}

	b.Add("LX", "1")
	b.Add("CLP", e.ClaimNumber, StatusCode(e), fa(e.Totals.Billed), fa(e.Totals.Paid),
		fa(e.Totals.PatientResponsibility), codes.PlanTypeCode(e.PlanType), e.Number)
	last, first := splitName(e.PatientName)
	b.Add("NM1", "QC", "1", last, first, "", "", "", "MI", e.MemberID)

	serviceFrom := ediDate(e.ServiceFrom)
	if serviceFrom != "" {
		b.Add("DTM", "232", serviceFrom)
	}
	if to := ediDate(e.ServiceTo); to != "" {
		b.Add("DTM", "233", to)
	}
	if rcv := ediDate(e.ReceivedDate); rcv != "" {
		b.Add("DTM", "050", rcv)
	}

	for _, svc := range e.Lines {
		b.Add("SVC", b.Composite("HC", svc.CPT), fa(svc.Billed), fa(svc.Paid), "", "1")
		if serviceFrom != "" {
			b.Add("DTM", "472", serviceFrom)
		}
		for _, cas := range Adjustments(svc, remapper, audit, b.Len()) {
			b.Add("CAS", cas...)
		}
		b.Add("AMT", "B6", fa(svc.Allowed))
	}

	b.Add("SE", strconv.Itoa(b.SetCount()), stControl)
	b.Add("GE", "1", group)
	b.Add("IEA", "1", fmt.Sprintf("%09d", ctl.Interchange))
	return b.String()
}

// Adjustments attributes a service line's adjustment amount to CAS
// segments, returned as element lists without the tag. The printed EOB only
// gives one adjustment total, so the split is a heuristic:
//
//   - coinsurance is the unexplained patient share, (allowed - paid) -
//     (deductible + copay), when positive
//   - the contractual part is the adjustment amount less the patient
//     share, booked under the first non-patient code with any further codes
//     listed at 0.00
//   - without a contractual code, billed - allowed (or billed, for an
//     unpaid line) is written off as CO 45
//   - deductible, coinsurance and copay become PR 1, 2 and 3
//
// seg is the segment position used in audit entries.
func Adjustments(svc ServiceLine, remapper *codes.Remapper, audit *codes.Audit, seg int) [][]string {
	fa := x12.FormatAmount
	var out [][]string

	var coins float64
	if svc.Allowed > 0 {
		implied := svc.Allowed - svc.Paid
		known := svc.Deductible + svc.Copay
		if implied > known+coinsuranceSlack {
			coins = codes.Round2(implied - known)
		}
	}

	var co []string
	for _, raw := range svc.AdjCodes {
		res := remapper.Resolve(raw)
		audit.Record(codes.TableCARC, seg, res)
		switch res.Standard {
		case "1", "2", "3":
			// Patient share, written as PR below.
		default:
			co = append(co, res.Standard)
		}
	}

	patient := svc.Deductible + svc.Copay + coins
	coNet := codes.Round2(svc.AdjAmount - patient)
	if coNet < 0 {
		coNet = 0
	}
	withExtras := func(amount float64) []string {
		els := []string{"CO", co[0], fa(amount)}
		for i, c := range co[1:] {
			if i == 5 {
				break
			}
			els = append(els, "", c, "0.00")
		}
		return els
	}

	switch {
	case len(co) > 0 && coNet > 0:
		out = append(out, withExtras(coNet))
	case len(co) > 0 && svc.AdjAmount > 0 && patient == 0:
		out = append(out, withExtras(svc.AdjAmount))
	case len(co) == 0 && svc.Allowed > 0 && svc.Billed > svc.Allowed:
		if w := codes.Round2(svc.Billed - svc.Allowed); w > 0 {
			out = append(out, []string{"CO", "45", fa(w)})
		}
	case len(co) == 0 && svc.Paid == 0 && svc.Billed > 0:
		out = append(out, []string{"CO", "45", fa(svc.Billed)})
	}

	if svc.Deductible > 0 {
		out = append(out, []string{"PR", "1", fa(svc.Deductible)})
	}
	if coins > 0 {
		out = append(out, []string{"PR", "2", fa(coins)})
	}
	if svc.Copay > 0 {
		out = append(out, []string{"PR", "3", fa(svc.Copay)})
	}
	return out
}
