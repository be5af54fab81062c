package eob

import (
	"fmt"
	"strings"

	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/diag"
)

// services reads the SERVICE DETAILS table, skipping its column header.
func (r *reader) services(lines []Line) {
	for _, l := range lines {
		if f := strings.Fields(l.Text); len(f) > 0 && strings.EqualFold(f[0], "Line") {
			continue
		}
		svc, err := parseServiceLine(l.Text)
		if err != nil {
			r.diags.Add(diag.MalformedSegment, l.Number, SectionService, "%v", err)
			continue
		}
		r.eob.Lines = append(r.eob.Lines, svc)
	}
}

// amountScanner walks whitespace tokens from the right, where the dollar
// columns of a service row sit.
type amountScanner struct {
	toks []string
}

// next pops one "$ 12.34" or "$12.34" amount from the end.
func (s *amountScanner) next() (float64, error) {
	n := len(s.toks)
	if n == 0 {
		return 0, fmt.Errorf("missing amount")
	}
	last := s.toks[n-1]
	switch {
	case strings.HasPrefix(last, "$") && len(last) > 1:
		s.toks = s.toks[:n-1]
		return money(last)
	case n >= 2 && s.toks[n-2] == "$":
		s.toks = s.toks[:n-2]
		return money(last)
	}
	return 0, fmt.Errorf("expected an amount, found %q", last)
}

// atAmount reports whether the last token ends a dollar amount.
func (s *amountScanner) atAmount() bool {
	n := len(s.toks)
	if n == 0 {
		return false
	}
	return strings.HasPrefix(s.toks[n-1], "$") || (n >= 2 && s.toks[n-2] == "$")
}

func money(tok string) (float64, error) {
	v, ok := codes.ParseMoney(tok)
	if !ok {
		return 0, fmt.Errorf("invalid amount %q", tok)
	}
	return v, nil
}

// parseServiceLine reads
//
//	Line CPT Description  $Billed $Allowed $Deduct $Copay AdjCodes $AdjAmt $Paid
//
// right to left: the seven amounts and the adjustment codes have fixed
// positions from the end, and whatever precedes them is line number, CPT
// and a free-text description.
func parseServiceLine(text string) (ServiceLine, error) {
	s := &amountScanner{toks: strings.Fields(text)}
	var svc ServiceLine
	var err error

	if svc.Paid, err = s.next(); err != nil {
		return svc, fmt.Errorf("service line paid: %w", err)
	}
	if svc.AdjAmount, err = s.next(); err != nil {
		return svc, fmt.Errorf("service line adjustment amount: %w", err)
	}
	if !s.atAmount() && len(s.toks) > 0 {
		raw := s.toks[len(s.toks)-1]
		s.toks = s.toks[:len(s.toks)-1]
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				svc.AdjCodes = append(svc.AdjCodes, c)
			}
		}
	}
	for _, dst := range []*float64{&svc.Copay, &svc.Deductible, &svc.Allowed, &svc.Billed} {
		if *dst, err = s.next(); err != nil {
			return svc, fmt.Errorf("service line amounts: %w", err)
		}
	}

	if len(s.toks) < 2 {
		return svc, fmt.Errorf("service line %q lacks line number and CPT", text)
	}
	svc.Number = s.toks[0]
	svc.CPT = s.toks[1]
	svc.Description = strings.Join(s.toks[2:], " ")
	return svc, nil
}
