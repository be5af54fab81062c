package eob

import (
	"strings"
)

// Section headers recognised in EOB text.
const (
	SectionHeader     = "EXPLANATION OF BENEFITS"
	SectionPatient    = "PATIENT INFORMATION"
	SectionProvider   = "PROVIDER INFORMATION"
	SectionClaim      = "CLAIM INFORMATION"
	SectionService    = "SERVICE DETAILS"
	SectionTotals     = "TOTALS"
	SectionAdjustment = "ADJUSTMENT REASON CODES"
	SectionRemarks    = "REMARKS"
)

var knownSections = map[string]bool{
	SectionHeader: true, SectionPatient: true, SectionProvider: true,
	SectionClaim: true, SectionService: true, SectionTotals: true,
	SectionAdjustment: true, SectionRemarks: true,
}

// Line is one non-blank content line. Number is 0-based in the source.
type Line struct {
	Number int
	Text   string
}

// Section is the run of content lines under one header.
type Section struct {
	Name  string
	Start int
	Lines []Line
}

// Document is EOB text split into sections. Preamble holds content lines
// seen before the first header.
type Document struct {
	Preamble []Line
	Sections []Section
}

// Section returns the first section with name, or nil.
func (d Document) Section(name string) *Section {
	for i := range d.Sections {
		if d.Sections[i].Name == name {
			return &d.Sections[i]
		}
	}
	return nil
}

// isRule reports whether s is a ==== or ---- separator.
func isRule(s string) bool {
	return strings.HasPrefix(s, "====") || strings.HasPrefix(s, "----")
}

// Tokenize splits text into sections keyed on the known headers. Rules
// and blank lines are dropped.
func Tokenize(text string) Document {
	var doc Document
	var cur *Section

	text = strings.ReplaceAll(text, "\r\n", "\n")
	for n, raw := range strings.Split(text, "\n") {
		s := strings.TrimSpace(raw)
		if s == "" || isRule(s) {
			continue
		}
		if name := strings.ToUpper(s); knownSections[name] {
			doc.Sections = append(doc.Sections, Section{Name: name, Start: n})
			cur = &doc.Sections[len(doc.Sections)-1]
			continue
		}
		if cur == nil {
			doc.Preamble = append(doc.Preamble, Line{Number: n, Text: s})
			continue
		}
		cur.Lines = append(cur.Lines, Line{Number: n, Text: s})
	}
	return doc
}

// splitPairs splits a key/value line into fields on runs of two or more
// spaces, then each field at its first colon. Fields without a colon are
// returned with an empty key.
func splitPairs(s string) [][2]string {
	var out [][2]string
	for _, field := range splitWide(s) {
		i := strings.IndexByte(field, ':')
		if i < 0 {
			out = append(out, [2]string{"", field})
			continue
		}
		out = append(out, [2]string{
			strings.ToUpper(strings.TrimSpace(field[:i])),
			strings.TrimSpace(field[i+1:]),
		})
	}
	return out
}

// splitWide cuts s at every run of two or more spaces.
func splitWide(s string) []string {
	var out []string
	start, spaces := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' {
			spaces++
			continue
		}
		if spaces >= 2 || (spaces > 0 && s[i-1] == '\t') {
			if f := strings.TrimSpace(s[start : i-spaces]); f != "" {
				out = append(out, f)
			}
			start = i
		}
		spaces = 0
	}
	if f := strings.TrimSpace(s[start:]); f != "" {
		out = append(out, f)
	}
	return out
}

// codeText splits "CODE: text" at the first colon.
func codeText(s string) (code, text string, ok bool) {
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return "", "", false
	}
	code = strings.TrimSpace(s[:i])
	if strings.ContainsAny(code, " \t") {
		return "", "", false
	}
	return code, strings.TrimSpace(s[i+1:]), true
}
