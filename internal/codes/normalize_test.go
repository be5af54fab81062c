package codes

import "testing"

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"19800101", "1980-01-01"},
		{"202401151430", "2024-01-15"},
		{"20240115143025", "2024-01-15"},
		{"20240115143025.1234-0500", "2024-01-15"},
		{"01/15/2024", "2024-01-15"},
		{"2024-01-15", "2024-01-15"},
		{"  ", ""},
		{"2024", "2024"},
		{"20241399", "20241399"},
		{" not a date ", "not a date"},
	}
	for _, tt := range tests {
		if got := NormalizeDate(tt.in); got != tt.want {
			t.Errorf("NormalizeDate(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestNormalizeDateTime(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"20240115143025", "2024-01-15 14:30:25"},
		{"20240115143025.0000-0500", "2024-01-15 14:30:25"},
		{"202401151430", "2024-01-15 14:30:00"},
		{"20240115", "2024-01-15 00:00:00"},
		{"2024", "2024"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeDateTime(tt.in); got != tt.want {
			t.Errorf("NormalizeDateTime(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestDisplayDate(t *testing.T) {
	if got := DisplayDate("20241231"); got != "12/31/2024" {
		t.Errorf("expected 12/31/2024, got %q", got)
	}
	if got := DisplayDate("2024"); got != "2024" {
		t.Errorf("expected short input unchanged, got %q", got)
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"555-555-1234", "(555) 555-1234"},
		{"1 (555) 555 1234", "(555) 555-1234"},
		{"5551234", "5551234"},
		{" ext 12 ", "ext 12"},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, last, first string
	}{
		{"DOE^JOHN", "DOE", "JOHN"},
		{"Doe^John^A", "DOE", "JOHN"},
		{"Doe, Jane", "DOE", "JANE"},
		{"Jane Q Doe", "DOE", "JANE"},
		{"Cher", "CHER", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		last, first := NormalizeName(tt.in)
		if last != tt.last || first != tt.first {
			t.Errorf("NormalizeName(%q): expected (%q, %q), got (%q, %q)", tt.in, tt.last, tt.first, last, first)
		}
	}
	if got := DisplayName("DOE", "JOHN"); got != "DOE, JOHN" {
		t.Errorf("expected 'DOE, JOHN', got %q", got)
	}
	if got := DisplayName("DOE", ""); got != "DOE" {
		t.Errorf("expected 'DOE', got %q", got)
	}
}

func TestNormalizeAddress(t *testing.T) {
	a := NormalizeAddress("123 MAIN ST", "springfield", "il", "62701-1234")
	if a.Street != "123 Main St" {
		t.Errorf("expected street '123 Main St', got %q", a.Street)
	}
	if a.City != "Springfield" {
		t.Errorf("expected city 'Springfield', got %q", a.City)
	}
	if a.State != "IL" {
		t.Errorf("expected state IL, got %q", a.State)
	}
	if a.Zip != "62701" {
		t.Errorf("expected zip 62701, got %q", a.Zip)
	}

	short := NormalizeAddress("", "", "", "627")
	if short.Zip != "627" {
		t.Errorf("expected short zip kept, got %q", short.Zip)
	}
}

func TestNormalizeGender(t *testing.T) {
	for in, want := range map[string]string{"M": "M", "male": "M", "F": "F", "Female": "F", "O": "U", "": "U"} {
		if got := NormalizeGender(in); got != want {
			t.Errorf("NormalizeGender(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestNormalizeSSN(t *testing.T) {
	if got := NormalizeSSN("123456789"); got != "123-45-6789" {
		t.Errorf("expected 123-45-6789, got %q", got)
	}
	if got := NormalizeSSN(" 1234 "); got != "1234" {
		t.Errorf("expected trimmed input, got %q", got)
	}
}

func TestValidateICD10(t *testing.T) {
	tests := []struct {
		in      string
		valid   bool
		cleaned string
	}{
		{"E11.9", true, "E11.9"},
		{" i10 ", true, "I10"},
		{"S72001A", true, "S72001A"},
		{"250.00", false, "250.00"},
		{"", false, ""},
	}
	for _, tt := range tests {
		ok, cleaned := ValidateICD10(tt.in)
		if ok != tt.valid || cleaned != tt.cleaned {
			t.Errorf("ValidateICD10(%q): expected (%v, %q), got (%v, %q)", tt.in, tt.valid, tt.cleaned, ok, cleaned)
		}
	}
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"100.00", 100, true},
		{"$ 1,145.00", 1145, true},
		{"12.346", 12.35, true},
		{"", 0, true},
		{"abc", 0, false},
		{"-5.00", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseMoney(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseMoney(%q): expected (%v, %v), got (%v, %v)", tt.in, tt.want, tt.ok, got, ok)
		}
	}
}

func TestIsNonStandard(t *testing.T) {
	for code, want := range map[string]bool{"N007": true, "N1234": true, "N12": false, "45": false, "M15": false} {
		if got := IsNonStandard(code); got != want {
			t.Errorf("IsNonStandard(%q): expected %v, got %v", code, want, got)
		}
	}
}

func TestFacilityName(t *testing.T) {
	tests := []struct {
		raw, system, want string
		hit               bool
	}{
		{"METRO_HEALTH", "system_a", "Metro Health Medical Center", true},
		{"valleymedassoc", "system_b", "Valley Medical Associates", true},
		{"PINNACLE", "system_c", "Pinnacle Healthcare Group", true},
		{"Lakeside Clinic", "system_a", "Lakeside Clinic", false},
		{"", "system_b", "Unknown Facility (system_b)", false},
	}
	for _, tt := range tests {
		got, hit := FacilityName(tt.raw, tt.system)
		if got != tt.want || hit != tt.hit {
			t.Errorf("FacilityName(%q): expected (%q, %v), got (%q, %v)", tt.raw, tt.want, tt.hit, got, hit)
		}
	}
}

func TestPlanTypeCode(t *testing.T) {
	for text, want := range map[string]string{
		"Blue PPO Plus":      "PP",
		"Medicare Advantage": "MA",
		"MEDICAID":           "MC",
		"Acme HMO Gold":      "HM",
		"Commercial":         "ZZ",
	} {
		if got := PlanTypeCode(text); got != want {
			t.Errorf("PlanTypeCode(%q): expected %q, got %q", text, want, got)
		}
	}
}
