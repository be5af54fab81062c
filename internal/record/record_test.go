package record

import "testing"

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		code string
		paid float64
		want string
	}{
		{"1", 80, StatusProcessed},
		{"4", 0, StatusDenied},
		{"4", 10, StatusDenied},
		{"1", 0, StatusDenied},
		{"22", 50, StatusProcessed},
	}
	for _, tt := range tests {
		if got := DeriveStatus(tt.code, tt.paid); got != tt.want {
			t.Errorf("DeriveStatus(%q, %v): expected %s, got %s", tt.code, tt.paid, tt.want, got)
		}
	}
}

func TestClaimRecord_ComputeTotals(t *testing.T) {
	c := &ClaimRecord{
		ClaimID: "CLM001",
		Billed:  250,
		Paid:    150,
		Adjustments: []Adjustment{
			{Group: "PR", Code: "1", Amount: 20},
		},
		Lines: []ServiceLine{
			{Billed: 150, Paid: 100, Adjustments: []Adjustment{{Group: "CO", Code: "45", Amount: 30}}},
			{Billed: 100, Paid: 50, Adjustments: []Adjustment{{Group: "CO", Code: "45", Amount: 50}}},
		},
	}
	c.ComputeTotals()
	if c.LineBilled != 250 {
		t.Errorf("expected line billed 250, got %v", c.LineBilled)
	}
	if c.LinePaid != 150 {
		t.Errorf("expected line paid 150, got %v", c.LinePaid)
	}
	if c.AdjustmentTotal != 100 {
		t.Errorf("expected adjustment total 100, got %v", c.AdjustmentTotal)
	}
	if err := c.CheckBalance(); err != nil {
		t.Errorf("expected balanced claim, got %v", err)
	}
}

func TestClaimRecord_CheckBalance(t *testing.T) {
	c := &ClaimRecord{ClaimID: "CLM002", Billed: 100, Paid: 90, Adjustments: []Adjustment{{Amount: 10}}}
	c.ComputeTotals()
	if err := c.CheckBalance(); err != nil {
		t.Errorf("expected balanced claim, got %v", err)
	}

	c.Adjustments = []Adjustment{{Amount: 20}}
	c.ComputeTotals()
	if err := c.CheckBalance(); err == nil {
		t.Error("expected imbalance to be reported")
	}
}

func TestClaimRecord_FirstAdjustmentAndRemark(t *testing.T) {
	c := &ClaimRecord{Lines: []ServiceLine{
		{},
		{Adjustments: []Adjustment{{Group: "CO", Code: "197"}}, Remarks: []Remark{{Code: "N130"}}},
	}}
	adj, ok := c.FirstAdjustment()
	if !ok || adj.Code != "197" {
		t.Errorf("expected first line adjustment 197, got %+v", adj)
	}
	if got := c.FirstRemark(); got != "N130" {
		t.Errorf("expected remark N130, got %q", got)
	}

	c.Adjustments = []Adjustment{{Group: "PR", Code: "1"}}
	if adj, _ := c.FirstAdjustment(); adj.Code != "1" {
		t.Errorf("expected claim adjustment first, got %q", adj.Code)
	}
}

func TestRecordKinds(t *testing.T) {
	recs := []Record{
		&ClaimRecord{File: "a.835"},
		NewEligibilityRecord("b.271", "271"),
		&PatientEncounterRecord{File: "c.hl7"},
	}
	want := []Kind{KindClaim, KindEligibility, KindEncounter}
	for i, r := range recs {
		if r.Kind() != want[i] {
			t.Errorf("expected kind %s, got %s", want[i], r.Kind())
		}
	}
	if recs[1].SourceFile() != "b.271" {
		t.Errorf("expected source b.271, got %q", recs[1].SourceFile())
	}
}

func TestNewEligibilityRecord_Defaults(t *testing.T) {
	e := NewEligibilityRecord("f", "271")
	if e.Provider.NetworkStatus != "Unknown" || e.Provider.Participating != "Unknown" {
		t.Errorf("expected Unknown provider defaults, got %+v", e.Provider)
	}
}

func TestEligibilityRecord_SetCopayKeepsOrder(t *testing.T) {
	e := NewEligibilityRecord("f", "271")
	e.SetCopay("copay_98", 40)
	e.SetCopay("copay_51", 150)
	e.SetCopay("copay_98", 45)
	if len(e.CopayKeys) != 2 || e.CopayKeys[0] != "copay_98" || e.CopayKeys[1] != "copay_51" {
		t.Errorf("unexpected key order %v", e.CopayKeys)
	}
	if e.Copays["copay_98"] != 45 {
		t.Errorf("expected replaced amount 45, got %v", e.Copays["copay_98"])
	}
}

func TestPatientEncounterRecord_DedupKey(t *testing.T) {
	p := &PatientEncounterRecord{LastName: "doe", FirstName: "John", DOB: "1980-01-01"}
	if got := p.DedupKey(); got != "DOE|JOHN|1980-01-01" {
		t.Errorf("unexpected key %q", got)
	}
	empty := &PatientEncounterRecord{}
	if got := empty.DedupKey(); got != "" {
		t.Errorf("expected empty key, got %q", got)
	}
}

func TestPatientEncounterRecord_FillFrom(t *testing.T) {
	first := &PatientEncounterRecord{PatientID: "P1", LastName: "DOE", Gender: "U"}
	dup := &PatientEncounterRecord{
		PatientID: "P9",
		Phone:     "(555) 555-1234",
		Gender:    "M",
		Diagnoses: []EncounterDiagnosis{{Code: "I10"}},
	}
	first.FillFrom(dup)
	if first.PatientID != "P1" {
		t.Errorf("expected first-seen id kept, got %q", first.PatientID)
	}
	if first.Phone != "(555) 555-1234" {
		t.Errorf("expected phone filled, got %q", first.Phone)
	}
	if first.Gender != "M" {
		t.Errorf("expected unknown gender filled, got %q", first.Gender)
	}
	if len(first.Diagnoses) != 1 {
		t.Errorf("expected diagnoses filled, got %d", len(first.Diagnoses))
	}
}

func TestLookup(t *testing.T) {
	refs := []Reference{{Qualifier: "6R", Value: "L1"}, {Qualifier: "EA", Value: "ACC9"}}
	if got := Lookup(refs, "EA"); got != "ACC9" {
		t.Errorf("expected ACC9, got %q", got)
	}
	if got := Lookup(refs, "F8"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
