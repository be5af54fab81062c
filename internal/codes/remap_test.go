package codes

import (
	"sync"
	"testing"
)

func TestTable_LookupIsTotal(t *testing.T) {
	e := GroupCodes.Lookup("CO")
	if !e.Mapped || e.Description != "Contractual Obligations" {
		t.Errorf("expected CO to resolve, got %+v", e)
	}
	unknown := GroupCodes.Lookup("ZZ")
	if unknown.Mapped {
		t.Error("expected unknown code to be unmapped")
	}
	if unknown.Standard != "ZZ" || unknown.Raw != "ZZ" {
		t.Errorf("expected unknown code to pass through, got %+v", unknown)
	}
}

func TestTable_Codes(t *testing.T) {
	codes := GroupCodes.Codes()
	want := []string{"CO", "CR", "OA", "PI", "PR"}
	if len(codes) != len(want) {
		t.Fatalf("expected %d codes, got %d", len(want), len(codes))
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("expected codes[%d]=%s, got %s", i, want[i], codes[i])
		}
	}
}

func TestNewTable_CopiesInput(t *testing.T) {
	src := map[string]string{"A": "alpha"}
	tbl := NewTable("t", "c", src)
	src["A"] = "changed"
	if tbl.Describe("A", "") != "alpha" {
		t.Error("expected table to be isolated from its source map")
	}
}

func TestRemapper_NonStandard(t *testing.T) {
	r := DefaultRemapper()
	res := r.Resolve("N007")
	if !res.Remapped || !res.Mapped {
		t.Fatalf("expected N007 to be remapped, got %+v", res)
	}
	if res.Standard != "4" {
		t.Errorf("expected standard code 4, got %q", res.Standard)
	}
	if res.Description != "Modifier error" {
		t.Errorf("expected description 'Modifier error', got %q", res.Description)
	}
	if res.StandardDescription != CARC.Describe("4", "") {
		t.Errorf("unexpected standard description %q", res.StandardDescription)
	}
}

func TestRemapper_StandardAndUnknown(t *testing.T) {
	r := DefaultRemapper()
	std := r.Resolve("45")
	if std.Remapped || !std.Mapped || std.Standard != "45" {
		t.Errorf("expected 45 to resolve as standard, got %+v", std)
	}
	unk := r.Resolve("N999")
	if unk.Mapped || unk.Standard != "N999" {
		t.Errorf("expected N999 to pass through unmapped, got %+v", unk)
	}
}

func TestRemapper_Overlay(t *testing.T) {
	r := NewRemapper(map[string]Mapping{
		"N007": {Standard: "16", Description: "Missing modifier"},
		"N500": {Standard: "50", Description: "Not medically necessary"},
		"N501": {Standard: "", Description: "ignored"},
	})
	if got := r.Standard("N007"); got != "16" {
		t.Errorf("expected overlay to replace N007, got %q", got)
	}
	if got := r.Standard("N500"); got != "50" {
		t.Errorf("expected overlay to add N500, got %q", got)
	}
	if r.Resolve("N501").Mapped {
		t.Error("expected overlay row without standard code to be skipped")
	}
	if r.Len() != len(defaultNonStandard)+1 {
		t.Errorf("expected %d mappings, got %d", len(defaultNonStandard)+1, r.Len())
	}
	if DefaultRemapper().Standard("N007") != "4" {
		t.Error("expected overlay not to leak into other remappers")
	}
}

func TestRemapper_ConcurrentResolve(t *testing.T) {
	r := DefaultRemapper()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if r.Standard("N003") != "197" {
					t.Error("unexpected mapping for N003")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestAudit_OneUsagePerOccurrence(t *testing.T) {
	r := DefaultRemapper()
	a := NewAudit("eob1.txt")
	// N007 appears on two service lines.
	a.Record(TableCARC, 10, r.Resolve("N007"))
	a.Record(TableCARC, 14, r.Resolve("N007"))
	a.Record(TableCARC, 15, r.Resolve("45"))
	a.Record(TableCARC, 16, r.Resolve("N999"))

	usages := a.Usages()
	if len(usages) != 2 {
		t.Fatalf("expected 2 usages, got %d", len(usages))
	}
	if usages[0].File != "eob1.txt" || usages[0].Standard != "4" || usages[0].Description != "Modifier error" {
		t.Errorf("unexpected usage: %+v", usages[0])
	}
	if len(a.Unmapped()) != 1 || a.Unmapped()[0].Raw != "N999" {
		t.Errorf("expected N999 unmapped, got %+v", a.Unmapped())
	}

	summary := a.Summary()
	if len(summary) != 2 {
		t.Fatalf("expected 2 summary rows, got %d", len(summary))
	}
	if summary[0].Raw != "N007" || summary[0].Count != 2 || !summary[0].Mapped {
		t.Errorf("unexpected first row: %+v", summary[0])
	}
	if summary[1].Raw != "N999" || summary[1].Mapped {
		t.Errorf("unexpected second row: %+v", summary[1])
	}
}

func TestAudit_Merge(t *testing.T) {
	r := DefaultRemapper()
	a := NewAudit("a.txt")
	b := NewAudit("b.txt")
	a.Record(TableCARC, 1, r.Resolve("N001"))
	b.Record(TableCARC, 1, r.Resolve("N001"))
	b.RecordUnmapped(TableRARC, 2, "X99")

	total := NewAudit("")
	total.Merge(a)
	total.Merge(b)
	total.Merge(nil)

	if len(total.Usages()) != 2 {
		t.Errorf("expected 2 usages, got %d", len(total.Usages()))
	}
	if total.Usages()[1].File != "b.txt" {
		t.Errorf("expected usage attributed to b.txt, got %q", total.Usages()[1].File)
	}
	if len(total.Unmapped()) != 1 {
		t.Errorf("expected 1 unmapped, got %d", len(total.Unmapped()))
	}
}

func TestAudit_NilSafe(t *testing.T) {
	var a *Audit
	a.Record(TableCARC, 0, DefaultRemapper().Resolve("N001"))
	if a.Usages() != nil || a.Summary() != nil {
		t.Error("expected nil audit to be inert")
	}
}

func TestPlanTypeName(t *testing.T) {
	if got := PlanTypeName("PP"); got != "PPO" {
		t.Errorf("expected PPO, got %q", got)
	}
	if got := PlanTypeName("12"); got != "Medicare Secondary Working Aged Beneficiary" {
		t.Errorf("unexpected name %q", got)
	}
	if got := PlanTypeName("Q9"); got != "Q9" {
		t.Errorf("expected unknown code unchanged, got %q", got)
	}
}
