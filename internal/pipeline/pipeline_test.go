package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/edi/internal/diag"
	"github.com/ehr/edi/internal/platform/x12"
	"github.com/ehr/edi/internal/record"
)

var testNow = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestRunner(workers int) *Runner {
	return NewRunner(Options{Workers: workers, Now: testNow, Logger: zerolog.Nop()})
}

// remittance builds a one-claim 835 with a claim-level vendor adjustment.
func remittance(claimID string) string {
	d := x12.DefaultDelimiters
	b := x12.NewBuilder(d)
	b.AddRaw(x12.ISA(d, "PAYER", "PROVIDER", "20240101", "1200", 1))
	b.Add("GS", "HP", "PAYER", "PROVIDER", "20240101", "1200", "1", "X", "005010X221A1")
	b.Add("ST", "835", "0001")
	b.Add("BPR", "I", "100.00", "C", "CHK")
	b.Add("N1", "PR", "ACME HEALTH", "PI", "P1")
	b.Add("LX", "1")
	b.Add("CLP", claimID, "1", "150.00", "100.00", "0", "12", "PCN-"+claimID)
	b.Add("CAS", "CO", "N007", "50.00")
	b.Add("SE", strconv.Itoa(b.SetCount()), "0001")
	b.Add("GE", "1", "1")
	b.Add("IEA", "1", "000000001")
	return b.String()
}

const (
	hl7Smith = "MSH|^~\\&|ADT|METRO_HEALTH|ETL|DW|20240101120000||ADT^A01|M1|P|2.3\r" +
		"PID|1||P100||SMITH^ANN||19700101|F"
	hl7SmithAgain = "MSH|^~\\&|ADT|METRO_HEALTH|ETL|DW|20240102120000||ADT^A08|M2|P|2.5.1\r" +
		"PID|1||P200||SMITH^ANN||19700101|F|||||5551234567"
	hl7Jones = "MSH|^~\\&|ADT|METRO_HEALTH|ETL|DW|20240102130000||ADT^A04||P|2.5.1\r" +
		"PID|1||P300||JONES^BOB||19650505|M"
)

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{"": KindAuto, "auto": KindAuto, "835": Kind835, " HL7 ": KindHL7, "eob": KindEOB}
	for in, want := range tests {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q): expected %q, got %q (%v)", in, want, got, err)
		}
	}
	if _, err := ParseKind("csv"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Kind
		wantErr bool
	}{
		{"835 interchange", remittance("C1"), Kind835, false},
		{"bare 837", "ST*837*0001*005010X222A1~BHT*0019~SE*2*0001~", Kind837, false},
		{"270", "\r\nST*270*0001~SE*1*0001~", Kind270, false},
		{"271", "ST*271*0001~SE*1*0001~", Kind271, false},
		{"hl7", hl7Smith, KindHL7, false},
		{"eob", "\n   Explanation of Benefits\nPAYER: X\n", KindEOB, false},
		{"unknown X12 set", "ST*999*0001~SE*1*0001~", KindAuto, true},
		{"plain text", "hello world", KindAuto, true},
		{"STATUS is not X12", "STATUS REPORT", KindAuto, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sniff([]byte(tt.data))
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Errorf("expected ErrUnknownFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDecode_Windows1252(t *testing.T) {
	got, err := Decode([]byte{'J', 'O', 'S', 0xC9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "JOSÉ" {
		t.Errorf("expected JOSÉ, got %q", got)
	}

	utf := []byte("JOSÉ")
	if got, _ := Decode(utf); string(got) != "JOSÉ" {
		t.Errorf("expected UTF-8 input unchanged, got %q", got)
	}
}

func TestDeduplicator(t *testing.T) {
	d := NewDeduplicator()
	first := &record.PatientEncounterRecord{File: "a.hl7", System: "system_a", PatientID: "P1", LastName: "Smith", FirstName: "Ann", DOB: "1970-01-01"}
	dup := &record.PatientEncounterRecord{File: "b.hl7", System: "system_b", PatientID: "P2", LastName: "SMITH", FirstName: "ANN", DOB: "1970-01-01", Phone: "(555) 123-4567"}
	blank := &record.PatientEncounterRecord{File: "c.hl7"}

	if !d.Add(first) {
		t.Error("expected the first record to be kept")
	}
	if d.Add(dup) {
		t.Error("expected the duplicate to be dropped")
	}
	if !d.Add(blank) || !d.Add(&record.PatientEncounterRecord{File: "d.hl7"}) {
		t.Error("expected records without a key never to merge")
	}
	if first.Phone != "(555) 123-4567" {
		t.Errorf("expected the blank phone filled from the duplicate, got %q", first.Phone)
	}
	if d.Count() != 1 {
		t.Fatalf("expected 1 duplicate, got %d", d.Count())
	}
	want := DuplicateEntry{
		Key: "SMITH|ANN|1970-01-01", File: "b.hl7", System: "system_b", PatientID: "P2",
		OriginalFile: "a.hl7", OriginalSystem: "system_a", OriginalPatientID: "P1",
	}
	if got := d.Duplicates()[0]; got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"system_b/adt.hl7":  hl7Smith,
		"system_a/adt.hl7":  hl7Smith,
		"remit/0001.835":    remittance("C1"),
		".cache/skip.txt":   "x",
		"system_b/.partial": "x",
	}
	for name, body := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 sources, got %d: %+v", len(got), got)
	}
	wantPaths := []string{"remit/0001.835", "system_a/adt.hl7", "system_b/adt.hl7"}
	wantSystems := []string{"", "system_a", "system_b"}
	for i := range got {
		if got[i].Path != filepath.Join(root, wantPaths[i]) {
			t.Errorf("source %d: expected %s, got %s", i, wantPaths[i], got[i].Path)
		}
		if got[i].System != wantSystems[i] {
			t.Errorf("source %d: expected system %q, got %q", i, wantSystems[i], got[i].System)
		}
	}

	if _, err := Discover(filepath.Join(root, "missing")); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestRun_MixedBatch(t *testing.T) {
	sources := []Source{
		{Name: "remit.835", Data: []byte(remittance("C1"))},
		{Name: "a.hl7", Data: []byte(hl7Smith), System: "system_a"},
		{Name: "b.hl7", Data: []byte(hl7SmithAgain + "\r" + hl7Jones), System: "system_b"},
		{Name: "notes.txt", Data: []byte("nothing to see")},
	}

	res := newTestRunner(2).Run(context.Background(), sources)

	if len(res.Records) != 3 {
		t.Fatalf("expected 3 records after dedup, got %d", len(res.Records))
	}
	c, ok := res.Records[0].(*record.ClaimRecord)
	if !ok || c.ClaimID != "C1" {
		t.Fatalf("expected claim C1 first, got %#v", res.Records[0])
	}
	if c.Adjustments[0].Code != "4" || c.Adjustments[0].OriginalCode != "N007" {
		t.Errorf("expected N007 remapped to 4, got %+v", c.Adjustments[0])
	}

	smith := res.Records[1].(*record.PatientEncounterRecord)
	if smith.File != "a.hl7" || smith.PatientID != "P100" {
		t.Errorf("expected the first-seen SMITH from a.hl7, got %s %s", smith.File, smith.PatientID)
	}
	if smith.Phone == "" {
		t.Error("expected the phone filled in from the duplicate")
	}
	jones := res.Records[2].(*record.PatientEncounterRecord)
	if jones.EncounterID != "ENC000001" {
		t.Errorf("expected ENC000001 for the message without ids, got %q", jones.EncounterID)
	}

	if len(res.Duplicates) != 1 || res.Duplicates[0].File != "b.hl7" || res.Duplicates[0].OriginalFile != "a.hl7" {
		t.Errorf("unexpected duplicates %+v", res.Duplicates)
	}
	if len(res.MappingUsage) != 1 || res.MappingUsage[0].Raw != "N007" || res.MappingUsage[0].File != "remit.835" {
		t.Errorf("unexpected mapping usage %+v", res.MappingUsage)
	}

	if len(res.Errors) != 1 || res.Errors[0].File != "notes.txt" || !errors.Is(res.Errors[0], ErrUnknownFormat) {
		t.Errorf("expected one unknown-format error for notes.txt, got %v", res.Errors)
	}
	counts := diag.CountByKind(res.Diagnostics)
	if counts[diag.FileLevelFailure] != 1 {
		t.Errorf("expected 1 file-level failure, got %v", res.Diagnostics)
	}

	if len(res.Files) != 4 || res.Files[0].Kind != Kind835 || res.Files[2].Kind != KindHL7 {
		t.Errorf("expected per-file results in input order, got %d files", len(res.Files))
	}
	if res.Files[2].System != "system_b" {
		t.Errorf("expected system_b for b.hl7, got %q", res.Files[2].System)
	}
}

func TestRun_ResultsKeepInputOrder(t *testing.T) {
	var sources []Source
	for i := 0; i < 20; i++ {
		id := "C" + strconv.Itoa(i)
		sources = append(sources, Source{Name: id + ".835", Data: []byte(remittance(id))})
	}
	res := newTestRunner(8).Run(context.Background(), sources)

	claims := res.Claims()
	if len(claims) != 20 {
		t.Fatalf("expected 20 claims, got %d", len(claims))
	}
	for i, c := range claims {
		if want := "C" + strconv.Itoa(i); c.ClaimID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, c.ClaimID)
		}
	}
}

func TestRun_ExplicitKindAndMissingFile(t *testing.T) {
	sources := []Source{
		{Path: filepath.Join(t.TempDir(), "gone.835")},
		{Name: "forced.hl7", Data: []byte(hl7Jones), Kind: KindHL7},
	}
	res := newTestRunner(1).Run(context.Background(), sources)

	if len(res.Errors) != 1 || !errors.Is(res.Errors[0], os.ErrNotExist) {
		t.Errorf("expected a not-exist error, got %v", res.Errors)
	}
	if len(res.Records) != 1 {
		t.Errorf("expected the batch to continue past the failed file, got %d records", len(res.Records))
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestRunner(2).Run(ctx, []Source{{Name: "a.835", Data: []byte(remittance("C1"))}})
	if len(res.Errors) != 1 || !errors.Is(res.Errors[0], context.Canceled) {
		t.Errorf("expected a cancellation error, got %v", res.Errors)
	}
	if len(res.Records) != 0 {
		t.Errorf("expected no records, got %d", len(res.Records))
	}
}

func TestConvertEOB(t *testing.T) {
	text := `EXPLANATION OF BENEFITS
PAYER: ACME HEALTH     DATE: 02/01/2024
PAYER ID: P1           EOB NUMBER: E-1
PLAN TYPE: HMO
CLAIM INFORMATION
Claim Number: C-9      Claim Status: PROCESSED
SERVICE DETAILS
1  99213  Visit  $ 100.00  $ 80.00  $ 0.00  $ 0.00  N008  $ 20.00  $ 80.00
TOTALS
Total Billed:  $ 100.00
Total Paid:    $ 80.00
`
	res := newTestRunner(1).Run(context.Background(), []Source{{Name: "eob.txt", Data: []byte(text)}})
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors %v", res.Errors)
	}
	f := res.Files[0]
	if f.Kind != KindEOB || f.Generated == "" || f.EOB == nil {
		t.Fatalf("expected an EOB conversion, got kind %q", f.Kind)
	}
	claims := res.Claims()
	if len(claims) != 1 || claims[0].ClaimID != "C-9" || claims[0].Paid != 80 {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims[0].PlanTypeCode != "HM" {
		t.Errorf("expected plan type HM, got %q", claims[0].PlanTypeCode)
	}
	adjs := claims[0].Lines[0].Adjustments
	if len(adjs) != 1 || adjs[0].Code != "97" || adjs[0].Amount != 20 {
		t.Errorf("expected N008 written as CO 97 20.00, got %+v", adjs)
	}
	if len(res.MappingUsage) != 1 || res.MappingUsage[0].Raw != "N008" {
		t.Errorf("expected the N008 translation audited once, got %+v", res.MappingUsage)
	}
}
