package codes

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadOverlay_CSV(t *testing.T) {
	path := writeFile(t, "map.csv", "nonstandard_code,standard_code,description\n"+
		"N100,50,Not covered\n"+
		"N101,,missing standard\n"+
		" N102 , 16 , Missing info \n")

	m, err := LoadOverlay(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(m))
	}
	if m["N100"].Standard != "50" || m["N100"].Description != "Not covered" {
		t.Errorf("unexpected N100: %+v", m["N100"])
	}
	if m["N102"].Standard != "16" {
		t.Errorf("expected trimmed N102 -> 16, got %+v", m["N102"])
	}
}

func TestLoadOverlay_CSVByteOrderMark(t *testing.T) {
	path := writeFile(t, "map.csv", "\uFEFFnonstandard_code,standard_code,description\nN100,50,Not covered\n")
	m, err := LoadOverlay(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["N100"].Standard != "50" {
		t.Errorf("expected N100 -> 50, got %+v", m["N100"])
	}
}

func TestLoadOverlay_CSVColumnOrder(t *testing.T) {
	path := writeFile(t, "map.csv", "description,standard_code,nonstandard_code\nBundled,97,N200\n")
	m, err := LoadOverlay(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["N200"].Standard != "97" || m["N200"].Description != "Bundled" {
		t.Errorf("unexpected N200: %+v", m["N200"])
	}
}

func TestLoadOverlay_CSVBadHeader(t *testing.T) {
	path := writeFile(t, "map.csv", "code,target\nN1,2\n")
	if _, err := LoadOverlay(path); err == nil {
		t.Error("expected error for missing header columns")
	}
}

func TestLoadOverlay_YAML(t *testing.T) {
	path := writeFile(t, "map.yaml", `
- nonstandard_code: N300
  standard_code: "29"
  description: Late filing
- nonstandard_code: N301
  standard_code: "18"
`)
	m, err := LoadOverlay(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["N300"].Standard != "29" || m["N300"].Description != "Late filing" {
		t.Errorf("unexpected N300: %+v", m["N300"])
	}
	if m["N301"].Standard != "18" {
		t.Errorf("unexpected N301: %+v", m["N301"])
	}
}

func TestLoadOverlay_YAMLInvalid(t *testing.T) {
	path := writeFile(t, "map.yml", "nonstandard_code: [unterminated\n")
	if _, err := LoadOverlay(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadOverlay_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]string{
		{"nonstandard_code", "standard_code", "description"},
		{"N400", "204", "Not in plan"},
		{"N401", "242", "Out of network"},
	}
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	f.Close()

	m, err := LoadOverlay(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(m))
	}
	if m["N401"].Standard != "242" {
		t.Errorf("unexpected N401: %+v", m["N401"])
	}

	r := NewRemapper(m)
	if r.Standard("N400") != "204" {
		t.Errorf("expected remapper to use xlsx overlay")
	}
}

func TestLoadOverlay_Unsupported(t *testing.T) {
	path := writeFile(t, "map.json", "[]")
	_, err := LoadOverlay(path)
	if !errors.Is(err, ErrUnsupportedOverlay) {
		t.Errorf("expected ErrUnsupportedOverlay, got %v", err)
	}
}

func TestLoadOverlay_Missing(t *testing.T) {
	if _, err := LoadOverlay(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}
