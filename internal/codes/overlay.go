package codes

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedOverlay is returned for overlay files with an unknown
// extension.
var ErrUnsupportedOverlay = errors.New("codes: unsupported overlay format")

// overlayRow is one row of a mapping overlay in any format.
type overlayRow struct {
	NonStandard string `yaml:"nonstandard_code"`
	Standard    string `yaml:"standard_code"`
	Description string `yaml:"description"`
}

// LoadOverlay reads a vendor CARC mapping from a .csv, .yaml/.yml or .xlsx
// file. Each format carries the columns nonstandard_code, standard_code and
// description. Rows without both codes are skipped.
func LoadOverlay(path string) (map[string]Mapping, error) {
	var (
		rows []overlayRow
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = loadOverlayCSV(path)
	case ".yaml", ".yml":
		rows, err = loadOverlayYAML(path)
	case ".xlsx":
		rows, err = loadOverlayXLSX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOverlay, path)
	}
	if err != nil {
		return nil, err
	}

	out := make(map[string]Mapping, len(rows))
	for _, r := range rows {
		code := strings.TrimSpace(r.NonStandard)
		std := strings.TrimSpace(r.Standard)
		if code == "" || std == "" {
			continue
		}
		out[code] = Mapping{Standard: std, Description: strings.TrimSpace(r.Description)}
	}
	return out, nil
}

func loadOverlayCSV(path string) ([]overlayRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("codes: open overlay: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("codes: read overlay %s: %w", path, err)
		}
		records = append(records, rec)
	}
	return rowsFromTable(records, path)
}

func loadOverlayYAML(path string) ([]overlayRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("codes: read overlay: %w", err)
	}
	var rows []overlayRow
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("codes: parse overlay %s: %w", path, err)
	}
	return rows, nil
}

func loadOverlayXLSX(path string) ([]overlayRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("codes: open overlay workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("codes: overlay workbook %s has no sheets", path)
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("codes: read sheet %s: %w", sheet, err)
	}
	return rowsFromTable(records, path)
}

// rowsFromTable locates the three columns by header name in the first row.
func rowsFromTable(records [][]string, path string) ([]overlayRow, error) {
	if len(records) == 0 {
		return nil, nil
	}
	col := map[string]int{"nonstandard_code": -1, "standard_code": -1, "description": -1}
	for i, h := range records[0] {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		if _, ok := col[h]; ok {
			col[h] = i
		}
	}
	if col["nonstandard_code"] < 0 || col["standard_code"] < 0 {
		return nil, fmt.Errorf("codes: overlay %s: header must name nonstandard_code and standard_code", path)
	}
	cell := func(rec []string, name string) string {
		i := col[name]
		if i < 0 || i >= len(rec) {
			return ""
		}
		return rec[i]
	}
	rows := make([]overlayRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, overlayRow{
			NonStandard: cell(rec, "nonstandard_code"),
			Standard:    cell(rec, "standard_code"),
			Description: cell(rec, "description"),
		})
	}
	return rows, nil
}
