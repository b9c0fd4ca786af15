// Package references loads the reference and exogenous tables the pipeline
// joins against: country and product code mappings, population and GDP
// growth tables, and the home region's historical export share table.
package references

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadCountries reads the country reference table: one row per source code
// with its canonical ISO3 code. Display names are accepted but not kept;
// the pipeline only needs the code mapping.
//
// Expected header: numeric_or_text_code, canonical_iso3_code, display_name
// (column names matched loosely, order-independent).
func LoadCountries(path string) (map[string]string, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load country table: %w", err)
	}

	codeIdx := findColumn(header, "country_code", "code", "numeric_or_text_code")
	isoIdx := findColumn(header, "country_iso3", "iso3", "canonical_iso3_code")
	if codeIdx < 0 || isoIdx < 0 {
		return nil, fmt.Errorf("country table %s: code or iso3 column not found in header %v", path, header)
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		if codeIdx >= len(row) || isoIdx >= len(row) {
			continue
		}
		code := strings.TrimSpace(row[codeIdx])
		iso := strings.TrimSpace(row[isoIdx])
		if code == "" || iso == "" {
			continue
		}
		out[code] = iso
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("country table %s has no usable rows", path)
	}
	return out, nil
}

// LoadProducts reads a product reference table: product code to description.
// The same loader serves the primary table and an optional localized
// description table.
func LoadProducts(path string) (map[string]string, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load product table: %w", err)
	}

	codeIdx := findColumn(header, "code", "sh6", "product_code")
	descIdx := findColumn(header, "description", "product_description")
	if codeIdx < 0 || descIdx < 0 {
		return nil, fmt.Errorf("product table %s: code or description column not found in header %v", path, header)
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		if codeIdx >= len(row) || descIdx >= len(row) {
			continue
		}
		code := NormalizeProductCode(row[codeIdx])
		if code == "" {
			continue
		}
		out[code] = strings.TrimSpace(row[descIdx])
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("product table %s has no usable rows", path)
	}
	return out, nil
}

// NormalizeProductCode canonicalizes a 6-digit product category code:
// trimmed and left-zero-padded to fixed width.
func NormalizeProductCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	for len(code) < 6 {
		code = "0" + code
	}
	return code
}

func readCSV(path string) (rows [][]string, header []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err = r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}

func findColumn(header []string, names ...string) int {
	for i, col := range header {
		col = strings.ToLower(strings.TrimSpace(col))
		for _, name := range names {
			if col == name {
				return i
			}
		}
	}
	return -1
}
