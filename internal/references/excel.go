package references

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/matheusrwh/export-potential/internal/epi"
)

// LoadGrowthTable reads a wide exogenous growth workbook: the first column
// holds the entity code, every following column whose header parses as a
// year holds that year's level. Cells must be absolute levels, not annual
// rates; the growth-index stage derives rates itself. Blank and zero cells
// are treated as missing so partial coverage degrades instead of poisoning
// the compounding.
func LoadGrowthTable(path string) (epi.GrowthTable, error) {
	rows, err := readSheet(path)
	if err != nil {
		return nil, fmt.Errorf("load growth table: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("growth table %s has no data rows", path)
	}

	years := yearColumns(rows[0])
	if len(years) == 0 {
		return nil, fmt.Errorf("growth table %s has no year columns in header %v", path, rows[0])
	}

	table := make(epi.GrowthTable, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		entity := strings.TrimSpace(row[0])
		if entity == "" {
			continue
		}
		levels := make(map[int]float64, len(years))
		for col, year := range years {
			if col >= len(row) {
				continue
			}
			v, ok := parseCell(row[col])
			if !ok || v == 0 {
				continue
			}
			levels[year] = v
		}
		if len(levels) > 0 {
			table[entity] = levels
		}
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("growth table %s has no usable rows", path)
	}
	return table, nil
}

// LoadRegionShares reads the home region's historical share of national
// exports: first column the product code, year columns holding the share
// for that year.
func LoadRegionShares(path string) (epi.ShareTable, error) {
	rows, err := readSheet(path)
	if err != nil {
		return nil, fmt.Errorf("load region share table: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("region share table %s has no data rows", path)
	}

	years := yearColumns(rows[0])
	if len(years) == 0 {
		return nil, fmt.Errorf("region share table %s has no year columns in header %v", path, rows[0])
	}

	table := make(epi.ShareTable, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		product := NormalizeProductCode(row[0])
		if product == "" {
			continue
		}
		shares := make(map[int]float64, len(years))
		for col, year := range years {
			if col >= len(row) {
				continue
			}
			v, ok := parseCell(row[col])
			if !ok {
				continue
			}
			shares[year] = v
		}
		if len(shares) > 0 {
			table[product] = shares
		}
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("region share table %s has no usable rows", path)
	}
	return table, nil
}

// readSheet returns all rows of the first sheet in the workbook.
func readSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// yearColumns maps column index to parsed year for every header cell that
// looks like a calendar year.
func yearColumns(header []string) map[int]int {
	years := make(map[int]int)
	for i, cell := range header {
		if i == 0 {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(cell))
		if err != nil || year < 1900 || year > 2200 {
			continue
		}
		years[i] = year
	}
	return years
}

func parseCell(cell string) (float64, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
