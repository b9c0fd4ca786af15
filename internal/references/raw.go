package references

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/matheusrwh/export-potential/internal/epi"
)

// LoadRawTrade concatenates every raw bilateral trade extract matching the
// glob into one row set. Extracts use the short source header (t, i, j, k,
// v, q) or the long canonical one (year, exporter, importer, product,
// value, quantity); both are accepted per file. Rows with an unparsable
// year or value, or with too few columns, are skipped, matching the
// tolerance of the source extracts.
func LoadRawTrade(glob string) ([]epi.RawTradeRow, error) {
	paths, err := filepath.Glob(glob)
	if err != nil {
		return nil, fmt.Errorf("expand raw trade glob %q: %w", glob, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no raw trade extracts match %q", glob)
	}
	sort.Strings(paths)

	var rows []epi.RawTradeRow
	for _, path := range paths {
		fileRows, err := loadRawTradeFile(path)
		if err != nil {
			return nil, fmt.Errorf("load raw trade extract %s: %w", path, err)
		}
		rows = append(rows, fileRows...)
	}
	return rows, nil
}

func loadRawTradeFile(path string) ([]epi.RawTradeRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	yearIdx := findColumn(header, "t", "year")
	exporterIdx := findColumn(header, "i", "exporter", "exporter_code")
	importerIdx := findColumn(header, "j", "importer", "importer_code")
	productIdx := findColumn(header, "k", "sh6", "product", "product_code")
	valueIdx := findColumn(header, "v", "value")
	quantityIdx := findColumn(header, "q", "quantity")
	if yearIdx < 0 || exporterIdx < 0 || importerIdx < 0 || productIdx < 0 || valueIdx < 0 {
		return nil, fmt.Errorf("required columns not found in header %v", header)
	}

	var rows []epi.RawTradeRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		if yearIdx >= len(record) || exporterIdx >= len(record) ||
			importerIdx >= len(record) || productIdx >= len(record) ||
			valueIdx >= len(record) {
			continue
		}

		year, err := strconv.Atoi(record[yearIdx])
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(record[valueIdx], 64)
		if err != nil {
			continue
		}
		quantity := 0.0
		if quantityIdx >= 0 && quantityIdx < len(record) {
			quantity, _ = strconv.ParseFloat(record[quantityIdx], 64)
		}

		rows = append(rows, epi.RawTradeRow{
			Year:         year,
			ExporterCode: record[exporterIdx],
			ImporterCode: record[importerIdx],
			ProductCode:  NormalizeProductCode(record[productIdx]),
			Value:        value,
			Quantity:     quantity,
		})
	}
	return rows, nil
}
