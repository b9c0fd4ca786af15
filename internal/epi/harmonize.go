package epi

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// RawTradeRow is one row of a raw bilateral trade extract, codes still in
// their source numeric form and values in source units.
type RawTradeRow struct {
	Year         int     `json:"year"`
	ExporterCode string  `json:"exporter_code"`
	ImporterCode string  `json:"importer_code"`
	ProductCode  string  `json:"product_code"`
	Value        float64 `json:"value"`
	Quantity     float64 `json:"quantity"`
}

// Mappings holds the reference tables the harmonizer joins against.
// Countries maps source country codes to ISO3. Products maps product codes
// to descriptions; LocalizedProducts, when present, takes precedence for the
// description while the primary table still decides whether a code is known.
type Mappings struct {
	Countries         map[string]string
	Products          map[string]string
	LocalizedProducts map[string]string
}

// Harmonize concatenated raw extracts into the canonical TradeRecord table:
// codes mapped to ISO3/descriptions, values rescaled to base monetary units,
// duplicate (year, exporter, importer, product) keys summed. Rows whose
// exporter, importer or product has no reference match are dropped and
// counted on the audit. The operation is pure and idempotent for identical
// inputs.
func Harmonize(ctx context.Context, logger *slog.Logger, rows []RawTradeRow, maps Mappings, p Params, audit *Audit) ([]TradeRecord, error) {
	if len(maps.Countries) == 0 {
		return nil, fmt.Errorf("country reference table is empty")
	}
	if len(maps.Products) == 0 {
		return nil, fmt.Errorf("product reference table is empty")
	}

	type key struct {
		Year int
		Flow FlowKey
	}
	merged := make(map[key]*TradeRecord, len(rows))

	for _, row := range rows {
		exporter, ok := maps.Countries[row.ExporterCode]
		if !ok {
			audit.UnmappedCountry.Add(1)
			continue
		}
		importer, ok := maps.Countries[row.ImporterCode]
		if !ok {
			audit.UnmappedCountry.Add(1)
			continue
		}
		description, ok := maps.Products[row.ProductCode]
		if !ok {
			audit.UnmappedProduct.Add(1)
			continue
		}
		if localized, ok := maps.LocalizedProducts[row.ProductCode]; ok && localized != "" {
			description = localized
		}

		k := key{Year: row.Year, Flow: FlowKey{Exporter: exporter, Importer: importer, Product: row.ProductCode}}
		if existing, ok := merged[k]; ok {
			existing.Value += row.Value * p.UnitMultiplier
			existing.Quantity += row.Quantity
			continue
		}
		merged[k] = &TradeRecord{
			Year:               row.Year,
			Exporter:           exporter,
			Importer:           importer,
			Product:            row.ProductCode,
			ProductDescription: description,
			Value:              row.Value * p.UnitMultiplier,
			Quantity:           row.Quantity,
		}
	}

	records := make([]TradeRecord, 0, len(merged))
	for _, rec := range merged {
		records = append(records, *rec)
	}
	// Deterministic order regardless of map iteration.
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Exporter != b.Exporter {
			return a.Exporter < b.Exporter
		}
		if a.Importer != b.Importer {
			return a.Importer < b.Importer
		}
		return a.Product < b.Product
	})

	logger.InfoContext(ctx, "harmonized raw trade extracts",
		"raw_rows", len(rows),
		"harmonized_rows", len(records),
		"unmapped_country_rows", audit.UnmappedCountry.Load(),
		"unmapped_product_rows", audit.UnmappedProduct.Load(),
	)

	return records, nil
}
