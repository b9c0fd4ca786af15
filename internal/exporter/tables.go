package exporter

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/matheusrwh/export-potential/internal/epi"
)

// Writer persists every table of a completed pipeline run.
type Writer struct {
	csv    *CSVWriter
	dir    string
	logger *slog.Logger
}

// NewWriter creates a result writer rooted at the output directory.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{csv: NewCSVWriter(dir, logger), dir: dir, logger: logger}
}

// WriteResult replaces the full output set of the previous run.
func (w *Writer) WriteResult(res *epi.Result) error {
	if err := w.writeRecords(res.Records); err != nil {
		return fmt.Errorf("write EPI table: %w", err)
	}
	if err := w.writeProducts(res.Products); err != nil {
		return fmt.Errorf("write product aggregates: %w", err)
	}
	if err := w.writeMarkets(res.Markets); err != nil {
		return fmt.Errorf("write market aggregates: %w", err)
	}
	if err := w.writeSupply(res.Supply); err != nil {
		return fmt.Errorf("write supply projections: %w", err)
	}
	if err := w.writeDemand(res.Demand); err != nil {
		return fmt.Errorf("write demand projections: %w", err)
	}
	if err := w.writeEase(res.Ease); err != nil {
		return fmt.Errorf("write ease scores: %w", err)
	}
	if err := w.writeBilateral(res.Bilateral); err != nil {
		return fmt.Errorf("write bilateral detail: %w", err)
	}
	return nil
}

func (w *Writer) writeRecords(records []epi.EpiRecord) error {
	headers := []string{"exporter", "importer", "sh6", "product_description",
		"bilateral_realized", "projected_import_value", "epi_score_raw",
		"epi_score_normalized", "unrealized_potential", "tier"}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Exporter, r.Importer, r.Product, r.ProductDescription,
			formatFloat(r.BilateralRealized), formatFloat(r.ProjectedImportValue),
			formatFloat(r.EpiScoreRaw), formatFloat(r.EpiScoreNormalized),
			formatFloat(r.UnrealizedPotential), r.Tier,
		})
	}
	return w.csv.Write("epi_scores.csv", headers, rows)
}

func (w *Writer) writeProducts(aggs []epi.ProductAggregate) error {
	headers := []string{"sh6", "product_description", "bilateral_realized",
		"projected_import_value", "epi_score_normalized", "unrealized_potential",
		"realization_ratio", "tier"}
	rows := make([][]string, 0, len(aggs))
	for _, a := range aggs {
		rows = append(rows, []string{
			a.Product, a.ProductDescription,
			formatFloat(a.BilateralRealized), formatFloat(a.ProjectedImportValue),
			formatFloat(a.EpiScoreNormalized), formatFloat(a.UnrealizedPotential),
			formatFloat(a.RealizationRatio), a.Tier,
		})
	}
	return w.csv.Write("epi_scores_products.csv", headers, rows)
}

func (w *Writer) writeMarkets(aggs []epi.MarketAggregate) error {
	headers := []string{"importer", "bilateral_realized", "projected_import_value",
		"epi_score_normalized", "unrealized_potential", "realization_ratio", "tier"}
	rows := make([][]string, 0, len(aggs))
	for _, a := range aggs {
		rows = append(rows, []string{
			a.Importer,
			formatFloat(a.BilateralRealized), formatFloat(a.ProjectedImportValue),
			formatFloat(a.EpiScoreNormalized), formatFloat(a.UnrealizedPotential),
			formatFloat(a.RealizationRatio), a.Tier,
		})
	}
	return w.csv.Write("epi_scores_markets.csv", headers, rows)
}

func (w *Writer) writeSupply(projections []epi.SupplyProjection) error {
	headers := []string{"exporter", "sh6", "product_description",
		"weighted_exports", "projected_exports", "projected_share"}
	rows := make([][]string, 0, len(projections))
	for _, p := range projections {
		rows = append(rows, []string{
			p.Exporter, p.Product, p.ProductDescription,
			formatFloat(p.WeightedExports), formatFloat(p.ProjectedExports),
			formatFloat(p.ProjectedShare),
		})
	}
	return w.csv.Write("supply_potential.csv", headers, rows)
}

func (w *Writer) writeDemand(projections []epi.DemandProjection) error {
	headers := []string{"importer", "sh6", "product_description",
		"weighted_imports", "demand_index", "projected_import_value"}
	rows := make([][]string, 0, len(projections))
	for _, p := range projections {
		rows = append(rows, []string{
			p.Importer, p.Product, p.ProductDescription,
			formatFloat(p.WeightedImports), formatFloat(p.DemandIndex),
			formatFloat(p.ProjectedImportValue),
		})
	}
	return w.csv.Write("demand_potential.csv", headers, rows)
}

func (w *Writer) writeEase(scores []epi.EaseScore) error {
	headers := []string{"importer", "realized_exports", "addressable_value", "ease_of_trade"}
	rows := make([][]string, 0, len(scores))
	for _, s := range scores {
		rows = append(rows, []string{
			s.Importer,
			formatFloat(s.Realized), formatFloat(s.Potential), formatFloat(s.Ease),
		})
	}
	return w.csv.Write("ease_of_trade.csv", headers, rows)
}

func (w *Writer) writeBilateral(flows []epi.BilateralFlow) error {
	headers := []string{"exporter", "importer", "sh6", "weighted_bilateral_exports"}
	rows := make([][]string, 0, len(flows))
	for _, f := range flows {
		rows = append(rows, []string{
			f.Exporter, f.Importer, f.Product, formatFloat(f.Value),
		})
	}
	return w.csv.Write("bilateral_exports.csv", headers, rows)
}

// WriteFocusExcel writes the EPI rows of one product to an Excel workbook,
// the hand-off format the analysts work with for single-product deep dives.
func (w *Writer) WriteFocusExcel(records []epi.EpiRecord, product string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	headers := []string{"exporter", "importer", "sh6", "product_description",
		"bilateral_realized", "projected_import_value", "epi_score_normalized",
		"unrealized_potential", "tier"}
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("resolve header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header cell: %w", err)
		}
	}

	rowNum := 2
	for _, r := range records {
		if r.Product != product {
			continue
		}
		values := []interface{}{r.Exporter, r.Importer, r.Product, r.ProductDescription,
			r.BilateralRealized, r.ProjectedImportValue, r.EpiScoreNormalized,
			r.UnrealizedPotential, r.Tier}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
			if err != nil {
				return fmt.Errorf("resolve cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write cell: %w", err)
			}
		}
		rowNum++
	}

	path := filepath.Join(w.dir, fmt.Sprintf("epi_scores_%s.xlsx", product))
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	w.logger.Info("wrote focus product workbook",
		"path", path,
		"rows", rowNum-2,
	)
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
