package http

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	rules "outofbound/internal/rules/domain"
)

const (
	formatXLSX = "xlsx"
	formatPDF  = "pdf"
)

// ExportInput is the data rendered into a trigger summary export.
type ExportInput struct {
	Instance    string
	Reason      string
	Set         *rules.TriggerSet
	GeneratedAt time.Time
}

type exportRow struct {
	Asset       string
	Datapoint   string
	Limit       float64
	Aggregation string
	Statistic   string
	Interval    uint
	EvalAll     bool
}

// BuildExport renders input in the given format.
func BuildExport(format string, input ExportInput) ([]byte, error) {
	switch format {
	case formatXLSX:
		return BuildTriggersXLSX(input)
	case formatPDF:
		return BuildTriggersPDF(input)
	default:
		return nil, fmt.Errorf("export: unsupported format %q", format)
	}
}

func exportRows(set *rules.TriggerSet) []exportRow {
	var rows []exportRow
	for _, asset := range set.Assets() {
		for _, trigger := range set.Triggers(asset) {
			rows = append(rows, exportRow{
				Asset:       asset,
				Datapoint:   trigger.Datapoint(),
				Limit:       trigger.Limit(),
				Aggregation: trigger.Aggregation().String(),
				Statistic:   trigger.Label(),
				Interval:    trigger.Interval(),
				EvalAll:     trigger.EvalAllDatapoints(),
			})
		}
	}
	return rows
}

// BuildTriggersPDF renders a minimal PDF of the configured triggers.
func BuildTriggersPDF(input ExportInput) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "OutOfBound Triggers")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Rule: %s", input.Instance))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("State: %s", input.Reason))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Assets: %d  Triggers: %d", input.Set.Len(), input.Set.TriggerCount()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", input.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	headers := []string{"Asset", "Datapoint", "Limit", "Evaluation", "Statistic", "Window (s)", "All datapoints"}
	widths := []float64{50, 50, 30, 30, 30, 30, 35}
	pdf.SetFont("Arial", "B", 10)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 6, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range exportRows(input.Set) {
		pdf.CellFormat(widths[0], 6, row.Asset, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, row.Datapoint, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%g", row.Limit), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, row.Aggregation, "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[4], 6, row.Statistic, "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[5], 6, fmt.Sprintf("%d", row.Interval), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[6], 6, fmt.Sprintf("%t", row.EvalAll), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildTriggersXLSX renders a minimal XLSX of the configured triggers.
func BuildTriggersXLSX(input ExportInput) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	triggersSheet := "triggers"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(triggersSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "OutOfBound Triggers")
	_ = f.SetCellValue(summarySheet, "A3", "Rule")
	_ = f.SetCellValue(summarySheet, "B3", input.Instance)
	_ = f.SetCellValue(summarySheet, "A4", "State")
	_ = f.SetCellValue(summarySheet, "B4", input.Reason)
	_ = f.SetCellValue(summarySheet, "A5", "Assets")
	_ = f.SetCellValue(summarySheet, "B5", input.Set.Len())
	_ = f.SetCellValue(summarySheet, "A6", "Triggers")
	_ = f.SetCellValue(summarySheet, "B6", input.Set.TriggerCount())
	_ = f.SetCellValue(summarySheet, "A7", "Generated")
	_ = f.SetCellValue(summarySheet, "B7", input.GeneratedAt.Format(time.RFC3339))

	headers := []string{"Asset", "Datapoint", "Limit", "Evaluation", "Statistic", "Window (s)", "All datapoints"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(triggersSheet, cell, header)
	}
	for i, row := range exportRows(input.Set) {
		values := []any{row.Asset, row.Datapoint, row.Limit, row.Aggregation, row.Statistic, row.Interval, row.EvalAll}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			_ = f.SetCellValue(triggersSheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func contentType(format string) string {
	switch format {
	case formatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case formatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
