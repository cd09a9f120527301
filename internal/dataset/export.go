package dataset

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"call-review-go/internal/aggregator"
	"call-review-go/internal/types"
)

const (
	recordsSheet = "Records"
	summarySheet = "Summary"
)

var recordHeader = []any{
	"Record ID", "File Name", "Salesperson's Name", "Prospect's Name", "Estimated Duration", "Created At",
	"pitch_followed", "confidence", "tonality", "energy", "enthusiasm",
	"customer_understanding", "communication_skills", "objection_handling", "closing_skills",
	"Overall Score", "conclusion", "Transcription",
}

// ExportRecords writes the records and their summary as an xlsx workbook.
func ExportRecords(w io.Writer, records []types.CallRecord, summary aggregator.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(recordsSheet, "A1", &recordHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range records {
		row := []any{r.ID, r.FileName, r.SalespersonName, r.ProspectName, r.EstimatedDuration, r.CreatedAt.Format(time.RFC3339)}
		for _, d := range r.Evaluation.Dimensions() {
			row = append(row, d.Score)
		}
		row = append(row, r.Evaluation.OverallScore, r.Evaluation.Conclusion, r.Transcription)
		if err := setRow(f, recordsSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	rows := [][]any{
		{"Metric", "Value"},
		{"Records", summary.Count},
		{"Mean Overall Score", summary.MeanOverallScore},
		{"Weakest Dimension", summary.WeakestDimension},
	}
	for _, name := range (types.Scorecard{}).Dimensions() {
		rows = append(rows, []any{"Mean " + name.Name, summary.DimensionMeans[name.Name]})
	}
	for i, row := range rows {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	ref, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, ref, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
