package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"spccvault/internal"
	"spccvault/internal/util"
)

// BuildReviewRows flattens the session for export, resolving facility names
// from the cached directory.
func BuildReviewRows(session *Session, facilityNames map[int]string) []internal.ReviewExportRow {
	rows := session.Rows()
	out := make([]internal.ReviewExportRow, 0, len(rows))
	for _, row := range rows {
		exportRow := internal.ReviewExportRow{
			DocName:     row.Doc.Name,
			MatchStatus: string(row.Status),
			Confidence:  string(row.Confidence),
			Fragment:    row.Fragment,
			PlanDate:    row.PlanDateRaw,
			Ready:       RowReady(row),
			ErrDetail:   row.ExtractErr,
		}
		if row.FacilityID != nil {
			exportRow.FacilityID = row.FacilityID
			if name, ok := facilityNames[*row.FacilityID]; ok {
				exportRow.FacilityName = util.StringPtr(name)
			}
		}
		out = append(out, exportRow)
	}
	return out
}

func ExportReviewRows(rows []internal.ReviewExportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"document", "match_status", "confidence", "facility_id", "facility_name",
		"matched_fragment", "plan_date", "ready", "error_detail",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.DocName)
		set(2, row.MatchStatus)
		set(3, row.Confidence)
		set(4, derefInt(row.FacilityID))
		set(5, derefString(row.FacilityName))
		set(6, row.Fragment)
		set(7, row.PlanDate)
		set(8, row.Ready)
		set(9, row.ErrDetail)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func ExportOutcomes(outcomes []internal.ApplyOutcome, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{"document", "facility_id", "status", "plan_ref", "error_detail"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, o := range outcomes {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, o.DocName)
		set(2, o.FacilityID)
		set(3, string(o.Status))
		set(4, o.PlanRef)
		set(5, o.ErrDetail)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
