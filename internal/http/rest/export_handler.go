package rest

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/bwise1/campus_safety/internal/model"
	"github.com/bwise1/campus_safety/util/values"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	exportSheet       = "Reports"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportHeaderRow   = 3
	exportColumnWidth = 20
)

var exportHeaders = []string{"ID", "Type", "Urgency", "Status", "Latitude", "Longitude", "Time", "Description", "Photo", "Created", "Updated"}

// ExportReports streams every report as an xlsx workbook.
func (api *API) ExportReports(w http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	reports, status, message, err := api.ListReportsHelper(r.Context())
	if err != nil {
		api.logFailure("exporting reports", status, err, &tc)
		return respondWithError(err, message, status, &tc)
	}

	now := time.Now()
	buffer, err := reportsWorkbook(reports, now)
	if err != nil {
		api.Logger.Error("building workbook", zap.String("request_id", tc.RequestID), zap.Error(err))
		return respondWithError(err, "Failed to export reports", values.Error, &tc)
	}

	filename := fmt.Sprintf("reports_%s.xlsx", now.Format("20060102_150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buffer.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buffer.Bytes())
	return nil
}

func reportsWorkbook(reports []model.Report, now time.Time) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}

	f.SetCellValue(exportSheet, "A1", "Campus safety reports")
	f.SetCellStyle(exportSheet, "A1", "A1", titleStyle)
	f.SetCellValue(exportSheet, "A2", fmt.Sprintf("Generated: %s", now.Format("2006-01-02 15:04:05")))

	for col, label := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, exportHeaderRow)
		f.SetCellValue(exportSheet, cell, label)
		f.SetCellStyle(exportSheet, cell, cell, headerStyle)

		name, _ := excelize.ColumnNumberToName(col + 1)
		f.SetColWidth(exportSheet, name, name, exportColumnWidth)
	}

	for i, report := range reports {
		row := exportHeaderRow + 1 + i
		cells := []interface{}{
			report.ID.String(),
			report.Type,
			report.Urgency,
			report.Status,
			report.Lat,
			report.Lng,
			report.Time.Format("2006-01-02 15:04:05"),
			report.Description,
			report.Photo,
			report.CreatedAt.Format("2006-01-02 15:04:05"),
			report.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(exportSheet, start, &cells); err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}
