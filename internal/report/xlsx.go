package report

import (
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"mockdesk/dashboard/internal/metrics"
	"mockdesk/dashboard/internal/model"
)

const bookingSheet = "Bookings"

// WriteBookingWorkbook exports the report rows as an xlsx workbook with a frozen
// header row.
func WriteBookingWorkbook(w io.Writer, rows []model.Booking, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", bookingSheet); err != nil {
		return errors.Wrap(err, "xlsx sheet")
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E6E6E6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return errors.Wrap(err, "xlsx style")
	}

	widths := ColumnWidths(BookingColumns, 160)
	for i, col := range BookingColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(bookingSheet, cell, col.Header); err != nil {
			return errors.Wrap(err, "xlsx header")
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(bookingSheet, name, name, widths[i]); err != nil {
			return errors.Wrap(err, "xlsx width")
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(BookingColumns), 1)
	if err := f.SetCellStyle(bookingSheet, "A1", lastHeader, headerStyle); err != nil {
		return errors.Wrap(err, "xlsx style")
	}

	for r, b := range rows {
		for i, col := range BookingColumns {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			var value any = r + 1
			if col.Value != nil {
				value = orMissing(strings.TrimSpace(col.Value(b, loc)))
			}
			if err := f.SetCellValue(bookingSheet, cell, value); err != nil {
				return errors.Wrap(err, "xlsx cell")
			}
		}
	}
	if err := f.SetPanes(bookingSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return errors.Wrap(err, "xlsx panes")
	}
	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "xlsx write")
	}
	metrics.Renders.WithLabelValues("booking_xlsx").Inc()
	return nil
}
