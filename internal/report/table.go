package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/raykov/gofpdf"

	"mockdesk/dashboard/internal/listing"
	"mockdesk/dashboard/internal/metrics"
	"mockdesk/dashboard/internal/model"
)

// Column is one column of the booking report. Weight is relative to the other
// columns; widths are scaled to the printable width.
type Column struct {
	Header string
	Weight float64
	Value  func(b model.Booking, loc *time.Location) string
}

var BookingColumns = []Column{
	{Header: "#", Weight: 0.5},
	{Header: "Name", Weight: 2.2, Value: func(b model.Booking, _ *time.Location) string { return b.CandidateName() }},
	{Header: "Email", Weight: 3, Value: func(b model.Booking, _ *time.Location) string { return b.CandidateEmail() }},
	{Header: "Phone", Weight: 1.6, Value: func(b model.Booking, _ *time.Location) string { return b.CandidatePhone() }},
	{Header: "Test", Weight: 1.6, Value: func(b model.Booking, _ *time.Location) string { return b.TestName }},
	{Header: "Type", Weight: 1.2, Value: func(b model.Booking, _ *time.Location) string { return b.TestType }},
	{Header: "System", Weight: 1.2, Value: func(b model.Booking, _ *time.Location) string { return b.TestSystem }},
	{Header: "Date", Weight: 1.3, Value: func(b model.Booking, loc *time.Location) string { return listing.CivilDate(b.Date, loc) }},
	{Header: "Time", Weight: 1.4, Value: func(b model.Booking, _ *time.Location) string { return TimeRange(b.StartTime, b.EndTime) }},
	{Header: "Attendance", Weight: 1.3, Value: func(b model.Booking, _ *time.Location) string { return string(b.AttendanceStatus()) }},
}

// TimeRange joins start and end as "start - end", tolerating either being empty.
func TimeRange(start, end string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start != "" && end != "":
		return start + " - " + end
	case start != "":
		return start
	default:
		return ""
	}
}

// ColumnWidths scales column weights to fill width.
func ColumnWidths(cols []Column, width float64) []float64 {
	total := 0.0
	for _, c := range cols {
		total += c.Weight
	}
	out := make([]float64, len(cols))
	if total <= 0 {
		return out
	}
	for i, c := range cols {
		out[i] = width * c.Weight / total
	}
	return out
}

type TableReport struct {
	Title       string
	TestName    string
	Date        string
	Time        string
	GeneratedAt time.Time
	Location    *time.Location
	Rows        []model.Booking
}

// ReportFilename is booking_requests_<YYYY-MM-DD>.<ext> in loc.
func ReportFilename(now time.Time, loc *time.Location, ext string) string {
	return "booking_requests_" + listing.Today(now, loc) + "." + ext
}

const (
	rowHeight    = 7.0
	headerHeight = 8.0
	tableFont    = 8.0
)

// RenderBookingReport writes a landscape A4 booking table. The header row repeats
// on every page and empty cells print N/A.
func RenderBookingReport(w io.Writer, r TableReport) (int, error) {
	pdf, tr := newDocument("L")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(false, 10)
	pageW, pageH := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	widths := ColumnWidths(BookingColumns, pageW-left-right)

	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	generated := r.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	title := r.Title
	if title == "" {
		title = "Booking Requests"
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range [][2]string{
		{"Test", orMissing(r.TestName)},
		{"Date", orMissing(r.Date)},
		{"Time", orMissing(r.Time)},
		{"Generated", generated.In(loc).Format("2006-01-02 15:04")},
	} {
		pdf.CellFormat(0, 5.5, tr(line[0]+": "+line[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	drawHeader := func() {
		pdf.SetFont("Helvetica", "B", tableFont)
		pdf.SetFillColor(230, 230, 230)
		for i, col := range BookingColumns {
			pdf.CellFormat(widths[i], headerHeight, tr(col.Header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", tableFont)
	}
	drawHeader()

	for n, b := range r.Rows {
		if pdf.GetY()+rowHeight > pageH-bottom {
			pdf.AddPage()
			drawHeader()
		}
		for i, col := range BookingColumns {
			var text string
			if col.Value == nil {
				text = strconv.Itoa(n + 1)
			} else {
				text = orMissing(strings.TrimSpace(col.Value(b, loc)))
			}
			pdf.CellFormat(widths[i], rowHeight, fit(pdf, tr(text), widths[i]-2), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(r.Rows) == 0 {
		pdf.CellFormat(0, rowHeight, "No bookings", "1", 1, "C", false, 0, "")
	}

	pages, err := finish(pdf, w)
	if err == nil {
		metrics.Renders.WithLabelValues("booking_report").Inc()
	}
	return pages, err
}

// fit shortens already translated text with an ellipsis until it fits width.
func fit(pdf *gofpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	for len(text) > 0 {
		text = text[:len(text)-1]
		candidate := text + "..."
		if pdf.GetStringWidth(candidate) <= width {
			return candidate
		}
	}
	return ""
}
