package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"mockdesk/dashboard/internal/auth"
	"mockdesk/dashboard/internal/backend"
	"mockdesk/dashboard/internal/listing"
	"mockdesk/dashboard/internal/model"
	"mockdesk/dashboard/internal/operations"
	"mockdesk/dashboard/internal/report"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	backend  *backend.Client
	ops      *operations.Service
	token    string
	out      io.Writer
	location *time.Location
	now      func() time.Time
}

const localTokenTTL = 15 * time.Minute

// cliToken returns the DASH_TOKEN value, or a short-lived admin token signed with the
// shared JWT secret when none is set.
func cliToken(token, secret, issuer string) (string, error) {
	if token != "" || secret == "" {
		return token, nil
	}
	return auth.NewAccessToken(secret, issuer, localTokenTTL, auth.Claims{
		UserID: "dashctl",
		Name:   "dashctl",
		Role:   auth.RoleAdmin,
	})
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  bookings [-schedule ID] [-home] [-search TEXT] [-window all|past|today|upcoming] [-page N] [-per-page N] [-sort KEY] [-desc]")
	fmt.Fprintln(cli.out, "  report   [-schedule ID] [-home] [-search TEXT] [-window W] [-o FILE]   write the booking PDF report")
	fmt.Fprintln(cli.out, "  export   [-schedule ID] [-home] [-search TEXT] [-window W] [-o FILE]   write the booking xlsx export")
	fmt.Fprintln(cli.out, "  trf      -user ID -schedule ID [-o FILE]                               write a candidate's TRF PDF")
}

type bookingFlags struct {
	schedule string
	home     bool
	search   string
	window   string
	sort     string
	desc     bool
	page     int
	perPage  int
}

func (f *bookingFlags) register(fs *flag.FlagSet, paged bool) {
	fs.StringVar(&f.schedule, "schedule", "", "Schedule id; empty lists every booking.")
	fs.BoolVar(&f.home, "home", false, "List home bookings instead of schedule bookings.")
	fs.StringVar(&f.search, "search", "", "Case-insensitive name or email search.")
	fs.StringVar(&f.window, "window", "all", "Date window: all, past, today or upcoming.")
	fs.StringVar(&f.sort, "sort", "date", "Sort key.")
	fs.BoolVar(&f.desc, "desc", false, "Sort descending.")
	if paged {
		fs.IntVar(&f.page, "page", 1, "Page number.")
		fs.IntVar(&f.perPage, "per-page", listing.DefaultPageSize, "Rows per page.")
	}
}

func (f *bookingFlags) query(loc *time.Location, now time.Time) listing.Query {
	values := url.Values{}
	values.Set("search", f.search)
	values.Set("window", f.window)
	values.Set("sort_by", f.sort)
	if f.desc {
		values.Set("order", "desc")
	}
	if f.page > 0 {
		values.Set("page", strconv.Itoa(f.page))
	}
	if f.perPage > 0 {
		values.Set("per_page", strconv.Itoa(f.perPage))
	}
	q := listing.ParseQuery(values, loc, "date")
	q.Now = now
	return q
}

func (f *bookingFlags) scope() backend.BookingScope {
	return backend.BookingScope{ScheduleID: f.schedule, Home: f.home}
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx = backend.WithToken(ctx, cli.token)

	switch args[1] {
	case "bookings":
		var f bookingFlags
		fs := cli.flagSet("bookings")
		f.register(fs, true)
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.bookings(ctx, f)
	case "report", "export":
		var f bookingFlags
		fs := cli.flagSet(args[1])
		f.register(fs, false)
		output := fs.String("o", "", "Output file; defaults to booking_requests_<date>.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if args[1] == "report" {
			return cli.report(ctx, f, *output)
		}
		return cli.export(ctx, f, *output)
	case "trf":
		fs := cli.flagSet("trf")
		userID := fs.String("user", "", "Candidate user id.")
		scheduleID := fs.String("schedule", "", "Schedule id.")
		output := fs.String("o", "", "Output file; defaults to IELTS_TRF_<FirstName>.pdf.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *userID == "" || *scheduleID == "" {
			fs.Usage()
			return errHelp
		}
		return cli.trf(ctx, *userID, *scheduleID, *output)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) bookings(ctx context.Context, f bookingFlags) error {
	rows, err := cli.backend.ListBookings(ctx, f.scope())
	if err != nil {
		return err
	}
	page := listing.Apply(rows, f.query(cli.location, cli.now()))

	table := tablewriter.NewWriter(cli.out)
	headers := make([]string, len(report.BookingColumns))
	for i, col := range report.BookingColumns {
		headers[i] = col.Header
	}
	table.SetHeader(headers)
	offset := (page.Meta.Page - 1) * page.Meta.PerPage
	for n, b := range page.Items {
		table.Append(bookingCells(b, offset+n+1, cli.location))
	}
	table.Render()

	color.New(color.FgCyan).Fprintf(cli.out, "page %d of %d, %d bookings\n",
		page.Meta.Page, page.Meta.TotalPages, page.Meta.Total)
	return nil
}

func bookingCells(b model.Booking, n int, loc *time.Location) []string {
	cells := make([]string, len(report.BookingColumns))
	for i, col := range report.BookingColumns {
		if col.Value == nil {
			cells[i] = strconv.Itoa(n)
			continue
		}
		v := col.Value(b, loc)
		if v == "" {
			v = "N/A"
		}
		cells[i] = v
	}
	return cells
}

func (cli *commandLine) filtered(ctx context.Context, f bookingFlags) ([]model.Booking, error) {
	rows, err := cli.backend.ListBookings(ctx, f.scope())
	if err != nil {
		return nil, err
	}
	q := f.query(cli.location, cli.now())
	rows = listing.Filter(rows, q)
	listing.Sort(rows, q)
	return rows, nil
}

func (cli *commandLine) report(ctx context.Context, f bookingFlags, output string) error {
	rows, err := cli.filtered(ctx, f)
	if err != nil {
		return err
	}
	rep := report.TableReport{GeneratedAt: cli.now(), Location: cli.location, Rows: rows}
	if f.schedule != "" && len(rows) > 0 {
		rep.TestName = rows[0].TestName
		rep.Date = listing.CivilDate(rows[0].Date, cli.location)
		rep.Time = report.TimeRange(rows[0].StartTime, rows[0].EndTime)
	}
	var buf bytes.Buffer
	pages, err := report.RenderBookingReport(&buf, rep)
	if err != nil {
		return err
	}
	if output == "" {
		output = report.ReportFilename(cli.now(), cli.location, "pdf")
	}
	return cli.write(output, buf.Bytes(), fmt.Sprintf("%d bookings, %d pages", len(rows), pages))
}

func (cli *commandLine) export(ctx context.Context, f bookingFlags, output string) error {
	rows, err := cli.filtered(ctx, f)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := report.WriteBookingWorkbook(&buf, rows, cli.location); err != nil {
		return err
	}
	if output == "" {
		output = report.ReportFilename(cli.now(), cli.location, "xlsx")
	}
	return cli.write(output, buf.Bytes(), fmt.Sprintf("%d bookings", len(rows)))
}

func (cli *commandLine) trf(ctx context.Context, userID, scheduleID, output string) error {
	doc, err := cli.ops.RenderTRF(ctx, userID, scheduleID)
	if err != nil {
		return err
	}
	if output == "" {
		output = doc.Filename
	}
	return cli.write(output, doc.PDF, fmt.Sprintf("%d pages", doc.Pages))
}

func (cli *commandLine) write(path string, data []byte, summary string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(cli.out, "wrote %s (%s)\n", path, summary)
	return nil
}
