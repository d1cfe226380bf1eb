package report

import (
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/raykov/gofpdf"
	"go.uber.org/zap"

	"mockdesk/dashboard/internal/metrics"
)

const (
	pxToMM = PageWidthMM / DesignWidth
	pxToPt = 0.75
)

type TRFOptions struct {
	// Logo is raw image data; undecodable data is skipped.
	Logo      []byte
	TileScale int
	Logger    *zap.Logger
}

// RenderTRF writes the two-page A4 portrait form. On error nothing is written to w.
func RenderTRF(w io.Writer, data TRFData, opts TRFOptions) (int, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	pdf, tr := newDocument("P")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	data.HasLogo = false
	if len(opts.Logo) > 0 {
		if png, _, err := normalizeImage(opts.Logo); err != nil {
			log.Warn("trf logo skipped", zap.Error(err))
		} else {
			pdf.RegisterImageOptionsReader(logoKey, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
			data.HasLogo = !pdf.Err()
		}
	}

	scale := opts.TileScale
	if scale < minTileScale {
		scale = minTileScale
	}
	for _, mirrored := range []bool{false, true} {
		tile, err := encodePNG(StripeTile(scale, mirrored))
		if err != nil {
			return 0, err
		}
		pdf.RegisterImageOptionsReader(tileKey(mirrored), gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(tile))
	}

	layout := BuildTRF(data)
	for _, page := range layout.Pages {
		pdf.AddPage()
		for _, el := range page.Elements {
			drawElement(pdf, tr, el)
		}
	}
	if pdf.PageCount() != len(layout.Pages) {
		return 0, errors.Errorf("render trf: expected %d pages, got %d", len(layout.Pages), pdf.PageCount())
	}

	pages, err := finish(pdf, w)
	if err == nil {
		metrics.Renders.WithLabelValues("trf").Inc()
	}
	return pages, err
}

func tileKey(mirrored bool) string {
	if mirrored {
		return "stripe_tile_mirrored"
	}
	return "stripe_tile"
}

func mm(px float64) float64 { return px * pxToMM }

func drawElement(pdf *gofpdf.Fpdf, tr func(string) string, el Element) {
	x, y, w, h := mm(el.Box.X), mm(el.Box.Y), mm(el.Box.W), mm(el.Box.H)
	switch el.Kind {
	case KindText:
		setFont(pdf, el.Style)
		pdf.SetXY(x, y)
		pdf.CellFormat(w, h, tr(el.DisplayText()), "", 0, align(el.Style)+"M", false, 0, "")
	case KindField:
		pdf.SetDrawColor(60, 60, 60)
		pdf.SetLineWidth(0.25)
		pdf.Rect(x, y, w, h, "D")
		setFont(pdf, el.Style)
		pad := mm(el.Style.Padding)
		if el.Field == FieldTextarea {
			drawTextarea(pdf, tr, el, x+pad, y+pad, w-2*pad, h-2*pad)
			return
		}
		pdf.SetXY(x+pad, y)
		pdf.CellFormat(w-2*pad, h, fit(pdf, tr(el.DisplayText()), w-2*pad), "", 0, align(el.Style)+"M", false, 0, "")
	case KindStripes:
		drawStripes(pdf, el, x, y, w, h)
	case KindImage:
		pdf.ImageOptions(el.ImageKey, x, y, w, h, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	case KindRule:
		pdf.SetDrawColor(120, 120, 120)
		pdf.SetLineWidth(0.2)
		pdf.Line(x, y, x+w, y)
	}
}

// drawTextarea wraps text inside the box and drops lines that do not fit.
func drawTextarea(pdf *gofpdf.Fpdf, tr func(string) string, el Element, x, y, w, h float64) {
	lineHeight := mm(el.Style.FontSize * lineHeightOf(el.Style))
	maxLines := int(h / lineHeight)
	var lines []string
	for _, para := range strings.Split(el.DisplayText(), "\n") {
		split := pdf.SplitLines([]byte(tr(para)), w)
		if len(split) == 0 {
			lines = append(lines, "")
		}
		for _, l := range split {
			lines = append(lines, string(l))
		}
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	for i, line := range lines {
		pdf.SetXY(x, y+float64(i)*lineHeight)
		pdf.CellFormat(w, lineHeight, line, "", 0, align(el.Style), false, 0, "")
	}
}

// drawStripes repeats the stripe tile across the banner, clipped to its box.
func drawStripes(pdf *gofpdf.Fpdf, el Element, x, y, w, h float64) {
	tile := mm(tileSize)
	key := tileKey(el.Mirrored)
	pdf.ClipRect(x, y, w, h, false)
	for ty := y; ty < y+h; ty += tile {
		for tx := x; tx < x+w; tx += tile {
			pdf.ImageOptions(key, tx, ty, tile, tile, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		}
	}
	pdf.ClipEnd()
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.2)
	pdf.Rect(x, y, w, h, "D")
}

func setFont(pdf *gofpdf.Fpdf, s Style) {
	style := ""
	if s.Bold {
		style = "B"
	}
	size := s.FontSize
	if size <= 0 {
		size = 10
	}
	pdf.SetFont("Helvetica", style, size*pxToPt)
	pdf.SetTextColor(0, 0, 0)
}

func align(s Style) string {
	switch s.Align {
	case "C", "R":
		return s.Align
	default:
		return "L"
	}
}

func lineHeightOf(s Style) float64 {
	if s.LineHeight <= 0 {
		return 1.2
	}
	return s.LineHeight
}
