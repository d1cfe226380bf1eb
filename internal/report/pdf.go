package report

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/raykov/gofpdf"
)

const missing = "N/A"

func newDocument(orientation string) (*gofpdf.Fpdf, func(string) string) {
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetCompression(true)
	pdf.SetCreator("mockdesk dashboard", true)
	return pdf, pdf.UnicodeTranslatorFromDescriptor("")
}

// finish writes the document to w once it is known to be complete. Nothing is
// written when the document carries an error.
func finish(pdf *gofpdf.Fpdf, w io.Writer) (int, error) {
	if err := pdf.Error(); err != nil {
		return 0, errors.Wrap(err, "render pdf")
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, errors.Wrap(err, "render pdf")
	}
	pages := pdf.PageCount()
	if _, err := w.Write(buf.Bytes()); err != nil {
		return 0, errors.Wrap(err, "write pdf")
	}
	return pages, nil
}

func orMissing(v string) string {
	if v == "" {
		return missing
	}
	return v
}
