// Package pdfsample writes small, valid PDF files.  Minimal builds its file
// directly with pdfstruct; Text and Protected lay out their page with gofpdf,
// so the objects come from an independent writer.
package pdfsample

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"

	"github.com/RaphOrg/PDF-Toolkit-CLI/pdfstruct"
)

// Minimal writes a PDF 1.5 file with a catalog, a page tree, and one empty
// 200x200 page, and no document information dictionary.
func Minimal(path string) error {
	doc := pdfstruct.New("1.5")
	pages := doc.NewObjectID()
	page := doc.NewObjectID()
	content := doc.NewObjectID()
	catalog := doc.NewObjectID()
	doc.UpdateObject(content, pdfstruct.Stream{Dict: pdfstruct.Dict{}})
	doc.UpdateObject(pages, pdfstruct.Dict{
		"Type":  pdfstruct.Name("Pages"),
		"Kids":  pdfstruct.Array{page},
		"Count": 1,
	})
	doc.UpdateObject(page, pdfstruct.Dict{
		"Type":     pdfstruct.Name("Page"),
		"Parent":   pages,
		"MediaBox": pdfstruct.Array{0, 0, 200, 200},
		"Contents": content,
	})
	doc.UpdateObject(catalog, pdfstruct.Dict{
		"Type":  pdfstruct.Name("Catalog"),
		"Pages": pages,
	})
	doc.Trailer["Root"] = catalog
	return doc.Save(path)
}

// Options describes the content of a gofpdf-generated sample.  Metadata
// strings are written as single-byte text, so they should be ASCII.
type Options struct {
	Title   string
	Author  string
	Subject string
	// Lines are drawn one per line at the top of the single page.
	Lines []string
}

// Text writes a one-page A4 PDF with gofpdf.
func Text(path string, opts Options) error {
	pdf := newFpdf(opts)
	return render(pdf, path, opts)
}

// Protected writes the same file as Text, protected with 40-bit RC4 using the
// given passwords and allowing printing only.  An empty owner password is
// replaced by a random one.
//
// gofpdf's own SetProtection runs every string of an object through a single
// keystream, so only the first string in each dictionary decrypts.  The
// encryption is therefore applied here, after gofpdf has laid out the page.
func Protected(path, userPassword, ownerPassword string, opts Options) error {
	var buf bytes.Buffer
	pdf := newFpdf(opts)
	layout(pdf, opts)
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("rendering sample: %w", err)
	}
	doc, err := pdfstruct.Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("reading rendered sample: %w", err)
	}
	if err = seal(doc, userPassword, ownerPassword); err != nil {
		return err
	}
	return doc.Save(path)
}

func newFpdf(opts Options) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, false)
	}
	if opts.Author != "" {
		pdf.SetAuthor(opts.Author, false)
	}
	if opts.Subject != "" {
		pdf.SetSubject(opts.Subject, false)
	}
	pdf.SetCreator("pdfx", false)
	return pdf
}

func layout(pdf *gofpdf.Fpdf, opts Options) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	for i, line := range opts.Lines {
		pdf.Text(20, 20+float64(i)*7, line)
	}
}

func render(pdf *gofpdf.Fpdf, path string, opts Options) error {
	layout(pdf, opts)
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("rendering sample: %w", err)
	}
	return pdf.OutputFileAndClose(path)
}
