// Package pdftest builds throwaway PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// MinimalPDF returns a parseable PDF with the given number of pages, each
// carrying a media box of width x height points and its own no-op content
// stream. Readers locate the trailer by scanning a fixed-size tail window,
// so the header is followed by a padding comment that keeps even a one-page
// document above that window size.
func MinimalPDF(pages int, width, height float64) []byte {
	if pages < 1 {
		pages = 1
	}
	var buf bytes.Buffer
	var offsets []int
	writeObj := func(s string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(s)
	}

	buf.WriteString("%PDF-1.4\n")
	buf.WriteString("%" + strings.Repeat("=", 510) + "\n")

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}

	writeObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	writeObj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
		strings.Join(kids, " "), pages))
	content := "q Q\n"
	for i := 0; i < pages; i++ {
		pageObj := 3 + 2*i
		writeObj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << >> /Contents %d 0 R >>\nendobj\n",
			pageObj, width, height, pageObj+1))
		writeObj(fmt.Sprintf("%d 0 obj\n<< /Length %d >>\nstream\n%sendstream\nendobj\n",
			pageObj+1, len(content), content))
	}

	xrefOffset := buf.Len()
	buf.WriteString(fmt.Sprintf("xref\n0 %d\n", len(offsets)+1))
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
	}
	buf.WriteString(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefOffset))
	return buf.Bytes()
}

func readContext(doc []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(bytes.NewReader(doc), conf)
	if err != nil {
		return nil, err
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

// PageOps returns the decoded content stream operators of the given 1-based
// page.
func PageOps(doc []byte, page int) (string, error) {
	ctx, err := readContext(doc)
	if err != nil {
		return "", err
	}
	r, err := pdfcpu.ExtractPageContent(ctx, page)
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(r)
	return string(b), err
}

// PageForms returns the decoded contents of every form XObject hanging off
// the page's resource dict, concatenated. Text drawn on top of a page ends
// up in one of these.
func PageForms(doc []byte, page int) (string, error) {
	ctx, err := readContext(doc)
	if err != nil {
		return "", err
	}
	d, _, _, err := ctx.PageDict(page, false)
	if err != nil {
		return "", err
	}
	res, err := ctx.DereferenceDict(d["Resources"])
	if err != nil || res == nil {
		return "", err
	}
	xo, err := ctx.DereferenceDict(res["XObject"])
	if err != nil || xo == nil {
		return "", err
	}
	var b strings.Builder
	for _, o := range xo {
		sd, _, err := ctx.DereferenceStreamDict(o)
		if err != nil {
			return "", err
		}
		if err := sd.Decode(); err != nil {
			return "", err
		}
		b.Write(sd.Content)
	}
	return b.String(), nil
}
