package pdf

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Geometry describes the actual page list of a parsed document.
type Geometry struct {
	PageCount int
	Dims      []types.Dim // media box sizes in points, indexed by zero-based page
}

// Inspect parses doc and returns its real page geometry. The page count
// cached on a template row is advisory; rendering always works from this.
func Inspect(doc []byte) (*Geometry, error) {
	ctx, err := api.ReadContext(bytes.NewReader(doc), conf())
	if err != nil {
		return nil, err
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, err
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, err
	}
	return &Geometry{PageCount: ctx.PageCount, Dims: dims}, nil
}

// Text is one absolute-positioned draw on a page.
type Text struct {
	Page     int // 1-based
	Value    string
	X, Y     float64 // origin bottom-left, in points
	FontSize float64
}

// Stamp renders doc with the given texts drawn on top and writes the result
// to w. doc is never mutated; every call works from a fresh parse, so
// concurrent callers may share the same template bytes.
func Stamp(doc []byte, texts []Text, w io.Writer) error {
	if len(texts) == 0 {
		// nothing to draw, the output is the pristine document
		_, err := w.Write(doc)
		return err
	}
	byPage := make(map[int][]*model.Watermark, len(texts))
	for _, t := range texts {
		wm, err := watermark(t)
		if err != nil {
			return err
		}
		byPage[t.Page] = append(byPage[t.Page], wm)
	}
	return api.AddWatermarksSliceMap(bytes.NewReader(doc), w, byPage, conf())
}

// watermark builds a single-use pdfcpu stamp: plain black Helvetica anchored
// at the bottom-left page corner and shifted to the absolute position.
// pdfcpu only accepts whole-point font sizes, so the size is rounded.
func watermark(t Text) (*model.Watermark, error) {
	size := int(math.Round(t.FontSize))
	if size < 1 {
		size = 1
	}
	desc := fmt.Sprintf("font:Helvetica, points:%d, scale:1 abs, pos:bl, rot:0, fillc:#000000, op:1", size)
	wm, err := pdfcpu.ParseTextWatermarkDetails(t.Value, desc, true, types.POINTS)
	if err != nil {
		return nil, err
	}
	wm.Dx = t.X
	wm.Dy = t.Y
	return wm, nil
}

func conf() *model.Configuration {
	c := model.NewDefaultConfiguration()
	c.ValidationMode = model.ValidationRelaxed
	return c
}
