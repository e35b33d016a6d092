package assembler

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/JaimeStill/missive/internal/placement"
)

// overlay is a placement ready to stamp: a PNG sized for its box, the PDF
// space rectangle it fills, and the factor mapping PNG pixels to points.
type overlay struct {
	page  int
	rect  placement.Rect
	png   []byte
	scale float64
}

type page struct {
	width  float64
	height float64
}

func pdfConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// pages reads the dimensions of every page in PDF user space units.
func pages(pdf []byte) ([]page, error) {
	dims, err := api.PageDims(bytes.NewReader(pdf), pdfConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}
	if len(dims) == 0 {
		return nil, ErrNoPages
	}

	out := make([]page, len(dims))
	for i, d := range dims {
		out[i] = page{width: d.Width, height: d.Height}
	}
	return out, nil
}

// stamp draws each overlay on top of its page content, in order.
func stamp(pdf []byte, overlays []overlay) ([]byte, error) {
	current := pdf
	for _, o := range overlays {
		desc := fmt.Sprintf(
			"position:bl, offset:%.2f %.2f, scalefactor:%.6f abs, rotation:0, opacity:1",
			o.rect.X, o.rect.Y, o.scale,
		)

		wm, err := api.ImageWatermarkForReader(bytes.NewReader(o.png), desc, true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("build overlay for page %d: %w", o.page, err)
		}

		var out bytes.Buffer
		selected := []string{strconv.Itoa(o.page)}
		if err := api.AddWatermarks(bytes.NewReader(current), &out, selected, wm, pdfConfig()); err != nil {
			return nil, fmt.Errorf("stamp page %d: %w", o.page, err)
		}
		current = out.Bytes()
	}
	return current, nil
}
