package placement

import "fmt"

// Rect is a rectangle in PDF user space: origin bottom-left, Y up.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Box is the geometry of a placement in top-left page space.
// Implemented by Absolute and Relative.
type Box interface {
	// Resolve returns the PDF-space rectangle for a page of the given size.
	Resolve(pageWidth, pageHeight float64) Rect
	box()
}

// Absolute is a box in page units.
type Absolute struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Relative is a box expressed as fractions (0..1) of the page dimensions.
type Relative struct {
	XPct      float64
	YPct      float64
	WidthPct  float64
	HeightPct float64
}

func (Absolute) box() {}
func (Relative) box() {}

func (a Absolute) Resolve(_, pageHeight float64) Rect {
	return flip(a.X, a.Y, a.Width, a.Height, pageHeight)
}

func (r Relative) Resolve(pageWidth, pageHeight float64) Rect {
	return flip(
		r.XPct*pageWidth,
		r.YPct*pageHeight,
		r.WidthPct*pageWidth,
		r.HeightPct*pageHeight,
		pageHeight,
	)
}

// flip converts a top-left origin box into PDF space: pdfY = pageHeight - y - height.
func flip(x, y, width, height, pageHeight float64) Rect {
	return Rect{
		X:      x,
		Y:      pageHeight - y - height,
		Width:  width,
		Height: height,
	}
}

func (a Absolute) validate() error {
	if a.Width <= 0 || a.Height <= 0 {
		return fmt.Errorf("%w: width and height must be positive", ErrInvalid)
	}
	if a.X < 0 || a.Y < 0 {
		return fmt.Errorf("%w: x and y must not be negative", ErrInvalid)
	}
	return nil
}

func (r Relative) validate() error {
	if r.WidthPct <= 0 || r.HeightPct <= 0 {
		return fmt.Errorf("%w: width_pct and height_pct must be positive", ErrInvalid)
	}
	for _, v := range []float64{r.XPct, r.YPct, r.WidthPct, r.HeightPct} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: percentage fields must be within 0..1", ErrInvalid)
		}
	}
	return nil
}

// tolerance absorbs float error from percentage boxes that touch a page edge.
const tolerance = 0.01

// Within reports whether the rectangle lies on a page of the given size.
func (r Rect) Within(pageWidth, pageHeight float64) bool {
	return r.X >= -tolerance && r.Y >= -tolerance &&
		r.X+r.Width <= pageWidth+tolerance &&
		r.Y+r.Height <= pageHeight+tolerance
}
