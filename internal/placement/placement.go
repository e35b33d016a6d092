// Package placement describes where an overlay image (signature, stamp or
// verification QR code) is drawn on a PDF page.
//
// Coordinates are authored in the on-screen editing space: origin at the
// top-left corner of the page, Y growing downward. Resolve converts them into
// PDF user space, whose origin is the bottom-left corner.
package placement

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind discriminates the placement variants.
type Kind string

// Placement kinds.
const (
	KindSignature Kind = "signature"
	KindStamp     Kind = "stamp"
	KindQRCode    Kind = "qrcode"
)

// ErrInvalid indicates a placement record that cannot describe an overlay.
var ErrInvalid = errors.New("invalid placement")

// Placement is implemented by Signature, Stamp and QRCode only.
type Placement interface {
	Kind() Kind
	Page() int
	Geometry() Box
	placement()
}

// Signature overlays a signer's signature image.
type Signature struct {
	PageNumber int
	Box        Box
	Source     string
}

// Stamp overlays an organization stamp image.
type Stamp struct {
	PageNumber int
	Box        Box
	Source     string
}

// QRCode marks where the verification code is drawn. Its image is generated
// when the final artifact is assembled.
type QRCode struct {
	PageNumber int
	Box        Box
}

func (Signature) Kind() Kind { return KindSignature }
func (Stamp) Kind() Kind     { return KindStamp }
func (QRCode) Kind() Kind    { return KindQRCode }

func (s Signature) Page() int { return s.PageNumber }
func (s Stamp) Page() int     { return s.PageNumber }
func (q QRCode) Page() int    { return q.PageNumber }

func (s Signature) Geometry() Box { return s.Box }
func (s Stamp) Geometry() Box     { return s.Box }
func (q QRCode) Geometry() Box    { return q.Box }

func (Signature) placement() {}
func (Stamp) placement()     {}
func (QRCode) placement()    {}

// SourceRef returns the image reference for signature and stamp placements
// and the empty string for QR codes.
func SourceRef(p Placement) string {
	switch v := p.(type) {
	case Signature:
		return v.Source
	case Stamp:
		return v.Source
	default:
		return ""
	}
}

// Record is the wire and storage shape of a placement. Either the absolute
// fields or the percentage fields describe the box; absolute fields win when
// Width is set.
type Record struct {
	Type       Kind    `json:"type"`
	PageNumber int     `json:"page_number"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Width      float64 `json:"width,omitempty"`
	Height     float64 `json:"height,omitempty"`
	XPct       float64 `json:"x_pct,omitempty"`
	YPct       float64 `json:"y_pct,omitempty"`
	WidthPct   float64 `json:"width_pct,omitempty"`
	HeightPct  float64 `json:"height_pct,omitempty"`
	SourceRef  string  `json:"source_ref,omitempty"`
}

// Decode validates a record and returns the matching variant.
func Decode(r Record) (Placement, error) {
	if r.PageNumber < 1 {
		return nil, fmt.Errorf("%w: page_number must be at least 1", ErrInvalid)
	}

	box, err := r.box()
	if err != nil {
		return nil, err
	}

	switch r.Type {
	case KindSignature:
		if r.SourceRef == "" {
			return nil, fmt.Errorf("%w: signature requires source_ref", ErrInvalid)
		}
		return Signature{PageNumber: r.PageNumber, Box: box, Source: r.SourceRef}, nil
	case KindStamp:
		if r.SourceRef == "" {
			return nil, fmt.Errorf("%w: stamp requires source_ref", ErrInvalid)
		}
		return Stamp{PageNumber: r.PageNumber, Box: box, Source: r.SourceRef}, nil
	case KindQRCode:
		return QRCode{PageNumber: r.PageNumber, Box: box}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalid, r.Type)
	}
}

// Encode flattens a placement into its record form.
func Encode(p Placement) Record {
	r := Record{
		Type:       p.Kind(),
		PageNumber: p.Page(),
		SourceRef:  SourceRef(p),
	}

	switch b := p.Geometry().(type) {
	case Absolute:
		r.X, r.Y, r.Width, r.Height = b.X, b.Y, b.Width, b.Height
	case Relative:
		r.XPct, r.YPct, r.WidthPct, r.HeightPct = b.XPct, b.YPct, b.WidthPct, b.HeightPct
	}

	return r
}

func (r Record) box() (Box, error) {
	if r.Width > 0 || r.Height > 0 {
		b := Absolute{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
		return b, b.validate()
	}
	if r.WidthPct > 0 || r.HeightPct > 0 {
		b := Relative{XPct: r.XPct, YPct: r.YPct, WidthPct: r.WidthPct, HeightPct: r.HeightPct}
		return b, b.validate()
	}
	return nil, fmt.Errorf("%w: box requires width/height or width_pct/height_pct", ErrInvalid)
}

// List is an ordered set of placements that serializes as a JSON array of
// records.
type List []Placement

// MarshalJSON encodes the list as records.
func (l List) MarshalJSON() ([]byte, error) {
	records := make([]Record, len(l))
	for i, p := range l {
		records[i] = Encode(p)
	}
	return json.Marshal(records)
}

// UnmarshalJSON decodes and validates every record.
func (l *List) UnmarshalJSON(data []byte) error {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}

	out := make(List, 0, len(records))
	for i, r := range records {
		p, err := Decode(r)
		if err != nil {
			return fmt.Errorf("placement %d: %w", i, err)
		}
		out = append(out, p)
	}

	*l = out
	return nil
}

// Of returns the placements of the given kind, preserving order.
func (l List) Of(kind Kind) List {
	var out List
	for _, p := range l {
		if p.Kind() == kind {
			out = append(out, p)
		}
	}
	return out
}
