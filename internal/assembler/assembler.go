// Package assembler stamps signature, stamp and verification QR images onto
// letter PDFs and persists the final artifact.
package assembler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/missive/internal/placement"
	"github.com/JaimeStill/missive/pkg/storage"
)

// System produces stamped PDFs.
type System interface {
	// Overlay stamps signature and stamp placements onto a PDF and returns the
	// result. QR placements are ignored.
	Overlay(ctx context.Context, req OverlayRequest) ([]byte, error)
	// Finalize stamps every placement plus a QR code encoding req.PublicURL,
	// then stores the PDF and the QR image under keys derived from req.LetterID.
	Finalize(ctx context.Context, req FinalizeRequest) (*Result, error)
}

// OverlayRequest carries a review-stage overlay.
type OverlayRequest struct {
	PDF        []byte
	Placements placement.List
}

// FinalizeRequest carries a final assembly.
type FinalizeRequest struct {
	LetterID   uuid.UUID
	PDF        []byte
	Placements placement.List
	PublicURL  string
}

// Result locates the stored final artifacts.
type Result struct {
	FinalKey  string
	QRKey     string
	PublicURL string
}

// FinalKey is the storage key of a letter's final PDF.
func FinalKey(letterID uuid.UUID) string {
	return fmt.Sprintf("letters/%s/final.pdf", letterID)
}

// QRKey is the storage key of a letter's verification QR image.
func QRKey(letterID uuid.UUID) string {
	return fmt.Sprintf("letters/%s/qrcode.png", letterID)
}

type assembler struct {
	cfg    *Config
	store  storage.System
	client *http.Client
	logger *slog.Logger
}

// New creates an assembler that reads storage-key image sources from store
// and persists final artifacts to it.
func New(cfg *Config, store storage.System, logger *slog.Logger) System {
	api.DisableConfigDir()

	return &assembler{
		cfg:    cfg,
		store:  store,
		client: &http.Client{Timeout: cfg.FetchTimeoutDuration()},
		logger: logger.With("system", "assembler"),
	}
}

func (a *assembler) Overlay(ctx context.Context, req OverlayRequest) ([]byte, error) {
	ps, err := pages(req.PDF)
	if err != nil {
		return nil, err
	}

	overlays, err := a.images(ctx, ps, req.Placements)
	if err != nil {
		return nil, err
	}
	if len(overlays) == 0 {
		return req.PDF, nil
	}

	return stamp(req.PDF, overlays)
}

func (a *assembler) Finalize(ctx context.Context, req FinalizeRequest) (*Result, error) {
	if req.PublicURL == "" {
		return nil, ErrEmptyURL
	}

	ps, err := pages(req.PDF)
	if err != nil {
		return nil, err
	}

	overlays, err := a.images(ctx, ps, req.Placements)
	if err != nil {
		return nil, err
	}

	qr, err := qrcode.Encode(req.PublicURL, qrcode.High, a.cfg.QRSize)
	if err != nil {
		return nil, fmt.Errorf("generate qr code: %w", err)
	}

	codes, err := a.codes(ps, req.Placements.Of(placement.KindQRCode), qr)
	if err != nil {
		return nil, err
	}
	overlays = append(overlays, codes...)

	final, err := stamp(req.PDF, overlays)
	if err != nil {
		return nil, err
	}

	result := &Result{
		FinalKey:  FinalKey(req.LetterID),
		QRKey:     QRKey(req.LetterID),
		PublicURL: req.PublicURL,
	}

	if err := storage.Put(ctx, a.store, result.QRKey, qr, "image/png"); err != nil {
		return nil, fmt.Errorf("store qr code: %w", err)
	}
	if err := storage.Put(ctx, a.store, result.FinalKey, final, "application/pdf"); err != nil {
		return nil, fmt.Errorf("store final pdf: %w", err)
	}

	a.logger.Info(
		"letter finalized",
		"letter_id", req.LetterID,
		"overlays", len(overlays),
		"key", result.FinalKey,
	)
	return result, nil
}

// images resolves signature and stamp placements concurrently. Placements that
// cannot be drawn are logged and dropped; only cancellation fails the call.
func (a *assembler) images(ctx context.Context, ps []page, list placement.List) ([]overlay, error) {
	results := make([]*overlay, len(list))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.FetchConcurrency)

	for i, p := range list {
		if p.Kind() == placement.KindQRCode {
			continue
		}

		g.Go(func() error {
			o, err := a.image(gctx, ps, p)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				a.skipped(i, p, err)
				return nil
			}
			results[i] = o
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	overlays := make([]overlay, 0, len(results))
	for _, o := range results {
		if o != nil {
			overlays = append(overlays, *o)
		}
	}
	return overlays, nil
}

func (a *assembler) image(ctx context.Context, ps []page, p placement.Placement) (*overlay, error) {
	rect, err := locate(ps, p)
	if err != nil {
		return nil, err
	}

	data, err := a.fetch(ctx, placement.SourceRef(p))
	if err != nil {
		return nil, err
	}

	img, err := decode(data)
	if err != nil {
		return nil, err
	}

	out, scale, err := fit(img, rect.Width, rect.Height, draw.CatmullRom)
	if err != nil {
		return nil, err
	}

	return &overlay{page: p.Page(), rect: rect, png: out, scale: scale}, nil
}

// codes places the QR image at every drawable qrcode placement, falling back
// to the bottom-right corner of the last page when none can be drawn.
func (a *assembler) codes(ps []page, list placement.List, qr []byte) ([]overlay, error) {
	img, err := png.Decode(bytes.NewReader(qr))
	if err != nil {
		return nil, fmt.Errorf("decode qr code: %w", err)
	}

	var out []overlay
	for i, p := range list {
		rect, err := locate(ps, p)
		if err != nil {
			a.skipped(i, p, err)
			continue
		}

		o, err := qrOverlay(img, p.Page(), rect)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}

	if len(out) > 0 {
		return out, nil
	}

	last := ps[len(ps)-1]
	size, margin := a.cfg.FallbackSize, a.cfg.FallbackMargin
	rect := placement.Rect{
		X:      last.width - margin - size,
		Y:      margin,
		Width:  size,
		Height: size,
	}

	o, err := qrOverlay(img, len(ps), rect)
	if err != nil {
		return nil, err
	}
	return []overlay{o}, nil
}

func qrOverlay(img image.Image, pageNumber int, rect placement.Rect) (overlay, error) {
	data, scale, err := fit(img, rect.Width, rect.Height, draw.NearestNeighbor)
	if err != nil {
		return overlay{}, err
	}
	return overlay{page: pageNumber, rect: rect, png: data, scale: scale}, nil
}

// locate resolves a placement box on its page, rejecting pages out of range
// and boxes that leave the page.
func locate(ps []page, p placement.Placement) (placement.Rect, error) {
	n := p.Page()
	if n < 1 || n > len(ps) {
		return placement.Rect{}, fmt.Errorf("page %d out of range 1..%d", n, len(ps))
	}

	pg := ps[n-1]
	rect := p.Geometry().Resolve(pg.width, pg.height)
	if !rect.Within(pg.width, pg.height) {
		return placement.Rect{}, fmt.Errorf("box exceeds page %d bounds", n)
	}
	return rect, nil
}

func (a *assembler) skipped(index int, p placement.Placement, reason error) {
	a.logger.Warn(
		"placement skipped",
		"index", index,
		"type", p.Kind(),
		"page", p.Page(),
		"reason", reason,
	)
}
