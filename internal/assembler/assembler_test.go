package assembler_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/missive/internal/assembler"
	"github.com/JaimeStill/missive/internal/placement"
	"github.com/JaimeStill/missive/pkg/storage"
)

func testPDF(t *testing.T, pages int) []byte {
	t.Helper()

	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetFont("Helvetica", "", 12)
	for i := range pages {
		doc.AddPage()
		doc.Cell(200, 20, fmt.Sprintf("Page %d", i+1))
	}

	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func testPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 60, 20))
	for x := range 60 {
		for y := range 20 {
			img.Set(x, y, color.RGBA{R: 20, G: 20, B: 120, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type harness struct {
	sys   assembler.System
	store *storage.Memory
	logs  *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &assembler.Config{}
	require.NoError(t, cfg.Finalize(nil))

	logs := &bytes.Buffer{}
	store := storage.NewMemory()
	logger := slog.New(slog.NewTextHandler(logs, nil))

	return &harness{
		sys:   assembler.New(cfg, store, logger),
		store: store,
		logs:  logs,
	}
}

func (h *harness) put(t *testing.T, key string, data []byte) {
	t.Helper()
	require.NoError(t, storage.Put(context.Background(), h.store, key, data, "application/octet-stream"))
}

func pageCount(t *testing.T, data []byte) int {
	t.Helper()
	n, err := api.PageCount(bytes.NewReader(data), nil)
	require.NoError(t, err)
	return n
}

func TestFinalize(t *testing.T) {
	h := newHarness(t)
	h.put(t, "signatures/approver.png", testPNG(t))

	id := uuid.New()
	src := testPDF(t, 1)

	result, err := h.sys.Finalize(context.Background(), assembler.FinalizeRequest{
		LetterID: id,
		PDF:      src,
		Placements: placement.List{
			placement.Signature{
				PageNumber: 1,
				Box:        placement.Absolute{X: 72, Y: 600, Width: 150, Height: 50},
				Source:     "signatures/approver.png",
			},
			placement.QRCode{
				PageNumber: 1,
				Box:        placement.Relative{XPct: 0.8, YPct: 0.85, WidthPct: 0.1, HeightPct: 0.1},
			},
		},
		PublicURL: "https://letters.example.com/api/public/letters/" + id.String(),
	})
	require.NoError(t, err)

	assert.Equal(t, assembler.FinalKey(id), result.FinalKey)
	assert.Equal(t, assembler.QRKey(id), result.QRKey)
	assert.Equal(t, fmt.Sprintf("letters/%s/final.pdf", id), result.FinalKey)
	assert.NotContains(t, h.logs.String(), "placement skipped")

	final, err := storage.Get(context.Background(), h.store, result.FinalKey)
	require.NoError(t, err)
	assert.Equal(t, 1, pageCount(t, final))
	assert.Greater(t, len(final), len(src))

	qr, err := storage.Get(context.Background(), h.store, result.QRKey)
	require.NoError(t, err)
	_, format, err := image.DecodeConfig(bytes.NewReader(qr))
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	ct, _ := h.store.ContentType(result.FinalKey)
	assert.Equal(t, "application/pdf", ct)
}

func TestFinalizeFallbackQR(t *testing.T) {
	h := newHarness(t)
	id := uuid.New()
	src := testPDF(t, 2)

	result, err := h.sys.Finalize(context.Background(), assembler.FinalizeRequest{
		LetterID:  id,
		PDF:       src,
		PublicURL: "https://letters.example.com/verify",
	})
	require.NoError(t, err)

	final, err := storage.Get(context.Background(), h.store, result.FinalKey)
	require.NoError(t, err)
	assert.Equal(t, 2, pageCount(t, final))
	assert.Greater(t, len(final), len(src))
}

func TestFinalizeSkipsBadPlacements(t *testing.T) {
	h := newHarness(t)
	h.put(t, "signatures/ok.png", testPNG(t))
	h.put(t, "notes/readme.txt", []byte("this is not an image"))

	box := placement.Absolute{X: 72, Y: 72, Width: 100, Height: 40}

	_, err := h.sys.Finalize(context.Background(), assembler.FinalizeRequest{
		LetterID: uuid.New(),
		PDF:      testPDF(t, 1),
		Placements: placement.List{
			placement.Signature{PageNumber: 3, Box: box, Source: "signatures/ok.png"},
			placement.Stamp{PageNumber: 1, Box: box, Source: "stamps/missing.png"},
			placement.Signature{PageNumber: 1, Box: box, Source: "notes/readme.txt"},
			placement.Signature{PageNumber: 1, Box: placement.Absolute{X: 600, Y: 10, Width: 100, Height: 40}, Source: "signatures/ok.png"},
			placement.Signature{PageNumber: 1, Box: box, Source: "signatures/ok.png"},
		},
		PublicURL: "https://letters.example.com/verify",
	})
	require.NoError(t, err)

	assert.Equal(t, 4, strings.Count(h.logs.String(), "placement skipped"))
	assert.Contains(t, h.logs.String(), "level=WARN")
}

func TestFinalizeFetchesHTTPSource(t *testing.T) {
	sig := testPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sig.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(sig)
	}))
	defer srv.Close()

	h := newHarness(t)
	box := placement.Absolute{X: 72, Y: 72, Width: 100, Height: 40}

	_, err := h.sys.Finalize(context.Background(), assembler.FinalizeRequest{
		LetterID: uuid.New(),
		PDF:      testPDF(t, 1),
		Placements: placement.List{
			placement.Signature{PageNumber: 1, Box: box, Source: srv.URL + "/sig.png"},
			placement.Stamp{PageNumber: 1, Box: box, Source: srv.URL + "/gone.png"},
		},
		PublicURL: "https://letters.example.com/verify",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(h.logs.String(), "placement skipped"))
}

func TestFinalizeFailures(t *testing.T) {
	t.Run("unreadable pdf", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.sys.Finalize(context.Background(), assembler.FinalizeRequest{
			LetterID:  uuid.New(),
			PDF:       []byte("not a pdf"),
			PublicURL: "https://letters.example.com/verify",
		})
		assert.ErrorIs(t, err, assembler.ErrInvalidPDF)
		assert.Equal(t, 0, h.store.Len())
	})

	t.Run("missing public url", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.sys.Finalize(context.Background(), assembler.FinalizeRequest{
			LetterID: uuid.New(),
			PDF:      testPDF(t, 1),
		})
		assert.ErrorIs(t, err, assembler.ErrEmptyURL)
	})

	t.Run("storage unavailable", func(t *testing.T) {
		cfg := &assembler.Config{}
		require.NoError(t, cfg.Finalize(nil))
		sys := assembler.New(cfg, failingStore{storage.NewMemory()}, slog.New(slog.NewTextHandler(io.Discard, nil)))

		_, err := sys.Finalize(context.Background(), assembler.FinalizeRequest{
			LetterID:  uuid.New(),
			PDF:       testPDF(t, 1),
			PublicURL: "https://letters.example.com/verify",
		})
		assert.ErrorIs(t, err, errUnavailable)
	})
}

func TestOverlay(t *testing.T) {
	h := newHarness(t)
	h.put(t, "stamps/office.png", testPNG(t))
	src := testPDF(t, 1)

	t.Run("no placements returns input", func(t *testing.T) {
		out, err := h.sys.Overlay(context.Background(), assembler.OverlayRequest{PDF: src})
		require.NoError(t, err)
		assert.Equal(t, src, out)
	})

	t.Run("qr placements ignored", func(t *testing.T) {
		out, err := h.sys.Overlay(context.Background(), assembler.OverlayRequest{
			PDF: src,
			Placements: placement.List{
				placement.QRCode{PageNumber: 1, Box: placement.Absolute{X: 10, Y: 10, Width: 50, Height: 50}},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, src, out)
	})

	t.Run("stamp applied", func(t *testing.T) {
		out, err := h.sys.Overlay(context.Background(), assembler.OverlayRequest{
			PDF: src,
			Placements: placement.List{
				placement.Stamp{
					PageNumber: 1,
					Box:        placement.Relative{XPct: 0.1, YPct: 0.1, WidthPct: 0.2, HeightPct: 0.05},
					Source:     "stamps/office.png",
				},
			},
		})
		require.NoError(t, err)
		assert.Greater(t, len(out), len(src))
		assert.Equal(t, 1, pageCount(t, out))
		assert.Equal(t, 0, strings.Count(h.logs.String(), "placement skipped"))
	})
}

var errUnavailable = errors.New("storage unavailable")

type failingStore struct {
	*storage.Memory
}

func (failingStore) Upload(context.Context, string, io.Reader, string) error {
	return errUnavailable
}

// stampMatrix matches the transform pdfcpu writes in front of each stamped
// form: "q a b c d e f cm /GS0 gs /Fm0 Do Q". e and f are the translation.
var stampMatrix = regexp.MustCompile(`q (\S+) (\S+) (\S+) (\S+) (\S+) (\S+) cm /\S+ gs /\S+ Do Q`)

// origins returns the lower-left corner of every overlay stamped on page.
func origins(t *testing.T, pdf []byte, page int) []placement.Rect {
	t.Helper()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	dir := t.TempDir()
	require.NoError(t, api.ExtractContent(bytes.NewReader(pdf), dir, "out.pdf", []string{strconv.Itoa(page)}, conf))

	content, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("out_Content_page_%d.txt", page)))
	require.NoError(t, err)

	var out []placement.Rect
	for _, m := range stampMatrix.FindAllStringSubmatch(string(content), -1) {
		x, err := strconv.ParseFloat(m[5], 64)
		require.NoError(t, err)
		y, err := strconv.ParseFloat(m[6], 64)
		require.NoError(t, err)
		out = append(out, placement.Rect{X: x, Y: y})
	}
	return out
}

func assertOrigin(t *testing.T, got []placement.Rect, x, y float64) {
	t.Helper()
	for _, r := range got {
		if math.Abs(r.X-x) < 0.01 && math.Abs(r.Y-y) < 0.01 {
			return
		}
	}
	t.Errorf("no overlay at (%.2f, %.2f); found %v", x, y, got)
}

func TestOverlayPosition(t *testing.T) {
	const pageWidth, pageHeight = 612.0, 792.0

	h := newHarness(t)
	h.put(t, "signatures/approver.png", testPNG(t))
	id := uuid.New()

	t.Run("placements land at their resolved boxes", func(t *testing.T) {
		abs := placement.Absolute{X: 100, Y: 100, Width: 80, Height: 40}
		rel := placement.Relative{XPct: 0.8, YPct: 0.85, WidthPct: 0.1, HeightPct: 0.1}

		result, err := h.sys.Finalize(context.Background(), assembler.FinalizeRequest{
			LetterID: id,
			PDF:      testPDF(t, 1),
			Placements: placement.List{
				placement.Signature{PageNumber: 1, Box: abs, Source: "signatures/approver.png"},
				placement.QRCode{PageNumber: 1, Box: rel},
			},
			PublicURL: "https://letters.example.com/api/public/letters/" + id.String(),
		})
		require.NoError(t, err)

		final, err := storage.Get(context.Background(), h.store, result.FinalKey)
		require.NoError(t, err)

		got := origins(t, final, 1)
		require.Len(t, got, 2)

		assertOrigin(t, got, 100, 652)

		want := rel.Resolve(pageWidth, pageHeight)
		assertOrigin(t, got, want.X, want.Y)
	})

	t.Run("fallback qr on last page", func(t *testing.T) {
		result, err := h.sys.Finalize(context.Background(), assembler.FinalizeRequest{
			LetterID:  id,
			PDF:       testPDF(t, 2),
			PublicURL: "https://letters.example.com/api/public/letters/" + id.String(),
		})
		require.NoError(t, err)

		final, err := storage.Get(context.Background(), h.store, result.FinalKey)
		require.NoError(t, err)

		assert.Empty(t, origins(t, final, 1))

		got := origins(t, final, 2)
		require.Len(t, got, 1)
		assertOrigin(t, got, 512, 20)
	})

	t.Run("review stamp", func(t *testing.T) {
		box := placement.Relative{XPct: 0.1, YPct: 0.1, WidthPct: 0.2, HeightPct: 0.05}

		out, err := h.sys.Overlay(context.Background(), assembler.OverlayRequest{
			PDF: testPDF(t, 1),
			Placements: placement.List{
				placement.Stamp{PageNumber: 1, Box: box, Source: "signatures/approver.png"},
			},
		})
		require.NoError(t, err)

		got := origins(t, out, 1)
		require.Len(t, got, 1)

		want := box.Resolve(pageWidth, pageHeight)
		assertOrigin(t, got, want.X, want.Y)
	})
}
