package assembler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"net/http"
	"strings"

	_ "image/jpeg"

	"golang.org/x/image/draw"

	"github.com/JaimeStill/missive/pkg/formatting"
)

// density is the number of image pixels rendered per PDF point.
const density = 2.0

// maxEdge caps the rendered pixel size of one overlay edge.
const maxEdge = 4096

// fetch resolves a source reference to raw image bytes. References starting
// with http:// or https:// are downloaded; anything else is a storage key.
func (a *assembler) fetch(ctx context.Context, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return a.download(ctx, ref)
	}

	rc, err := a.store.Download(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("read %s from storage: %w", ref, err)
	}
	defer rc.Close()

	return a.readLimited(rc)
}

func (a *assembler) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	return a.readLimited(resp.Body)
}

func (a *assembler) readLimited(r io.Reader) ([]byte, error) {
	limit := a.cfg.MaxImageSizeBytes()
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit %s", errImageTooLarge, formatting.FormatBytes(limit, 1))
	}
	return data, nil
}

// decode sniffs the content type and decodes PNG or JPEG data. When sniffing
// is inconclusive the registered decoders are probed directly.
func decode(data []byte) (image.Image, error) {
	format := ""
	switch http.DetectContentType(data) {
	case "image/png":
		format = "png"
	case "image/jpeg":
		format = "jpeg"
	default:
		_, probed, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, errUnsupportedFormat
		}
		format = probed
	}

	if format != "png" && format != "jpeg" {
		return nil, fmt.Errorf("%w: %s", errUnsupportedFormat, format)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	return img, nil
}

// fit scales img to the pixel size of a box of width by height points and
// encodes it as PNG. It returns the factor that maps image pixels back to
// points.
func fit(img image.Image, width, height float64, scaler draw.Scaler) ([]byte, float64, error) {
	k := density
	if edge := max(width, height) * k; edge > maxEdge {
		k = maxEdge / max(width, height)
	}

	w := max(1, int(math.Round(width*k)))
	h := max(1, int(math.Round(height*k)))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	scaler.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, 0, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), 1 / k, nil
}
