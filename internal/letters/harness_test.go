package letters_test

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
	"sync"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/missive/internal/assembler"
	"github.com/JaimeStill/missive/internal/letters"
	"github.com/JaimeStill/missive/internal/notifications"
	"github.com/JaimeStill/missive/internal/templates"
	"github.com/JaimeStill/missive/pkg/pagination"
	"github.com/JaimeStill/missive/pkg/storage"
)

const publicBase = "https://letters.example.com/api/public/letters"

func TestMain(m *testing.M) {
	api.DisableConfigDir()
	m.Run()
}

type harness struct {
	sys        letters.System
	store      *memStore
	blobs      *storage.Memory
	dispatcher *recorder
	templates  *fakeTemplates
	logs       *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &assembler.Config{}
	require.NoError(t, cfg.Finalize(nil))

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(&lockedWriter{w: logs}, nil))

	pg := pagination.Config{}
	require.NoError(t, pg.Finalize(nil))

	h := &harness{
		store:      newMemStore(),
		blobs:      storage.NewMemory(),
		dispatcher: &recorder{},
		templates:  &fakeTemplates{},
		logs:       logs,
	}

	var (
		mu    sync.Mutex
		clock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	)

	h.sys = letters.New(letters.Deps{
		Store:      h.store,
		Storage:    h.blobs,
		Assembler:  assembler.New(cfg, h.blobs, logger),
		Templates:  h.templates,
		Dispatcher: h.dispatcher,
		Logger:     logger,
		Pagination: pg,
		PublicBase: publicBase,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Minute)
			return clock
		},
	})

	return h
}

// upload stores a one page PDF and returns its key.
func (h *harness) upload(t *testing.T) string {
	t.Helper()
	key := fmt.Sprintf("uploads/%s.pdf", uuid.NewString())
	require.NoError(t, storage.Put(context.Background(), h.blobs, key, testPDF(t), "application/pdf"))
	return key
}

func (h *harness) put(t *testing.T, key string, data []byte) {
	t.Helper()
	require.NoError(t, storage.Put(context.Background(), h.blobs, key, data, "application/octet-stream"))
}

func (h *harness) exists(t *testing.T, key string) bool {
	t.Helper()
	ok, err := h.blobs.Exists(context.Background(), key)
	require.NoError(t, err)
	return ok
}

// submit creates a letter from an uploaded PDF.
func (h *harness) submit(t *testing.T, submitter uuid.UUID, reviewerIDs []uuid.UUID, approver *uuid.UUID) *letters.Letter {
	t.Helper()
	l, err := h.sys.Submit(context.Background(), letters.SubmitCommand{
		Title:       "Quarterly budget",
		Source:      letters.SourceDocument{Source: letters.Upload{StorageKey: h.upload(t)}},
		SubmitterID: submitter,
		ReviewerIDs: reviewerIDs,
		ApproverID:  approver,
	})
	require.NoError(t, err)
	return l
}

func testPDF(t *testing.T) []byte {
	t.Helper()

	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetFont("Helvetica", "", 12)
	doc.AddPage()
	doc.Cell(200, 20, "Dear reviewer,")

	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func testPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := range 40 {
		for y := range 20 {
			img.Set(x, y, color.RGBA{B: 160, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func ptr[T any](v T) *T { return &v }

// recorder is a notifications.Dispatcher that keeps every event. When fail
// is set every delivery errors after being recorded.
type recorder struct {
	mu     sync.Mutex
	events []notifications.Event
	fail   bool
}

func (r *recorder) Notify(_ context.Context, e notifications.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if r.fail {
		return errors.New("broker unavailable")
	}
	return nil
}

func (r *recorder) last() notifications.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// fakeTemplates renders any known template id to a one page PDF.
type fakeTemplates struct {
	known uuid.UUID
	pdf   []byte
	calls int
}

func (f *fakeTemplates) Find(_ context.Context, id uuid.UUID) (*templates.Template, error) {
	if id != f.known {
		return nil, templates.ErrNotFound
	}
	return &templates.Template{ID: id, Name: "memo"}, nil
}

func (f *fakeTemplates) Render(ctx context.Context, id uuid.UUID, data templates.FormData) ([]byte, error) {
	f.calls++
	if _, err := f.Find(ctx, id); err != nil {
		return nil, err
	}
	if _, ok := data["subject"]; !ok {
		return nil, fmt.Errorf("%w: field %q is required", templates.ErrInvalidForm, "subject")
	}
	return f.pdf, nil
}

// lockedWriter serializes log writes from concurrent tests.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
