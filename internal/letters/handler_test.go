package letters_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/missive/internal/audit"
	"github.com/JaimeStill/missive/internal/letters"
	"github.com/JaimeStill/missive/pkg/auth"
	"github.com/JaimeStill/missive/pkg/pagination"
	"github.com/JaimeStill/missive/pkg/routes"
)

type server struct {
	*harness
	mux  *http.ServeMux
	auth *auth.Config
}

func newServer(t *testing.T) *server {
	t.Helper()

	cfg := &auth.Config{Secret: "0123456789abcdef0123456789abcdef", Issuer: "missive"}
	require.NoError(t, cfg.Finalize(nil))

	h := newHarness(t)
	handler := h.sys.Handler()

	protected := handler.Routes()
	protected.Middleware = append(protected.Middleware, auth.Middleware(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))))

	mux := http.NewServeMux()
	routes.Register(mux, protected, handler.PublicRoutes())

	return &server{harness: h, mux: mux, auth: cfg}
}

func (s *server) do(t *testing.T, method, path string, user *uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, r)
	if user != nil {
		token, err := auth.Issue(s.auth, *user, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHandlerWorkflow(t *testing.T) {
	s := newServer(t)
	key := s.upload(t)

	body := `{
		"title": "Purchase request",
		"source": {"type": "upload", "storage_key": "` + key + `"},
		"reviewer_ids": ["` + alice.String() + `"],
		"approver_id": "` + carol.String() + `"
	}`

	rec := s.do(t, http.MethodPost, "/letters", &submitter, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	l := decodeBody[letters.Letter](t, rec)
	assert.Equal(t, submitter, l.SubmittedBy)
	assert.Equal(t, letters.StatusPendingReview, l.Status)
	assert.Equal(t, letters.Upload{StorageKey: key}, l.Source.Source)

	base := "/letters/" + l.ID.String()

	rec = s.do(t, http.MethodPost, base+"/approve", &bob, `{}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/approve", &alice, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, letters.StatusPendingApproval, decodeBody[letters.Letter](t, rec).Status)

	rec = s.do(t, http.MethodPost, base+"/approve", &alice, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/comments", &carol, `{"comment": "signing today"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, audit.ActionComment, decodeBody[audit.Entry](t, rec).Action)

	rec = s.do(t, http.MethodGet, base, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/public/letters/"+l.ID.String(), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/final-approve", &carol, `{"placements": []}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	l = decodeBody[letters.Letter](t, rec)
	assert.Equal(t, letters.StatusApproved, l.Status)
	require.NotNil(t, l.PublicLink)
	assert.True(t, strings.HasSuffix(*l.PublicLink, "/public/letters/"+l.ID.String()))

	rec = s.do(t, http.MethodGet, "/public/letters/"+l.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "inline")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = s.do(t, http.MethodGet, base+"/actions?order=asc", &submitter, "")
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeBody[[]audit.Entry](t, rec)
	require.Len(t, entries, 4)
	assert.Equal(t, audit.ActionSubmit, entries[0].Action)
	assert.Equal(t, audit.ActionFinalApprove, entries[3].Action)

	rec = s.do(t, http.MethodGet, base+"/assignments", &submitter, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]json.RawMessage](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/letters?status=approved", &submitter, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[pagination.PageResult[json.RawMessage]](t, rec)
	assert.Equal(t, 1, page.Total)

	rec = s.do(t, http.MethodDelete, base, &submitter, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, base, &submitter, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerErrors(t *testing.T) {
	s := newServer(t)
	l := s.submit(t, submitter, []uuid.UUID{alice}, nil)
	base := "/letters/" + l.ID.String()

	tests := []struct {
		name   string
		method string
		path   string
		user   *uuid.UUID
		body   string
		want   int
	}{
		{"no token", http.MethodGet, base, nil, "", http.StatusUnauthorized},
		{"bad id", http.MethodGet, "/letters/not-a-uuid", &alice, "", http.StatusBadRequest},
		{"unknown letter", http.MethodGet, "/letters/" + uuid.NewString(), &alice, "", http.StatusNotFound},
		{"malformed json", http.MethodPost, base + "/reject", &alice, `{"reason":`, http.StatusBadRequest},
		{"missing reason", http.MethodPost, base + "/reject", &alice, `{}`, http.StatusBadRequest},
		{"bad placement", http.MethodPost, base + "/approve", &alice, `{"placements":[{"type":"stamp","page_number":0}]}`, http.StatusBadRequest},
		{"unknown source", http.MethodPost, "/letters", &alice, `{"title":"x","source":{"type":"fax"}}`, http.StatusBadRequest},
		{"not rejected", http.MethodPost, base + "/resubmit", &submitter, `{"comment":"again"}`, http.StatusConflict},
		{"not submitter", http.MethodDelete, base, &alice, "", http.StatusForbidden},
		{"oversized", http.MethodPost, base + "/comments", &alice, `{"comment":"` + strings.Repeat("a", 2<<20) + `"}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())

			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandlerSearch(t *testing.T) {
	s := newServer(t)
	s.submit(t, submitter, []uuid.UUID{alice}, nil)
	s.submit(t, submitter, []uuid.UUID{bob}, nil)

	rec := s.do(t, http.MethodPost, "/letters/search", &submitter,
		`{"page": 1, "page_size": 10, "next_action_by": "`+bob.String()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	page := decodeBody[pagination.PageResult[letters.Letter]](t, rec)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, bob, *page.Data[0].NextActionByID)

	rec = s.do(t, http.MethodPost, "/letters/search", &alice,
		`{"page": 1, "page_size": 10, "next_action_by": "`+bob.String()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, decodeBody[pagination.PageResult[letters.Letter]](t, rec).Total)
}

func TestHandlerReadAccess(t *testing.T) {
	s := newServer(t)
	l := s.submit(t, submitter, []uuid.UUID{alice}, &carol)
	s.submit(t, bob, nil, &carol)
	base := "/letters/" + l.ID.String()

	for _, path := range []string{base, base + "/assignments", base + "/actions"} {
		t.Run(path, func(t *testing.T) {
			for _, user := range []uuid.UUID{submitter, alice, carol} {
				rec := s.do(t, http.MethodGet, path, &user, "")
				assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			}

			rec := s.do(t, http.MethodGet, path, &bob, "")
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}

	tests := []struct {
		name string
		user uuid.UUID
		want int
	}{
		{"submitter sees own", submitter, 1},
		{"reviewer sees assigned", alice, 1},
		{"approver sees both", carol, 2},
		{"other submitter sees own", bob, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/letters", &tt.user, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, decodeBody[pagination.PageResult[json.RawMessage]](t, rec).Total)
		})
	}
}
