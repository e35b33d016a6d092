package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/missive/pkg/lifecycle"
)

type readyFlag struct{ ready atomic.Bool }

func (f *readyFlag) Ready() bool { return f.ready.Load() }

func status(t *testing.T, h http.HandlerFunc) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec.Code, body["status"]
}

func TestHealthz(t *testing.T) {
	code, s := status(t, healthz)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", s)
}

func TestReadyz(t *testing.T) {
	lc := lifecycle.New()
	db := &readyFlag{}
	lc.Require(db)
	h := readyz(lc)

	code, s := status(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", s)

	lc.WaitForStartup()
	code, _ = status(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	db.ready.Store(true)
	code, s = status(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", s)
}
