package pagination_test

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/missive/pkg/pagination"
	"github.com/JaimeStill/missive/pkg/query"
)

func defaultConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := pagination.Config{}
		require.NoError(t, cfg.Finalize(nil))
		assert.Equal(t, defaultConfig(), cfg)
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_PAGE_SIZE", "50")
		t.Setenv("TEST_MAX_PAGE", "200")

		cfg := pagination.Config{}
		require.NoError(t, cfg.Finalize(&pagination.Env{
			DefaultPageSize: "TEST_PAGE_SIZE",
			MaxPageSize:     "TEST_MAX_PAGE",
		}))
		assert.Equal(t, 50, cfg.DefaultPageSize)
		assert.Equal(t, 200, cfg.MaxPageSize)
	})

	t.Run("default above max", func(t *testing.T) {
		cfg := pagination.Config{DefaultPageSize: 500, MaxPageSize: 100}
		assert.Error(t, cfg.Finalize(nil))
	})
}

func TestPageRequestFromQuery(t *testing.T) {
	values := url.Values{
		"page":      {"3"},
		"page_size": {"1000"},
		"search":    {"budget"},
		"sort":      {"-CreatedAt"},
	}

	req := pagination.PageRequestFromQuery(values, defaultConfig())

	assert.Equal(t, 3, req.Page)
	assert.Equal(t, 100, req.PageSize)
	require.NotNil(t, req.Search)
	assert.Equal(t, "budget", *req.Search)
	assert.Equal(t, pagination.SortFields{{Field: "CreatedAt", Descending: true}}, req.Sort)
	assert.Equal(t, 200, req.Offset())
}

func TestPageRequestNormalize(t *testing.T) {
	req := pagination.PageRequest{}
	req.Normalize(defaultConfig())

	assert.Equal(t, 1, req.Page)
	assert.Equal(t, 20, req.PageSize)
	assert.Equal(t, 0, req.Offset())

	t.Run("blank search dropped", func(t *testing.T) {
		blank := "   "
		req := pagination.PageRequest{Search: &blank}
		req.Normalize(defaultConfig())
		assert.Nil(t, req.Search)
	})

	t.Run("search trimmed", func(t *testing.T) {
		padded := " leave "
		req := pagination.PageRequest{Search: &padded}
		req.Normalize(defaultConfig())
		require.NotNil(t, req.Search)
		assert.Equal(t, "leave", *req.Search)
	})
}

func TestSortFieldsUnmarshal(t *testing.T) {
	t.Run("string form", func(t *testing.T) {
		var s pagination.SortFields
		require.NoError(t, json.Unmarshal([]byte(`"Title,-CreatedAt"`), &s))
		assert.Equal(t, pagination.SortFields{
			{Field: "Title"},
			{Field: "CreatedAt", Descending: true},
		}, s)
	})

	t.Run("array form", func(t *testing.T) {
		var s pagination.SortFields
		require.NoError(t, json.Unmarshal([]byte(`[{"field":"Title","descending":true}]`), &s))
		assert.Equal(t, pagination.SortFields{query.SortField{Field: "Title", Descending: true}}, s)
	})

	t.Run("null", func(t *testing.T) {
		var req pagination.PageRequest
		require.NoError(t, json.Unmarshal([]byte(`{"page":2,"sort":null}`), &req))
		assert.Equal(t, 2, req.Page)
		assert.Empty(t, req.Sort)
	})

	t.Run("invalid", func(t *testing.T) {
		var s pagination.SortFields
		assert.Error(t, json.Unmarshal([]byte(`42`), &s))
	})
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		pageSize  int
		wantPages int
	}{
		{"exact", 40, 20, 2},
		{"remainder", 41, 20, 3},
		{"empty", 0, 20, 1},
		{"zero page size", 5, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := pagination.NewPageResult[string](nil, tt.total, 1, tt.pageSize)
			assert.Equal(t, tt.wantPages, result.TotalPages)
			assert.NotNil(t, result.Data)
		})
	}
}
