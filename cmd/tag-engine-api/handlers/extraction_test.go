package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drawsight-ai/drawsight/libs/tag-engine/internal/cache"
	"github.com/drawsight-ai/drawsight/libs/tag-engine/internal/extract"
	"github.com/drawsight-ai/drawsight/libs/tag-engine/internal/observability"
)

func newTestHandler(t *testing.T) *ExtractionHandler {
	t.Helper()

	logger := observability.NewLogger(observability.LogConfig{
		Level:       "error",
		Format:      "json",
		Output:      &bytes.Buffer{},
		ServiceName: "test",
	})

	engine := extract.NewEngine(nil, extract.DefaultConfig())
	processor := extract.NewBatchProcessor(logger, engine, extract.BatchConfig{MaxWorkers: 2})

	return NewExtractionHandler(logger, engine, processor, cache.NewMemoryClient(100), time.Minute)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestExtractionHandler_Extract(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h.Extract, ExtractRequestDTO{
		Words: []string{"PSV", "0905A/", "39.9", "kg/cm2g", `4"-PL-21-009013-B2A1-H`},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ExtractResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.ExtractionID)
	assert.Equal(t, []string{"PSV0905A"}, resp.Equipment)
	assert.Equal(t, []string{`4"-PL-21-009013-B2A1-H`}, resp.Lines)
	require.Len(t, resp.Specs, 1)
	assert.Equal(t, "39.9 kg/cm2g", resp.Specs[0].Display)
	assert.False(t, resp.Cached)
}

func TestExtractionHandler_ExtractCached(t *testing.T) {
	h := newTestHandler(t)
	req := ExtractRequestDTO{Words: []string{"PSV-0905A"}}

	first := postJSON(t, h.Extract, req)
	require.Equal(t, http.StatusOK, first.Code)

	second := postJSON(t, h.Extract, req)
	require.Equal(t, http.StatusOK, second.Code)

	var resp ExtractResponseDTO
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.True(t, resp.Cached)
	assert.Equal(t, []string{"PSV0905A"}, resp.Equipment)
}

func TestExtractionHandler_EmptyWords(t *testing.T) {
	h := newTestHandler(t)

	// "Nothing recognized" is a valid outcome, not an error
	rec := postJSON(t, h.Extract, ExtractRequestDTO{Words: []string{}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ExtractResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Equipment)
	assert.Empty(t, resp.Lines)
	assert.Empty(t, resp.Specs)
}

func TestExtractionHandler_BadBody(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Extract(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractionHandler_ExtractPages(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h.ExtractPages, ExtractPagesRequestDTO{
		Pages: [][]string{
			{"PSV-0001"},
			{"SET", "PRESS", "39.9", "kg/cm2g"},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ExtractPagesResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Pages, 2)

	assert.Equal(t, 1, resp.Pages[0].Page)
	assert.Equal(t, []string{"PSV0001"}, resp.Pages[0].Equipment)

	assert.Equal(t, 2, resp.Pages[1].Page)
	require.Len(t, resp.Pages[1].Specs, 1)
	assert.Equal(t, "Set Pressure: 39.9 kg/cm2g", resp.Pages[1].Specs[0].Display)
}
