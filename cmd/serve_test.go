package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/spatial-cli/internal/spatial"
	"github.com/sells-group/spatial-cli/internal/stats"
)

func postAnalysis(t *testing.T, body map[string]any, query string) *httptest.ResponseRecorder {
	t.Helper()
	c := useTestConfig(t)
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/analyses"+query, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	buildRouter(c).ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	c := useTestConfig(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	buildRouter(c).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_AnalysisGlobal(t *testing.T) {
	rr := postAnalysis(t, map[string]any{
		"value_field": "value",
		"id_field":    "zone",
		"projected":   true,
		"config":      map[string]any{"contiguity_mode": "rook"},
		"features":    json.RawMessage(gridCollection(3, 3, gridValues)),
	}, "")

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got struct {
		RunID  string `json:"run_id"`
		Config struct {
			ContiguityMode string `json:"contiguity_mode"`
			WeightStyle    string `json:"weight_style"`
		} `json:"config"`
		Global *stats.GlobalResult `json:"global"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.NotEmpty(t, got.RunID)
	assert.Equal(t, "rook", got.Config.ContiguityMode)
	assert.Equal(t, "row_standardized", got.Config.WeightStyle, "server config fills omitted fields")
	require.NotNil(t, got.Global)
	assert.Equal(t, stats.NameMoranI, got.Global.Statistic)
}

func TestRouter_AnalysisLocalHTML(t *testing.T) {
	rr := postAnalysis(t, map[string]any{
		"value_field": "value",
		"projected":   true,
		"config":      map[string]any{"scope": "local", "statistic": "gstar"},
		"features":    json.RawMessage(gridCollection(3, 3, gridValues)),
	}, "?format=html")

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), stats.NameLocalGStar)
}

func TestRouter_AnalysisErrors(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		code int
		msg  string
	}{
		{"no value field", map[string]any{"features": json.RawMessage(gridCollection(1, 2, []float64{1, 2}))}, http.StatusBadRequest, "value_field is required"},
		{"no features", map[string]any{"value_field": "value"}, http.StatusBadRequest, "features is required"},
		{"bad statistic", map[string]any{
			"value_field": "value", "projected": true,
			"config":   map[string]any{"statistic": "ripley"},
			"features": json.RawMessage(gridCollection(3, 3, gridValues)),
		}, http.StatusBadRequest, "ripley"},
		{"decay on geographic", map[string]any{
			"value_field": "value",
			"config":      map[string]any{"use_decay": true, "neighbor_policy": "knn", "k": 2},
			"features":    json.RawMessage(gridCollection(3, 3, gridValues)),
		}, http.StatusBadRequest, "geographic"},
		{"too few entities", map[string]any{
			"value_field": "value", "projected": true,
			"features": json.RawMessage(gridCollection(1, 2, []float64{1, 2})),
		}, http.StatusUnprocessableEntity, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postAnalysis(t, tt.body, "")
			assert.Equal(t, tt.code, rr.Code, rr.Body.String())
			if tt.msg != "" {
				assert.Contains(t, rr.Body.String(), tt.msg)
			}
		})
	}
}

func TestRouter_MalformedBody(t *testing.T) {
	c := useTestConfig(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	buildRouter(c).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(spatial.ErrInvalidParameter))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(spatial.ErrDegenerateGraph))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
