package observability

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExposesScrapeEndpoint(t *testing.T) {
	m, err := New("stockagent_test")
	require.NoError(t, err)
	defer m.Shutdown(context.Background())

	m.RecordAgent(context.Background(), "question_analyzer", 120*time.Millisecond, nil)
	m.RecordAgent(context.Background(), "report_analyzer", 80*time.Millisecond, errors.New("boom"))
	m.RecordHTTPRequest(context.Background(), "/api/v1/query/stream", 200, 1500*time.Millisecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "stockagent_test_agent_calls_total")
	assert.Contains(t, body, "stockagent_test_agent_errors_total")
	assert.Contains(t, body, "stockagent_test_http_requests_total")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordAgent(context.Background(), "question_analyzer", time.Second, nil)
	m.RecordHTTPRequest(context.Background(), "/x", 500, time.Second)
	require.NoError(t, m.Shutdown(context.Background()))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)
	assert.Equal(t, 503, rec.Code)
}
