package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finrag/stockagent/internal/graph"
	"github.com/finrag/stockagent/internal/state"
)

// fakeRunner is a GraphRunner double so handler tests exercise framing and
// status callback wiring without a real Graph/agent registry.
type fakeRunner struct {
	err        error
	onRun      func(s *state.AgentState, onStatus graph.StatusFunc)
	answer     string
	formatted  string
}

func (f *fakeRunner) Run(ctx context.Context, s *state.AgentState, onStatus graph.StatusFunc) error {
	if f.onRun != nil {
		f.onRun(s, onStatus)
	}
	s.Answer = f.answer
	s.FormattedResponse = f.formatted
	return f.err
}

func decodeFrames(t *testing.T, body *bytes.Buffer) []frame {
	t.Helper()
	var frames []frame
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var f frame
		require.NoError(t, json.Unmarshal(line, &f))
		frames = append(frames, f)
	}
	return frames
}

func frameEvents(frames []frame) []string {
	var events []string
	for _, f := range frames {
		events = append(events, f.Event)
	}
	return events
}

func TestHandleQueryStreamEmitsStartAndCompleteFrames(t *testing.T) {
	runner := &fakeRunner{answer: "hello world", formatted: "# 보고서\nhello world"}
	srv := NewServer(runner, nil)

	body := strings.NewReader(`{"message":"삼성전자 전망은?","stock_code":"005930"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query/stream", body)
	rec := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))
	frames := decodeFrames(t, rec.Body)
	events := frameEvents(frames)

	assert.Equal(t, "start", events[0])
	assert.Contains(t, events, "response_start")
	assert.Contains(t, events, "token")
	assert.Equal(t, "complete", events[len(events)-1])
}

func TestHandleQueryStreamEmitsAgentStatusFrames(t *testing.T) {
	runner := &fakeRunner{
		onRun: func(s *state.AgentState, onStatus graph.StatusFunc) {
			onStatus("question_analyzer", state.StatusProcessing)
			onStatus("question_analyzer", state.StatusCompleted)
		},
	}
	srv := NewServer(runner, nil)

	body := strings.NewReader(`{"message":"삼성전자 전망은?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query/stream", body)
	rec := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rec, req)

	frames := decodeFrames(t, rec.Body)
	events := frameEvents(frames)
	assert.Contains(t, events, "agent_start")
	assert.Contains(t, events, "agent_complete")

	var sawStart, sawComplete bool
	for _, f := range frames {
		data, _ := json.Marshal(f.Data)
		switch f.Event {
		case "agent_start":
			sawStart = strings.Contains(string(data), "question_analyzer")
		case "agent_complete":
			sawComplete = strings.Contains(string(data), "question_analyzer")
		}
	}
	assert.True(t, sawStart)
	assert.True(t, sawComplete)
}

func TestHandleQueryStreamEmitsErrorFrameOnRunFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("pipeline exploded")}
	srv := NewServer(runner, nil)

	body := strings.NewReader(`{"message":"삼성전자 전망은?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query/stream", body)
	rec := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rec, req)

	frames := decodeFrames(t, rec.Body)
	events := frameEvents(frames)
	assert.Contains(t, events, "error")
	assert.NotContains(t, events, "complete")
}

func TestHandleQueryStreamRejectsEmptyMessage(t *testing.T) {
	runner := &fakeRunner{}
	srv := NewServer(runner, nil)

	body := strings.NewReader(`{"message":""}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query/stream", body)
	rec := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// fakeMetrics is a Metrics double for asserting WithMetrics wiring.
type fakeMetrics struct {
	recordedPath   string
	recordedStatus int
	handlerHit     bool
}

func (m *fakeMetrics) RecordHTTPRequest(ctx context.Context, path string, status int, duration time.Duration) {
	m.recordedPath = path
	m.recordedStatus = status
}

func (m *fakeMetrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.handlerHit = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandleQueryStreamRecordsHTTPMetrics(t *testing.T) {
	runner := &fakeRunner{answer: "hello", formatted: "hello"}
	metrics := &fakeMetrics{}
	srv := NewServer(runner, nil).WithMetrics(metrics)

	body := strings.NewReader(`{"message":"삼성전자 전망은?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query/stream", body)
	rec := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, "/api/v1/query/stream", metrics.recordedPath)
	assert.Equal(t, http.StatusOK, metrics.recordedStatus)
}

func TestHandleQueryStreamRecordsErrorStatus(t *testing.T) {
	runner := &fakeRunner{err: errors.New("boom")}
	metrics := &fakeMetrics{}
	srv := NewServer(runner, nil).WithMetrics(metrics)

	body := strings.NewReader(`{"message":"삼성전자 전망은?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query/stream", body)
	rec := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, metrics.recordedStatus)
}

func TestMetricsRouteServesAttachedHandler(t *testing.T) {
	runner := &fakeRunner{}
	metrics := &fakeMetrics{}
	srv := NewServer(runner, nil).WithMetrics(metrics)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	assert.True(t, metrics.handlerHit)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsRouteReturns503WhenDisabled(t *testing.T) {
	srv := NewServer(&fakeRunner{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleQueryStreamRejectsInvalidJSON(t *testing.T) {
	runner := &fakeRunner{}
	srv := NewServer(runner, nil)

	body := strings.NewReader(`not json`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query/stream", body)
	rec := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
