package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/finrag/stockagent/internal/graph"
	"github.com/finrag/stockagent/internal/state"
)

// queryRequest is spec.md §6's request body: "{message, stock_code,
// stock_name, is_follow_up}".
type queryRequest struct {
	Message    string `json:"message"`
	StockCode  string `json:"stock_code"`
	StockName  string `json:"stock_name"`
	IsFollowUp bool   `json:"is_follow_up"`
}

// GraphRunner is the subset of *graph.Graph the handler needs, so tests can
// substitute a fake pipeline without building a full agent registry.
// *graph.Graph satisfies this directly: its Run method already has this
// exact signature.
type GraphRunner interface {
	Run(ctx context.Context, s *state.AgentState, onStatus graph.StatusFunc) error
}

// Metrics is the subset of internal/observability.Metrics the handler
// needs, narrowed so this package doesn't import observability directly.
// A nil Metrics (Server.metrics left unset) means RecordHTTPRequest/Handler
// are simply never called.
type Metrics interface {
	RecordHTTPRequest(ctx context.Context, path string, status int, duration time.Duration)
	Handler() http.Handler
}

// Server is the §6 HTTP/SSE endpoint, routed with go-chi and streamed with
// raw http.Flusher writes, grounded on pkg/a2a/server.go's
// handleMessageStream header-setting/flush-loop shape.
type Server struct {
	runner  GraphRunner
	logger  *slog.Logger
	metrics Metrics
}

func NewServer(runner GraphRunner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{runner: runner, logger: logger}
}

// WithMetrics attaches a Metrics sink, returning s for chaining at
// construction time in cmd/stockagent's wiring.
func (s *Server) WithMetrics(m Metrics) *Server {
	s.metrics = m
	return s
}

// Routes builds the chi router; mounted by cmd/stockagent under the
// process's configured address. The scrape endpoint is mounted
// unconditionally; it 503s when metrics are disabled.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/query/stream", s.handleQueryStream)
	r.Get("/metrics", s.handleMetrics)
	return r
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		http.Error(w, "metrics not enabled", http.StatusServiceUnavailable)
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}

func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	// Set NDJSON streaming headers per spec.md §6: "Cache-Control:
	// no-cache, Connection: keep-alive, X-Accel-Buffering: no".
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	fw := newFrameWriter(w, flusher)
	fw.write("start", startData{Message: req.Message, Timestamp: epochSeconds(time.Now())})

	requestStart := time.Now()
	httpStatus := http.StatusOK
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Context(), r.URL.Path, httpStatus, time.Since(requestStart))
		}
	}()

	agentState := state.New(req.Message, req.StockCode, req.StockName, "", req.IsFollowUp)
	messageID := uuid.New().String()

	onStatus := func(agent string, status state.ProcessingStatus) {
		now := epochSeconds(time.Now())
		fw.write("agent_status", agentStatusData{Agent: agent, Status: string(status), Timestamp: now, Elapsed: fw.elapsed()})
		switch {
		case status == state.StatusProcessing:
			fw.write("agent_start", agentMessageData{Agent: agent, Message: graph.UserFacingMessage(agent), Timestamp: now, Elapsed: fw.elapsed()})
		case status.Terminal():
			fw.write("agent_complete", agentMessageData{Agent: agent, Message: graph.UserFacingMessage(agent), Timestamp: now, Elapsed: fw.elapsed()})
		}
	}

	err := s.runner.Run(r.Context(), agentState, onStatus)
	if err != nil {
		httpStatus = http.StatusInternalServerError
		fw.write("error", errorData{Message: err.Error(), Timestamp: epochSeconds(time.Now()), Elapsed: fw.elapsed()})
		return
	}

	fw.write("response_start", responseStartData{Message: "응답 생성 중", Timestamp: epochSeconds(time.Now()), Elapsed: fw.elapsed()})
	for _, tok := range strings.Fields(agentState.Answer) {
		fw.write("token", tokenData{Token: tok + " ", MessageID: messageID, Timestamp: epochSeconds(time.Now())})
	}

	fw.write("complete", completeData{
		Message:        req.Message,
		Response:       agentState.FormattedResponse,
		ResponseExpert: agentState.Components,
		MessageID:      messageID,
		Metadata:       map[string]any{"processing_status": agentState.SnapshotStatus()},
		Timestamp:      epochSeconds(time.Now()),
		Elapsed:        fw.elapsed(),
	})
}
