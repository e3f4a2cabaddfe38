// Package tokenusage implements TokenUsageRecord accounting: records are
// produced synchronously by a tracker context and written asynchronously by
// a bounded queue with its own worker goroutine (invariant I4: never lost on
// success, best-effort on failure).
package tokenusage

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// TokenType distinguishes LLM chat usage from embedding usage.
type TokenType string

const (
	TokenTypeLLM       TokenType = "llm"
	TokenTypeEmbedding TokenType = "embedding"
)

// Record is one persisted accounting row.
type Record struct {
	ID             string
	UserID         string
	ProjectType    string
	TokenType      TokenType
	ModelName      string
	PromptTokens   int
	CompletionTokens int
	TotalTokens    int
	Cost           float64
	CreatedAt      time.Time
}

// Writer persists a batch of records; the repository adapter in
// internal/tokenusage/pgxwriter.go implements this against Postgres.
type Writer interface {
	WriteRecords(ctx context.Context, records []Record) error
}

// Queue is a bounded, process-scoped async writer. Add is safe from any
// goroutine; a single worker drains the channel and flushes to Writer in
// small batches so a slow sink never blocks the request path.
type Queue struct {
	ch       chan Record
	writer   Writer
	done     chan struct{}
	flushEvery time.Duration
	batchSize  int
}

// NewQueue starts the worker goroutine immediately; call Close to drain and
// stop it on shutdown.
func NewQueue(writer Writer, capacity, batchSize int, flushEvery time.Duration) *Queue {
	q := &Queue{
		ch:         make(chan Record, capacity),
		writer:     writer,
		done:       make(chan struct{}),
		flushEvery: flushEvery,
		batchSize:  batchSize,
	}
	go q.run()
	return q
}

// Add enqueues a record without blocking the caller on I/O. If the queue is
// full the record is dropped and logged, per the best-effort-on-failure
// invariant — this path is only reached under sustained writer backpressure.
func (q *Queue) Add(r Record) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	select {
	case q.ch <- r:
	default:
		slog.Warn("tokenusage queue full, dropping record", "model", r.ModelName, "token_type", r.TokenType)
	}
}

func (q *Queue) run() {
	ticker := time.NewTicker(q.flushEvery)
	defer ticker.Stop()

	batch := make([]Record, 0, q.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := q.writer.WriteRecords(context.Background(), batch); err != nil {
			slog.Error("tokenusage flush failed", "error", err, "count", len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case r, ok := <-q.ch:
			if !ok {
				flush()
				close(q.done)
				return
			}
			batch = append(batch, r)
			if len(batch) >= q.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Close drains pending items (join semantics) before stopping the worker.
func (q *Queue) Close() {
	close(q.ch)
	<-q.done
}

// Tracker accumulates token deltas for a single LLM or embedding call and
// flushes exactly one Record on successful completion; on failure, Abort
// discards the accumulation so no partial record is written.
type Tracker struct {
	queue       *Queue
	userID      string
	projectType string
	tokenType   TokenType
	modelName   string
	prompt      int
	completion  int
	total       int
	done        bool
}

// NewTracker returns a tracker bound to userID/projectType; callers with no
// userID/projectType should not construct a tracker at all (mirrors spec's
// "iff user_id and project_type are present").
func (q *Queue) NewTracker(userID, projectType, modelName string, tokenType TokenType) *Tracker {
	return &Tracker{queue: q, userID: userID, projectType: projectType, tokenType: tokenType, modelName: modelName}
}

// Observe records one usage sample. Streaming callers call this once per
// chunk; Observe keeps the maximum seen per field across calls, matching
// spec's "accumulate by taking the maximum observed value... across chunks".
func (t *Tracker) Observe(prompt, completion, total int) {
	if prompt > t.prompt {
		t.prompt = prompt
	}
	if completion > t.completion {
		t.completion = completion
	}
	if total > t.total {
		t.total = total
	}
}

// Commit flushes exactly one Record reflecting the accumulated maxima. Safe
// to call at most once; a second call is a no-op.
func (t *Tracker) Commit() {
	if t.done {
		return
	}
	t.done = true
	if t.prompt == 0 && t.completion == 0 && t.total == 0 {
		return
	}
	t.queue.Add(Record{
		UserID:           t.userID,
		ProjectType:      t.projectType,
		TokenType:        t.tokenType,
		ModelName:        t.modelName,
		PromptTokens:     t.prompt,
		CompletionTokens: t.completion,
		TotalTokens:      t.total,
	})
}

// Abort discards the accumulation without writing a record (invariant I4's
// best-effort-on-failure half).
func (t *Tracker) Abort() {
	t.done = true
}

// TrackSync runs fn inside a tracker, committing on success and aborting on
// error. This is the Go shape of spec's `with track_token_usage_sync(...)`.
func (q *Queue) TrackSync(userID, projectType, modelName string, tokenType TokenType, fn func(t *Tracker) error) error {
	t := q.NewTracker(userID, projectType, modelName, tokenType)
	if err := fn(t); err != nil {
		t.Abort()
		return err
	}
	t.Commit()
	return nil
}
