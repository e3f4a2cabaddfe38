// Package retrieval implements the semantic/hybrid search, reranking,
// deduplication, and time-decay scoring pipeline feeding the telegram,
// report, and confidential retriever agents (spec.md §4.3).
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Target is one parallel search input, identified for error reporting.
type Target interface {
	GetID() string
}

// SearchFunc runs one target's search.
type SearchFunc[T Target, R any] func(ctx context.Context, target T) (R, error)

// ParallelResult holds one target's outcome.
type ParallelResult[R any] struct {
	TargetID string
	Results  R
	Error    error
}

// ParallelSearch fans a search out across targets concurrently, grounded on
// pkg/context/search.go's ParallelSearch[T,R] generic helper (kept nearly
// verbatim — it is already domain-neutral). Used for the telegram
// retriever's 3-way query-widened search and the report/confidential
// retriever's per-provider filtered searches.
func ParallelSearch[T Target, R any](ctx context.Context, targets []T, searchFunc SearchFunc[T, R]) ([]ParallelResult[R], error) {
	if len(targets) == 0 {
		return []ParallelResult[R]{}, nil
	}

	var wg sync.WaitGroup
	resultsChan := make(chan ParallelResult[R], len(targets))

	for _, target := range targets {
		wg.Add(1)
		go func(t T) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("retrieval: panic in parallel search", "target", t.GetID(), "panic", r)
					resultsChan <- ParallelResult[R]{TargetID: t.GetID(), Error: fmt.Errorf("panic: %v", r)}
				}
			}()

			select {
			case <-ctx.Done():
				resultsChan <- ParallelResult[R]{TargetID: t.GetID(), Error: ctx.Err()}
				return
			default:
			}

			results, err := searchFunc(ctx, t)
			if err != nil {
				resultsChan <- ParallelResult[R]{TargetID: t.GetID(), Error: err}
				return
			}

			select {
			case <-ctx.Done():
				resultsChan <- ParallelResult[R]{TargetID: t.GetID(), Error: ctx.Err()}
			case resultsChan <- ParallelResult[R]{TargetID: t.GetID(), Results: results}:
			}
		}(target)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	var all []ParallelResult[R]
	for {
		select {
		case <-ctx.Done():
			return all, ctx.Err()
		case result, ok := <-resultsChan:
			if !ok {
				return all, nil
			}
			all = append(all, result)
		}
	}
}
