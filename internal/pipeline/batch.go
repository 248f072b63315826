package pipeline

import (
	"sync"

	"spccvault/internal"
)

// ProgressFunc reports completion after each unit of work as
// (completed, total); completed is strictly increasing and ends at total.
type ProgressFunc func(completed, total int)

// ExtractFunc is the per-document task run by the batch scheduler.
type ExtractFunc func(internal.RawDocument) internal.ExtractionResult

// RunBatch runs task over every document with at most limit in flight.
// One document failing never aborts or skips sibling work; failures travel
// inside the results. Output order is completion order, so callers must
// re-associate results by document identity, never by position.
func RunBatch(docs []internal.RawDocument, limit int, task ExtractFunc, onProgress ProgressFunc) []internal.ExtractionResult {
	if limit < 1 {
		limit = 1
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		completed int
	)
	results := make([]internal.ExtractionResult, 0, len(docs))
	sem := make(chan struct{}, limit)

	for _, doc := range docs {
		doc := doc
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			result := task(doc)

			mu.Lock()
			results = append(results, result)
			completed++
			done, total := completed, len(docs)
			if onProgress != nil {
				// Called under the lock so reported counts are strictly
				// increasing even when tasks finish simultaneously.
				onProgress(done, total)
			}
			mu.Unlock()
		}()
	}

	wg.Wait()
	return results
}
