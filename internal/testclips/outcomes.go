package testclips

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// collectOutcomes polls job results for all accepted clips concurrently.
// Results are indexed the same way as clips; clips without a job id or whose
// job never resolves are left empty.
func collectOutcomes(ctx context.Context, config *Config, clips []Clip, stats *Stats) ([]JobResult, error) {
	log.Printf("collecting outcomes for %d clips with %d workers...", len(clips), config.Workers)

	client := newHTTPClient(config.Timeout, config.APIKey)

	results := make([]JobResult, len(clips))
	var (
		resolved int64
		failed   int64
	)

	// Create worker pool
	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					jobID := clips[index].JobID
					if jobID == "" {
						atomic.AddInt64(&failed, 1)
						continue
					}

					result, err := pollSingleOutcome(ctx, client, config.BaseURL, jobID)
					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("failed to get outcome for %s: %v", jobID, err)
						}
					} else {
						results[index] = result
						atomic.AddInt64(&resolved, 1)
					}
				}
			}
		}()
	}

	// Send clip indices to workers
	go func() {
		defer close(indexChan)
		for i := range clips {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Update stats
	stats.OutcomesResolved = int(atomic.LoadInt64(&resolved))

	log.Printf(`outcome collection completed:
   Resolved: %d
   Failed: %d
`, stats.OutcomesResolved, int(atomic.LoadInt64(&failed)))

	return results, nil
}

// pollSingleOutcome polls one job until it resolves or the deadline passes.
// A 404 means the job is still queued or in flight.
func pollSingleOutcome(ctx context.Context, client *HTTPClient, baseURL, jobID string) (JobResult, error) {
	url := fmt.Sprintf("%s/v1/jobs/%s", baseURL, jobID)
	deadline := time.Now().Add(OutcomePollDeadline)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return JobResult{}, ctx.Err()
		default:
		}

		resp, err := client.Get(url)
		if err != nil {
			return JobResult{}, fmt.Errorf("request failed: %w", err)
		}

		body, err := readResponseBody(resp)
		if err != nil {
			return JobResult{}, fmt.Errorf("failed to read response: %w", err)
		}

		switch resp.StatusCode {
		case StatusOK:
			var result JobResult
			if err := unmarshalJSON(body, &result); err != nil {
				return JobResult{}, fmt.Errorf("failed to parse response: %w", err)
			}
			return result, nil
		case StatusNotFound:
			time.Sleep(OutcomePollInterval)
		default:
			return JobResult{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
		}
	}

	return JobResult{}, fmt.Errorf("job %s did not resolve before deadline", jobID)
}

// getReview retrieves the top N review entries.
func getReview(ctx context.Context, config *Config, stats *Stats) ([]Entry, error) {
	log.Printf("getting top %d review entries...", config.TopN)

	client := newHTTPClient(config.Timeout, config.APIKey)
	url := fmt.Sprintf("%s/v1/review?limit=%d", config.BaseURL, config.TopN)

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var entries []Entry
	if err := unmarshalJSON(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.ReviewEntries = len(entries)
	log.Printf("retrieved %d review entries", len(entries))

	return entries, nil
}
