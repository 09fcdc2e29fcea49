package testclips

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout and optional API-key auth
type HTTPClient struct {
	client *http.Client
	apiKey string
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration, apiKey string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		apiKey: apiKey,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitRequest mirrors the API schema for POST /v1/jobs.
type submitRequest struct {
	Audio  string        `json:"audio"`
	Format formatRequest `json:"format"`
}

type formatRequest struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	BitDepth   int    `json:"bit_depth"`
	Channels   int    `json:"channels"`
}

// submitClips submits clips concurrently using worker pools. Accepted clips
// get their JobID filled in place.
func submitClips(ctx context.Context, config *Config, clips []Clip, stats *Stats) error {
	log.Printf("submitting %d clips with %d workers...", len(clips), config.Workers)

	client := newHTTPClient(config.Timeout, config.APIKey)
	url := config.BaseURL + "/v1/jobs"

	// Counters for statistics
	var (
		accepted  int64
		rejected  int64
		failed    int64
		submitted int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

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
					jobID, result := submitSingleClip(client, url, clips[index])
					if jobID != "" {
						clips[index].JobID = jobID
					}

					// Update counters
					atomic.AddInt64(&submitted, 1)
					switch result {
					case "accepted":
						atomic.AddInt64(&accepted, 1)
					case "rejected":
						atomic.AddInt64(&rejected, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						acc := atomic.LoadInt64(&accepted)
						rej := atomic.LoadInt64(&rejected)
						fail := atomic.LoadInt64(&failed)

						log.Printf("progress: %d/%d submitted (accepted: %d, rejected: %d, failed: %d)",
							total, len(clips), acc, rej, fail)
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
	stats.ClipsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.ClipsAccepted = int(atomic.LoadInt64(&accepted))
	stats.ClipsRejected = int(atomic.LoadInt64(&rejected))
	stats.ClipsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`clip submission completed:
   Accepted: %d
   Rejected: %d
   Failed: %d
`, stats.ClipsAccepted, stats.ClipsRejected, stats.ClipsFailed)

	return nil
}

// submitSingleClip submits a single clip and returns its job id and result.
func submitSingleClip(client *HTTPClient, url string, clip Clip) (string, string) {
	req := submitRequest{
		Audio: clip.Audio,
		Format: formatRequest{
			Codec:      "pcm_s16le",
			SampleRate: clip.SampleRate,
			BitDepth:   16,
			Channels:   1,
		},
	}

	resp, err := client.Post(url, req)
	if err != nil {
		return "", "failed"
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "", "failed"
	}

	switch resp.StatusCode {
	case StatusAccepted:
		var ack SubmitResponse
		if err := unmarshalJSON(body, &ack); err == nil && ack.JobID != "" {
			return ack.JobID, "accepted"
		}
		return "", "failed"
	case http.StatusTooManyRequests:
		return "", "rejected"
	default:
		return "", "failed"
	}
}
