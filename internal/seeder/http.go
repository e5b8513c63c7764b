package seeder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scoutbeat/scoutbeat/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	resp, err := c.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	return resp, nil
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", url, err)
	}
	return resp, nil
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// submitSnapshots submits snapshots concurrently using a worker pool.
func submitSnapshots(ctx context.Context, config *Config, snapshots []Snapshot, stats *Stats) {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/snapshots"

	snapChan := make(chan Snapshot, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for snap := range snapChan {
				select {
				case <-ctx.Done():
					return
				default:
					if submitSingleSnapshot(ctx, client, url, snap, config.Verbose) {
						atomic.AddInt64(&stats.Successful, 1)
					} else {
						atomic.AddInt64(&stats.Failed, 1)
					}
				}
			}
		}()
	}

	for _, snap := range snapshots {
		snapChan <- snap
	}
	close(snapChan)
	wg.Wait()
}

// submitSingleSnapshot posts one snapshot and reports acceptance.
func submitSingleSnapshot(ctx context.Context, client *HTTPClient, url string, snap Snapshot, verbose bool) bool {
	resp, err := client.Post(url, snap)
	if err != nil {
		logger.Get().Warn(ctx, "snapshot submission failed",
			logger.String("track", snap.TrackID), logger.Error(err))
		return false
	}

	body, err := readResponseBody(resp)
	if err != nil || resp.StatusCode != http.StatusAccepted {
		logger.Get().Warn(ctx, "snapshot rejected",
			logger.String("track", snap.TrackID),
			logger.Int("status", resp.StatusCode))
		return false
	}

	if verbose {
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil {
			logger.Get().Debug(ctx, "snapshot accepted",
				logger.String("track", snap.TrackID),
				logger.Int("jobs", len(ack.JobIDs)))
		}
	}
	return true
}
