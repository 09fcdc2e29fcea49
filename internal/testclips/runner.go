package testclips

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Akhil3111/VoiceGuard-API/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete clip test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting voiceguard clip test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("clips", config.NumClips),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate clips
	clips, err := generateClips(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("clip generation failed: %w", err)
	}

	// Step 3: Submit clips concurrently
	if err := submitClips(ctx, config, clips, stats); err != nil {
		return fmt.Errorf("clip submission failed: %w", err)
	}

	// Step 4: Poll job outcomes
	results, err := collectOutcomes(ctx, config, clips, stats)
	if err != nil {
		return fmt.Errorf("outcome collection failed: %w", err)
	}

	// Step 5: Get review queue
	review, err := getReview(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("review retrieval failed: %w", err)
	}

	// Step 6: Verify results
	if err := verifyResults(clips, results, review, config.Verbose); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 7: Save clip manifest to file
	if err := saveClipsToFile(ctx, config, clips); err != nil {
		logger.Get().Warn(ctx, "failed to save clip manifest", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout, config.APIKey)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveClipsToFile saves the clip manifest (kinds, seeds, job ids) to a JSON
// file so a failing run can be replayed.
func saveClipsToFile(ctx context.Context, config *Config, clips []Clip) error {
	if len(clips) == 0 {
		return fmt.Errorf("no clips to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_clips_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write clips to file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array. Audio payloads are dropped from the manifest: the
	// seed and kind are enough to regenerate them.
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, clip := range clips {
		clip.Audio = ""
		jsonData, err := marshalJSON(clip)
		if err != nil {
			return fmt.Errorf("failed to marshal clip %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write clip %d: %w", i, err)
		}

		// Add comma except for last clip
		if i < len(clips)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "clip manifest saved", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, clipsPerSecond float64

	if stats.ClipsSubmitted > 0 {
		acceptRate = float64(stats.ClipsAccepted) / float64(stats.ClipsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		clipsPerSecond = float64(stats.ClipsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("clipsGenerated", stats.ClipsGenerated),
		logger.Int("clipsSubmitted", stats.ClipsSubmitted),
		logger.Int("clipsAccepted", stats.ClipsAccepted),
		logger.Int("clipsRejected", stats.ClipsRejected),
		logger.Int("clipsFailed", stats.ClipsFailed),
		logger.Int("outcomesResolved", stats.OutcomesResolved),
		logger.Int("reviewEntries", stats.ReviewEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("clipsPerSecond", clipsPerSecond))
}
