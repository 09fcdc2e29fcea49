package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/Akhil3111/VoiceGuard-API/internal/testclips"
)

// Default configuration constants.
const (
	defaultNumClips    = 200
	defaultTopN        = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultSeconds     = 3.0
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		apiKey     = flag.String("key", "", "X-API-Key value")
		numClips   = flag.Int("clips", defaultNumClips, "Number of clips to generate and submit")
		topN       = flag.Int("top", defaultTopN, "Number of review entries to fetch")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		seconds    = flag.Float64("seconds", defaultSeconds, "Duration of each generated clip")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for the clip manifest (default: generated_clips_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testclips.ShowHelp()
		return
	}

	// Setup logging
	if err := testclips.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &testclips.Config{
		BaseURL:    *baseURL,
		APIKey:     *apiKey,
		NumClips:   *numClips,
		TopN:       *topN,
		Workers:    *workers,
		Timeout:    *timeout,
		Seconds:    *seconds,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	// Run the test
	if err := testclips.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
