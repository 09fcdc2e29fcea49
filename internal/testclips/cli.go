package testclips

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/Akhil3111/VoiceGuard-API/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "test_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the test clips tool.
func ShowHelp() {
	os.Stdout.WriteString(`VoiceGuard Clip Test Tool
=========================

A concurrent tool for exercising the VoiceGuard analysis API with
synthetic audio clips.

Usage:
  go run cmd/test-clips/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -key string
        X-API-Key value (default: none)
  -clips int
        Number of clips to generate and submit (default 200)
  -top int
        Number of review entries to fetch (default 50)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -seconds float
        Duration of each generated clip (default 3.0)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for the clip manifest (default: generated_clips_TIMESTAMP.json)
  -log string
        Log file for test output (default: test_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/test-clips/main.go

  # Test with custom parameters
  go run cmd/test-clips/main.go -clips 1000 -workers 16 -url http://localhost:8080

  # Test an authenticated deployment
  go run cmd/test-clips/main.go -key secret -clips 500
`)
}
