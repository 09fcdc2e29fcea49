package testclips

import "time"

// Config holds configuration for the clip test
type Config struct {
	BaseURL    string        // Base URL of the service
	APIKey     string        // X-API-Key header value, empty for open deployments
	NumClips   int           // Number of clips to generate
	TopN       int           // Number of review entries to fetch
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Seconds    float64       // Duration of each generated clip
	OutputFile string        // Output file for the clip manifest
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// Clip is one generated test clip ready for submission.
type Clip struct {
	Kind       string `json:"kind"`
	Audio      string `json:"audio"` // base64 pcm_s16le mono
	SampleRate int    `json:"sample_rate"`
	Seed       int64  `json:"seed"`
	JobID      string `json:"job_id,omitempty"` // filled after submission
}

// SubmitResponse represents the response from clip submission
type SubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Verdict mirrors the verdict fields this tool inspects.
type Verdict struct {
	AuthenticityScore float64 `json:"authenticity_score"`
	Label             string  `json:"label"`
	RiskLevel         string  `json:"risk_level"`
	ReasonCode        string  `json:"reason_code"`
	Backend           string  `json:"backend"`
}

// JobResult represents the response from a job lookup
type JobResult struct {
	JobID   string   `json:"job_id"`
	Status  string   `json:"status"`
	Verdict *Verdict `json:"verdict"`
	Failure string   `json:"failure"`
}

// Entry represents a review queue entry
type Entry struct {
	Rank  int     `json:"rank"`
	JobID string  `json:"job_id"`
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// Stats holds test statistics
type Stats struct {
	ClipsGenerated   int
	ClipsSubmitted   int
	ClipsAccepted    int
	ClipsRejected    int
	ClipsFailed      int
	OutcomesResolved int
	ReviewEntries    int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
