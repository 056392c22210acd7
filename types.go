package main

import "time"

// RunStatus represents the outcome of a pipeline run
type RunStatus string

const (
	StatusSuccess  RunStatus = "success"
	StatusFallback RunStatus = "fallback"
	StatusError    RunStatus = "error"
)

// RunSummary is what a full run reports back to the operator.
type RunSummary struct {
	RunID       string
	SeedKey     string
	Status      RunStatus
	Title       string
	WordCount   int
	GeneratedBy string
	Chosen      string
	Score       int
	Readability float64
	Originality int
	Fallbacks   []string
	Duration    time.Duration
	Error       error
}
