package handlers

import "time"

const (
	// Adaptation request limits
	defaultAdaptTimeout  = 5 * time.Second
	maxRequestIterations = 64 // Larger per-request overrides fall back to the configured cap
)
