package shared

import "fmt"

var (
	// Client-side precondition failures; these never reach the network
	ErrValidation = fmt.Errorf("validation failed")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrAuthFailed         = fmt.Errorf("authentication failed")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrSessionInvalidated = fmt.Errorf("session invalidated")

	// API and transport errors
	ErrRequestFailed      = fmt.Errorf("request failed")
	ErrTransport          = fmt.Errorf("network unreachable")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Job errors
	ErrNoActiveJob = fmt.Errorf("no active job")
	ErrJobNotFound = fmt.Errorf("job not found")
)
