package circuitbreaker

import "time"

// DefaultOptions provides balanced settings for most services.
func DefaultOptions() Options {
	return Options{
		FailuresBeforeOpen:    5,
		OpenInterval:          30 * time.Second,
		HalfOpenProbeInterval: 5 * time.Second,
	}
}

// AggressiveOptions for services requiring fast failure detection.
func AggressiveOptions() Options {
	return Options{
		FailuresBeforeOpen:    3,
		OpenInterval:          10 * time.Second,
		HalfOpenProbeInterval: 2 * time.Second,
		FailureRatio:          0.4,
		MinRequests:           5,
	}
}

// ConservativeOptions for services that should tolerate more failures.
func ConservativeOptions() Options {
	return Options{
		FailuresBeforeOpen:    15,
		OpenInterval:          2 * time.Minute,
		HalfOpenProbeInterval: 15 * time.Second,
		FailureRatio:          0.6,
		MinRequests:           20,
	}
}

// HTTPServiceOptions optimized for external HTTP APIs.
// Faster failure detection with a shorter cooldown suitable for HTTP calls.
func HTTPServiceOptions() Options {
	return Options{
		FailuresBeforeOpen:    5,
		OpenInterval:          15 * time.Second,
		HalfOpenProbeInterval: 3 * time.Second,
		FailureRatio:          0.5,
		MinRequests:           10,
	}
}

// DatabaseOptions optimized for database connections.
// More tolerant of failures since databases should be stable and temporary
// network issues shouldn't immediately trip the breaker.
func DatabaseOptions() Options {
	return Options{
		FailuresBeforeOpen:    20,
		OpenInterval:          3 * time.Minute,
		HalfOpenProbeInterval: 30 * time.Second,
		FailureRatio:          0.6,
		MinRequests:           15,
	}
}
