package circuitbreaker

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/LerianStudio/lib-resilience/resilience/log"
)

var (
	// ErrInvalidHealthCheckInterval indicates that the health check interval must be positive.
	ErrInvalidHealthCheckInterval = errors.New("circuitbreaker: health check interval must be positive")
	// ErrInvalidHealthCheckTimeout indicates that the health check timeout must be positive.
	ErrInvalidHealthCheckTimeout = errors.New("circuitbreaker: health check timeout must be positive")
)

// HealthChecker performs periodic health checks on services and manages
// circuit breaker recovery.
type HealthChecker interface {
	// Register adds a service to health check.
	Register(serviceName string, healthCheckFn HealthCheckFunc)

	// Start begins the health check loop in a separate goroutine.
	Start()

	// Stop gracefully stops the health checker.
	Stop()

	// GetHealthStatus returns the current health status of all services.
	GetHealthStatus() map[string]string

	// StateChangeListener interface to receive circuit breaker state change notifications.
	StateChangeListener
}

// healthChecker performs periodic health checks and manages circuit breaker recovery.
type healthChecker struct {
	manager        Manager
	services       map[string]HealthCheckFunc
	interval       time.Duration
	checkTimeout   time.Duration
	logger         log.Logger
	stopChan       chan struct{}
	immediateCheck chan string // trigger an immediate health check for a service
	wg             sync.WaitGroup
	mu             sync.RWMutex
}

// NewHealthChecker creates a new health checker.
// interval: how often to run health checks.
// checkTimeout: timeout for each individual health check operation.
//
//nolint:ireturn
func NewHealthChecker(manager Manager, interval, checkTimeout time.Duration, logger log.Logger) (HealthChecker, error) {
	if interval <= 0 {
		return nil, ErrInvalidHealthCheckInterval
	}

	if checkTimeout <= 0 {
		return nil, ErrInvalidHealthCheckTimeout
	}

	if logger == nil {
		logger = log.NewNop()
	}

	return &healthChecker{
		manager:        manager,
		services:       make(map[string]HealthCheckFunc),
		interval:       interval,
		checkTimeout:   checkTimeout,
		logger:         logger,
		stopChan:       make(chan struct{}),
		immediateCheck: make(chan string, 10),
	}, nil
}

// Register adds a service to health check.
func (hc *healthChecker) Register(serviceName string, healthCheckFn HealthCheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.services[serviceName] = healthCheckFn
	hc.logger.Log(context.Background(), log.LevelInfo, "registered health check",
		log.String("service", serviceName))
}

// Start begins the health check loop.
func (hc *healthChecker) Start() {
	hc.wg.Add(1)

	go hc.healthCheckLoop()

	hc.logger.Log(context.Background(), log.LevelInfo, "health checker started",
		log.Duration("interval", hc.interval))
}

// Stop gracefully stops the health checker.
func (hc *healthChecker) Stop() {
	close(hc.stopChan)
	hc.wg.Wait()
	hc.logger.Log(context.Background(), log.LevelInfo, "health checker stopped")
}

func (hc *healthChecker) healthCheckLoop() {
	defer hc.wg.Done()

	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()

	// By entering the select loop immediately, the health checker is responsive
	// to immediate checks from the moment it starts.
	for {
		select {
		case <-ticker.C:
			hc.performHealthChecks()
		case serviceName := <-hc.immediateCheck:
			hc.checkServiceHealth(serviceName)
		case <-hc.stopChan:
			return
		}
	}
}

func (hc *healthChecker) performHealthChecks() {
	hc.mu.RLock()
	// Create snapshot to avoid holding lock during checks
	services := make(map[string]HealthCheckFunc, len(hc.services))
	maps.Copy(services, hc.services)

	hc.mu.RUnlock()

	unhealthyCount := 0
	recoveredCount := 0

	for serviceName, healthCheckFn := range services {
		// Skip if circuit breaker is healthy
		if hc.manager.IsHealthy(serviceName) {
			continue
		}

		unhealthyCount++

		if hc.runCheck(serviceName, healthCheckFn) {
			recoveredCount++
		}
	}

	if unhealthyCount > 0 {
		hc.logger.Log(context.Background(), log.LevelInfo, "health check cycle complete",
			log.Int("unhealthy", unhealthyCount),
			log.Int("recovered", recoveredCount))
	}
}

// GetHealthStatus returns the current health status of all services.
func (hc *healthChecker) GetHealthStatus() map[string]string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := make(map[string]string)

	for serviceName := range hc.services {
		status[serviceName] = string(hc.manager.GetState(serviceName))
	}

	return status
}

// OnStateChange implements the StateChangeListener interface.
// If a circuit just opened, an immediate health check is scheduled.
func (hc *healthChecker) OnStateChange(serviceName string, _ State, to State) {
	if to != StateOpen {
		return
	}

	// Non-blocking send to avoid deadlock
	select {
	case hc.immediateCheck <- serviceName:
	default:
		hc.logger.Log(context.Background(), log.LevelWarn, "immediate check channel full",
			log.String("service", serviceName))
	}
}

// checkServiceHealth performs a health check on a specific service.
func (hc *healthChecker) checkServiceHealth(serviceName string) {
	hc.mu.RLock()
	healthCheckFn, exists := hc.services[serviceName]
	hc.mu.RUnlock()

	if !exists {
		hc.logger.Log(context.Background(), log.LevelWarn, "no health check registered",
			log.String("service", serviceName))

		return
	}

	if hc.manager.IsHealthy(serviceName) {
		return
	}

	hc.runCheck(serviceName, healthCheckFn)
}

// runCheck probes a single unhealthy service and resets its breaker on
// recovery. Returns true if the service recovered.
func (hc *healthChecker) runCheck(serviceName string, healthCheckFn HealthCheckFunc) bool {
	ctx, cancel := context.WithTimeout(context.Background(), hc.checkTimeout)
	err := healthCheckFn(ctx)

	cancel()

	if err != nil {
		hc.logger.Log(context.Background(), log.LevelWarn, "service still unhealthy",
			log.String("service", serviceName),
			log.Err(err),
			log.Duration("next_check_in", hc.interval))

		return false
	}

	hc.logger.Log(context.Background(), log.LevelInfo, "service recovered, resetting circuit breaker",
		log.String("service", serviceName))
	hc.manager.Reset(serviceName)

	return true
}
