package circuitbreaker

import (
	"context"
	"fmt"
	"sync"

	"github.com/LerianStudio/lib-resilience/resilience/log"
	"github.com/LerianStudio/lib-resilience/resilience/opentelemetry/metrics"
)

// Manager manages circuit breakers for external services.
type Manager interface {
	// GetOrCreate returns an existing circuit breaker or creates a new one.
	GetOrCreate(serviceName string, opts Options) *Breaker

	// Execute runs a function through the circuit breaker.
	Execute(ctx context.Context, serviceName string, fn func() (any, error)) (any, error)

	// GetState returns the current state.
	GetState(serviceName string) State

	// GetCounts returns the current counts for a circuit breaker.
	GetCounts(serviceName string) Counts

	// IsHealthy returns true if the circuit breaker is not open.
	IsHealthy(serviceName string) bool

	// Reset resets a circuit breaker to the closed state.
	Reset(serviceName string)

	// RegisterStateChangeListener registers a listener for circuit breaker state changes.
	RegisterStateChangeListener(listener StateChangeListener)
}

type manager struct {
	breakers  map[string]*Breaker
	listeners []StateChangeListener
	mu        sync.RWMutex
	logger    log.Logger
	metrics   *metrics.MetricsFactory
}

// NewManager creates a new circuit breaker manager.
//
//nolint:ireturn
func NewManager(logger log.Logger) Manager {
	return NewManagerWithMetrics(logger, metrics.NewNopFactory())
}

// NewManagerWithMetrics creates a manager that records state transitions
// through the given metrics factory.
//
//nolint:ireturn
func NewManagerWithMetrics(logger log.Logger, factory *metrics.MetricsFactory) Manager {
	if logger == nil {
		logger = log.NewNop()
	}

	if factory == nil {
		factory = metrics.NewNopFactory()
	}

	return &manager{
		breakers:  make(map[string]*Breaker),
		listeners: make([]StateChangeListener, 0),
		logger:    logger,
		metrics:   factory,
	}
}

func (m *manager) GetOrCreate(serviceName string, opts Options) *Breaker {
	m.mu.RLock()
	breaker, exists := m.breakers[serviceName]
	m.mu.RUnlock()

	if exists {
		return breaker
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if breaker, exists = m.breakers[serviceName]; exists {
		return breaker
	}

	breaker = New(serviceName, opts)
	breaker.setTransitionHook(m.handleStateChange)
	m.breakers[serviceName] = breaker

	m.logger.Log(context.Background(), log.LevelInfo, "created circuit breaker",
		log.String("service", serviceName))

	return breaker
}

func (m *manager) Execute(ctx context.Context, serviceName string, fn func() (any, error)) (any, error) {
	m.mu.RLock()
	breaker, exists := m.breakers[serviceName]
	m.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("circuit breaker not found for service: %s (call GetOrCreate first)", serviceName)
	}

	if err := breaker.Admit(); err != nil {
		m.logger.Log(ctx, log.LevelWarn, "circuit breaker rejected request",
			log.String("service", serviceName),
			log.Err(err))

		return nil, fmt.Errorf("service %s is currently unavailable: %w", serviceName, err)
	}

	result, err := fn()
	if err != nil {
		breaker.RecordFailure()

		return nil, err
	}

	breaker.RecordSuccess()

	return result, nil
}

func (m *manager) GetState(serviceName string) State {
	m.mu.RLock()
	breaker, exists := m.breakers[serviceName]
	m.mu.RUnlock()

	if !exists {
		return StateUnknown
	}

	return breaker.State()
}

func (m *manager) GetCounts(serviceName string) Counts {
	m.mu.RLock()
	breaker, exists := m.breakers[serviceName]
	m.mu.RUnlock()

	if !exists {
		return Counts{}
	}

	return breaker.Counts()
}

func (m *manager) IsHealthy(serviceName string) bool {
	state := m.GetState(serviceName)
	// Only the closed state is considered healthy; open and half-open both
	// need health checker intervention.
	isHealthy := state == StateClosed

	m.logger.Log(context.Background(), log.LevelDebug, "health check",
		log.String("service", serviceName),
		log.String("state", string(state)),
		log.Bool("healthy", isHealthy))

	return isHealthy
}

func (m *manager) Reset(serviceName string) {
	m.mu.RLock()
	breaker, exists := m.breakers[serviceName]
	m.mu.RUnlock()

	if !exists {
		return
	}

	m.logger.Log(context.Background(), log.LevelInfo, "resetting circuit breaker",
		log.String("service", serviceName))

	breaker.Reset()
}

// RegisterStateChangeListener registers a listener for state change notifications.
func (m *manager) RegisterStateChangeListener(listener StateChangeListener) {
	if listener == nil {
		m.logger.Log(context.Background(), log.LevelWarn, "attempted to register a nil state change listener")

		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = append(m.listeners, listener)
}

// handleStateChange processes state changes and notifies listeners.
func (m *manager) handleStateChange(serviceName string, from State, to State) {
	ctx := context.Background()

	level := log.LevelInfo
	if to == StateOpen {
		level = log.LevelError
	}

	m.logger.Log(ctx, level, "circuit breaker state changed",
		log.String("service", serviceName),
		log.String("from", string(from)),
		log.String("to", string(to)))

	if counter, err := m.metrics.Counter(metrics.MetricCircuitTransitions); err == nil {
		_ = counter.WithLabels(map[string]string{
			"service": serviceName,
			"from":    string(from),
			"to":      string(to),
		}).AddOne(ctx)
	}

	m.mu.RLock()
	listeners := make([]StateChangeListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.RUnlock()

	for _, listener := range listeners {
		// Notify in goroutine to avoid blocking circuit breaker operations
		go func(l StateChangeListener) {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Log(ctx, log.LevelError, "state change listener panic",
						log.String("service", serviceName),
						log.Any("panic_value", r))
				}
			}()

			l.OnStateChange(serviceName, from, to)
		}(listener)
	}
}
