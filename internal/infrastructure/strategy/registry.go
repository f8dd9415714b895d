package strategy

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/bookkeep/backend/internal/domain/payment"
	"github.com/bookkeep/backend/internal/domain/shared"
)

// AllocationRegistry resolves allocation strategies by name
type AllocationRegistry struct {
	mu         sync.RWMutex
	strategies map[string]payment.AllocationStrategy
	def        string
}

// NewAllocationRegistry creates an empty registry
func NewAllocationRegistry() *AllocationRegistry {
	return &AllocationRegistry{
		strategies: make(map[string]payment.AllocationStrategy),
	}
}

// Register adds a strategy under its own name
func (r *AllocationRegistry) Register(s payment.AllocationStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.strategies[name]; exists {
		return fmt.Errorf("%w: allocation strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.strategies[name] = s
	return nil
}

// GetAllocationStrategy returns the named strategy, or the default when name is empty
func (r *AllocationRegistry) GetAllocationStrategy(name string) (payment.AllocationStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.def
		if name == "" {
			return nil, fmt.Errorf("%w: no default allocation strategy set", shared.ErrNotFound)
		}
	}

	s, exists := r.strategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: allocation strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// Names returns the registered strategy names, sorted
func (r *AllocationRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.strategies))
}

// SetDefault makes a registered strategy the default
func (r *AllocationRegistry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[name]; !exists {
		return fmt.Errorf("%w: allocation strategy '%s' not found", shared.ErrNotFound, name)
	}
	r.def = name
	return nil
}

// Default returns the default strategy name, empty when none is set
func (r *AllocationRegistry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def
}
