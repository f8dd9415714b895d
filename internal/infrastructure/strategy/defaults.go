package strategy

import (
	"github.com/bookkeep/backend/internal/infrastructure/strategy/allocation"
)

// NewRegistryWithDefaults registers fifo and manual allocation with fifo as the default
func NewRegistryWithDefaults() (*AllocationRegistry, error) {
	return NewRegistryWithDefault("")
}

// NewRegistryWithDefault is NewRegistryWithDefaults with a configured default.
// An empty name keeps fifo; an unknown name fails.
func NewRegistryWithDefault(defaultName string) (*AllocationRegistry, error) {
	r := NewAllocationRegistry()

	fifo := allocation.NewFIFOAllocationStrategy()
	if err := r.Register(fifo); err != nil {
		return nil, err
	}
	if err := r.Register(allocation.NewManualAllocationStrategy()); err != nil {
		return nil, err
	}

	if defaultName == "" {
		defaultName = fifo.Name()
	}
	if err := r.SetDefault(defaultName); err != nil {
		return nil, err
	}
	return r, nil
}
