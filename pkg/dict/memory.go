package dict

import (
	"sync"

	"github.com/tunekit/tunekit/pkg/tunable"
)

// MemoryDictionary records quantities in declaration order. It is safe for
// concurrent use; reading a quantity's value is not synchronised with the
// model writing it.
type MemoryDictionary struct {
	mu     sync.RWMutex
	quants map[string]Quantity
	order  []string
}

// NewMemoryDictionary creates an empty dictionary.
func NewMemoryDictionary() *MemoryDictionary {
	return &MemoryDictionary{quants: make(map[string]Quantity)}
}

// Define implements Dictionary. Names must be unique.
func (m *MemoryDictionary) Define(q Quantity) error {
	if q.Name == "" {
		return tunable.Errorf(tunable.ClassInvalidArgument, "quantity name is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quants[q.Name]; ok {
		return tunable.Errorf(tunable.ClassInvalidArgument, "quantity %q already defined", q.Name)
	}
	m.quants[q.Name] = q
	m.order = append(m.order, q.Name)
	return nil
}

// Lookup returns the quantity registered as name.
func (m *MemoryDictionary) Lookup(name string) (Quantity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quants[name]
	return q, ok
}

// Names returns the registered names in declaration order.
func (m *MemoryDictionary) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// Len returns the number of registered quantities.
func (m *MemoryDictionary) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// Values samples every quantity.
func (m *MemoryDictionary) Values() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.quants))
	for name, q := range m.quants {
		out[name] = q.Value()
	}
	return out
}
