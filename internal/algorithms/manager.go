package algorithms

import (
	"fmt"
	"sort"
	"sync"

	"skin-obliterator/internal/algorithms/cbcr"
	"skin-obliterator/internal/algorithms/gauss"
	"skin-obliterator/internal/algorithms/gmm"
	"skin-obliterator/internal/algorithms/params"
	"skin-obliterator/internal/algorithms/peer"
)

// DefaultAlgorithm is the likelihood-ratio mixture classifier.
const DefaultAlgorithm = gmm.Name

type Manager struct {
	algorithms map[string]Algorithm
	parameters map[string]map[string]interface{}
	mu         sync.RWMutex
}

func NewManager() *Manager {
	manager := &Manager{
		algorithms: make(map[string]Algorithm),
		parameters: make(map[string]map[string]interface{}),
	}

	manager.Register(gmm.NewProcessor())
	manager.Register(gauss.NewProcessor())
	manager.Register(peer.NewProcessor())
	manager.Register(cbcr.NewProcessor())

	return manager
}

// Register adds algorithm under its name, replacing any previous entry,
// and seeds its parameters with the defaults.
func (m *Manager) Register(algorithm Algorithm) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.algorithms[algorithm.Name()] = algorithm
	m.parameters[algorithm.Name()] = algorithm.DefaultParameters()
}

func (m *Manager) Get(name string) (Algorithm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if algorithm, exists := m.algorithms[name]; exists {
		return algorithm, nil
	}

	return nil, fmt.Errorf("unknown algorithm: %s", name)
}

// Names returns the registered algorithm names in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.algorithms))
	for name := range m.algorithms {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Parameters returns a copy of the current parameters for algorithm.
func (m *Manager) Parameters(algorithm string) (map[string]interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	current, exists := m.parameters[algorithm]
	if !exists {
		return nil, fmt.Errorf("unknown algorithm: %s", algorithm)
	}

	return params.Copy(current), nil
}

// SetParameter validates value against the algorithm before storing it.
func (m *Manager) SetParameter(algorithm, name string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.parameters[algorithm]
	if !exists {
		return fmt.Errorf("unknown algorithm: %s", algorithm)
	}

	candidate := params.Copy(current)
	candidate[name] = value
	if err := m.algorithms[algorithm].ValidateParameters(candidate); err != nil {
		return fmt.Errorf("invalid %s parameter %s: %w", algorithm, name, err)
	}

	m.parameters[algorithm] = candidate
	return nil
}

// Merge overlays overrides on the current parameters of algorithm and
// returns the validated result without storing it.
func (m *Manager) Merge(algorithm string, overrides map[string]interface{}) (map[string]interface{}, error) {
	merged, err := m.Parameters(algorithm)
	if err != nil {
		return nil, err
	}

	for k, v := range overrides {
		merged[k] = v
	}

	alg, err := m.Get(algorithm)
	if err != nil {
		return nil, err
	}
	if err := alg.ValidateParameters(merged); err != nil {
		return nil, err
	}

	return merged, nil
}
