package energy_counters

import (
	"fmt"
	"sort"
	"sync"
)

// Model is the register map of one meter model plus its connection defaults.
type Model struct {
	Name             string
	Manufacturer     string
	Description      string
	Blocks           []*RegisterBlockSpec
	FailureThreshold int
	Preferred        Protocol
}

// Keys returns every output key of the model in schema order.
func (m *Model) Keys() []string {
	var keys []string
	for _, blk := range m.Blocks {
		keys = append(keys, blk.Keys()...)
	}
	return keys
}

func (m *Model) Validate() error {
	if m.Name == "" {
		return specViolation("model without name")
	}
	if len(m.Blocks) == 0 {
		return specViolation("model '%s' has no register blocks", m.Name)
	}
	switch m.Preferred {
	case "", ProtocolTCP, ProtocolRTU:
	default:
		return specViolation("model '%s' has unknown preferred protocol '%s'", m.Name, m.Preferred)
	}
	seen := make(map[string]string)
	for _, blk := range m.Blocks {
		if err := blk.Validate(); err != nil {
			return fmt.Errorf("model '%s': %w", m.Name, err)
		}
		for _, key := range blk.Keys() {
			if other, ok := seen[key]; ok {
				return specViolation("model '%s': key '%s' declared in blocks '%s' and '%s'", m.Name, key, other, blk.Name)
			}
			seen[key] = blk.Name
		}
	}
	for key := range seen {
		switch key {
		case "companyId", "timestamp", "counterId", "counterName":
			return specViolation("model '%s': key '%s' is reserved for identity fields", m.Name, key)
		}
	}
	return nil
}

var (
	modelsMu sync.RWMutex
	models   = make(map[string]*Model)
)

// RegisterModel adds a model to the registry. Names are unique.
func RegisterModel(m *Model) error {
	if err := m.Validate(); err != nil {
		return err
	}
	modelsMu.Lock()
	defer modelsMu.Unlock()
	if _, ok := models[m.Name]; ok {
		return fmt.Errorf("energy_counters: model '%s' already registered", m.Name)
	}
	models[m.Name] = m
	return nil
}

func mustRegisterModel(m *Model) {
	if err := RegisterModel(m); err != nil {
		panic(err)
	}
}

func LookupModel(name string) (*Model, error) {
	modelsMu.RLock()
	defer modelsMu.RUnlock()
	m, ok := models[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownModel, name)
	}
	return m, nil
}

// Models returns the registered models sorted by name.
func Models() []*Model {
	modelsMu.RLock()
	defer modelsMu.RUnlock()
	out := make([]*Model, 0, len(models))
	for _, m := range models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
