package pagination

import (
	"fmt"
	"sort"
)

// ConfigSource resolves the pagination config of an operation.
type ConfigSource interface {
	Config(operation string) (*Config, error)
}

// Model is the pagination description of one service: every operation that
// has an entry, with nil marking an operation explicitly declared as not
// pageable.
type Model struct {
	configs map[string]*Config
}

// NewModel validates every definition. A nil definition is kept as an
// explicit "not pageable" entry.
func NewModel(defs map[string]*Definition) (*Model, error) {
	m := &Model{configs: make(map[string]*Config, len(defs))}
	for op, def := range defs {
		if def == nil {
			m.configs[op] = nil
			continue
		}
		cfg, err := NewConfig(*def)
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", op, err)
		}
		m.configs[op] = cfg
	}
	return m, nil
}

// Config returns the config for operation. It fails with ErrNotFound when the
// model has no entry and ErrNotPageable when the entry is null; both match
// errors.Is(err, ErrNotPageable).
func (m *Model) Config(operation string) (*Config, error) {
	cfg, ok := m.configs[operation]
	if !ok {
		return nil, fmt.Errorf("%s: %w", operation, ErrNotFound)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%s: %w", operation, ErrNotPageable)
	}
	return cfg, nil
}

// CanPaginate reports whether operation has a usable config.
func (m *Model) CanPaginate(operation string) bool {
	cfg, ok := m.configs[operation]
	return ok && cfg != nil
}

// Operations returns the pageable operation names in sorted order.
func (m *Model) Operations() []string {
	ops := make([]string, 0, len(m.configs))
	for op, cfg := range m.configs {
		if cfg != nil {
			ops = append(ops, op)
		}
	}
	sort.Strings(ops)
	return ops
}
