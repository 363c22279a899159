package chains

import (
	"fmt"
	"sync"
)

// Dialect selects the execute message a destination settler accepts
type Dialect string

const (
	// DialectFill is the cw7683 settler: fill{order_id, origin_data, filler_data}
	DialectFill Dialect = "fill"
	// DialectFillOrder is the fast transfer gateway: fill_order{filler, order}
	DialectFillOrder Dialect = "fill_order"
)

// ParseDialect validates a dialect name
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case DialectFill, DialectFillOrder:
		return Dialect(s), nil
	}
	return "", fmt.Errorf("unknown fill dialect %q, must be 'fill' or 'fill_order'", s)
}

// SettlerTable picks the dialect per destination settler, falling back to a default
type SettlerTable struct {
	mu       sync.RWMutex
	fallback Dialect
	settlers map[[32]byte]Dialect
}

// NewSettlerTable creates a table answering fallback for unknown settlers
func NewSettlerTable(fallback Dialect) *SettlerTable {
	return &SettlerTable{
		fallback: fallback,
		settlers: make(map[[32]byte]Dialect),
	}
}

// Set records the dialect of a settler
func (t *SettlerTable) Set(settler [32]byte, dialect Dialect) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settlers[settler] = dialect
}

// Dialect returns the dialect of settler
func (t *SettlerTable) Dialect(settler [32]byte) Dialect {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if d, ok := t.settlers[settler]; ok {
		return d
	}
	return t.fallback
}
