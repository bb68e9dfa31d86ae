package object

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// SymbolTable interns symbols for one evaluator instance.
type SymbolTable struct {
	mu      sync.Mutex
	symbols map[string]*Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: map[string]*Symbol{}}
}

func (t *SymbolTable) Intern(name string) *Symbol {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sym, ok := t.symbols[name]; ok {
		return sym
	}
	sym := &Symbol{Name: name}
	t.symbols[name] = sym
	return sym
}

func (t *SymbolTable) Lookup(name string) (*Symbol, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sym, ok := t.symbols[name]
	return sym, ok
}

// Fresh returns an uninterned symbol that is distinct from every symbol
// this or any other table has produced or will produce.
func (t *SymbolTable) Fresh(hint string) *Symbol {
	if hint == "" {
		hint = "g"
	}
	return &Symbol{Name: hint, Tag: ulid.Make().String()}
}

func (t *SymbolTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.symbols)
}
