package object

import (
	"sync"
	"sync/atomic"
)

type box struct{ value Object }

// Cell holds one global value. Set replaces the value atomically, so every
// holder of the cell observes assignments.
type Cell struct {
	v   atomic.Pointer[box]
	gen uint64
}

func (c *Cell) Get() Object {
	if b := c.v.Load(); b != nil {
		return b.value
	}
	return Unspecified
}

func (c *Cell) Set(value Object) {
	c.v.Store(&box{value: value})
}

type Binding struct {
	Name  *Symbol
	Value Object
}

// Environment is the global binding table of one evaluator instance.
type Environment struct {
	mu    sync.RWMutex
	cells map[*Symbol]*Cell
	order []*Symbol
	gen   uint64
}

func NewEnvironment() *Environment {
	return &Environment{cells: map[*Symbol]*Cell{}}
}

func (*Environment) Type() Type      { return ENVIRONMENT_OBJ }
func (*Environment) Inspect() string { return "#<environment>" }

func (e *Environment) Lookup(sym *Symbol) (*Cell, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.cells[sym]
	return c, ok
}

func (e *Environment) Get(sym *Symbol) (Object, bool) {
	c, ok := e.Lookup(sym)
	if !ok {
		return nil, false
	}
	return c.Get(), true
}

// Define binds sym, reusing an existing cell so earlier references see the
// new value.
func (e *Environment) Define(sym *Symbol, value Object) *Cell {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	c, ok := e.cells[sym]
	if !ok {
		c = &Cell{}
		e.cells[sym] = c
		e.order = append(e.order, sym)
	}
	c.gen = e.gen
	c.Set(value)
	return c
}

// Assign updates an existing binding and reports whether there was one.
func (e *Environment) Assign(sym *Symbol, value Object) bool {
	c, ok := e.Lookup(sym)
	if !ok {
		return false
	}
	c.Set(value)
	return true
}

func (e *Environment) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.order)
}

// Mark returns a generation to pass to DefinedSince.
func (e *Environment) Mark() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gen
}

// DefinedSince lists bindings defined or redefined after mark, in first
// definition order.
func (e *Environment) DefinedSince(mark uint64) []Binding {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []Binding
	for _, sym := range e.order {
		c := e.cells[sym]
		if c.gen > mark {
			out = append(out, Binding{Name: sym, Value: c.Get()})
		}
	}
	return out
}

func (e *Environment) Bindings() []Binding {
	return e.DefinedSince(0)
}
