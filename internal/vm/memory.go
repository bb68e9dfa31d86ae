package vm

import (
	"secd/internal/diag"
)

// charge takes n bytes from the memory budget, if one is set.
func (m *VM) charge(n int64) error {
	if m.budget == nil {
		return nil
	}
	if err := m.budget.Charge(n); err != nil {
		return diag.FromLimit(err)
	}
	return nil
}

func (m *VM) MemoryUsed() int64 {
	return m.budget.Used()
}
