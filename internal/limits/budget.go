package limits

import "fmt"

const (
	MemoryErrorCode int64 = 8001
	StepsErrorCode  int64 = 8002
)

// Budget counts bytes charged by allocations; a zero limit disables it.
type Budget struct {
	limit int64
	used  int64
}

func NewBudget(limit int64) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{limit: limit}
}

func (b *Budget) Limit() int64 {
	if b == nil {
		return 0
	}
	return b.limit
}

func (b *Budget) Used() int64 {
	if b == nil {
		return 0
	}
	return b.used
}

func (b *Budget) Reset() {
	if b != nil {
		b.used = 0
	}
}

func MaxMemoryMessage(limit int64) string {
	return fmt.Sprintf("max memory exceeded (%d bytes)", limit)
}

type MaxMemoryError struct {
	Limit int64
}

func (e MaxMemoryError) Error() string {
	return MaxMemoryMessage(e.Limit)
}

func (b *Budget) Charge(n int64) error {
	if b == nil || b.limit == 0 {
		return nil
	}
	if n <= 0 {
		return nil
	}
	if b.used+n > b.limit {
		return MaxMemoryError{Limit: b.limit}
	}
	b.used += n
	return nil
}

// Steps counts executed instructions; a zero limit disables it.
type Steps struct {
	limit int64
	used  int64
}

func NewSteps(limit int64) *Steps {
	if limit < 0 {
		limit = 0
	}
	return &Steps{limit: limit}
}

func (s *Steps) Limit() int64 {
	if s == nil {
		return 0
	}
	return s.limit
}

func (s *Steps) Used() int64 {
	if s == nil {
		return 0
	}
	return s.used
}

func (s *Steps) Reset() {
	if s != nil {
		s.used = 0
	}
}

type MaxStepsError struct {
	Limit int64
}

func (e MaxStepsError) Error() string {
	return fmt.Sprintf("max steps exceeded (%d instructions)", e.Limit)
}

func (s *Steps) Tick() error {
	if s == nil {
		return nil
	}
	s.used++
	if s.limit > 0 && s.used > s.limit {
		return MaxStepsError{Limit: s.limit}
	}
	return nil
}
