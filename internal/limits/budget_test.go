package limits

import "testing"

func TestBudgetCharge(t *testing.T) {
	b := NewBudget(10)
	if err := b.Charge(4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Charge(6); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Charge(1); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBudgetUnlimited(t *testing.T) {
	b := NewBudget(0)
	if err := b.Charge(1_000_000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStepsTick(t *testing.T) {
	s := NewSteps(3)
	for i := 0; i < 3; i++ {
		if err := s.Tick(); err != nil {
			t.Fatalf("unexpected error at step %d: %v", i, err)
		}
	}
	err := s.Tick()
	if _, ok := err.(MaxStepsError); !ok {
		t.Fatalf("expected MaxStepsError, got %v", err)
	}
	s.Reset()
	if s.Used() != 0 {
		t.Fatalf("reset left %d steps", s.Used())
	}
}

func TestNilCountersAreUnlimited(t *testing.T) {
	var s *Steps
	var b *Budget
	if err := s.Tick(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Charge(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Limit() != 0 || b.Used() != 0 {
		t.Fatalf("nil counters should report zero")
	}
}
