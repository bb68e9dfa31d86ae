package object

import "testing"

func TestMemCostBasics(t *testing.T) {
	if got := CostStringBytes(5); got != memStringHead+5 {
		t.Fatalf("CostStringBytes mismatch: got %d", got)
	}
	if got := CostSymbol(3); got != memSymbolHead+3 {
		t.Fatalf("CostSymbol mismatch: got %d", got)
	}
	if got := CostFrame(3); got != 3*memPairHead+memPtrSize {
		t.Fatalf("CostFrame mismatch: got %d", got)
	}
	if got := CostFrame(0); got != memPtrSize {
		t.Fatalf("CostFrame(0) mismatch: got %d", got)
	}
	if got := CostMacro(-1); got != memMacroHead {
		t.Fatalf("CostMacro mismatch: got %d", got)
	}
}
