package object

const (
	memPtrSize          int64 = 8
	memPairHead         int64 = 16
	memStringHead       int64 = 24
	memSymbolHead       int64 = 40
	memClosureHead      int64 = 32
	memContinuationHead int64 = 48
	memDumpHead         int64 = 40
	memMacroHead        int64 = 48
	memCellHead         int64 = 16
)

func CostPair() int64 {
	return memPairHead
}

func CostStringBytes(n int) int64 {
	if n < 0 {
		return memStringHead
	}
	return memStringHead + int64(n)
}

func CostSymbol(nameLen int) int64 {
	if nameLen < 0 {
		return memSymbolHead
	}
	return memSymbolHead + int64(nameLen)
}

func CostClosure() int64 {
	return memClosureHead
}

func CostContinuation() int64 {
	return memContinuationHead
}

func CostDump() int64 {
	return memDumpHead
}

func CostMacro(nameLen int) int64 {
	if nameLen < 0 {
		return memMacroHead
	}
	return memMacroHead + int64(nameLen)
}

// CostFrame is the price of a frame of n slots built by argument pushes.
func CostFrame(n int) int64 {
	if n <= 0 {
		return memPtrSize
	}
	return int64(n)*memPairHead + memPtrSize
}

func CostCell() int64 {
	return memCellHead
}
