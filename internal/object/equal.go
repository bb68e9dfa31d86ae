package object

// IsTrue reports whether o counts as true in a test position. Only #f is
// false; the empty list is true.
func IsTrue(o Object) bool {
	b, ok := o.(*Boolean)
	return !ok || b.Value
}

func Eq(a, b Object) bool {
	if a == b {
		return true
	}
	switch x := a.(type) {
	case *Boolean:
		y, ok := b.(*Boolean)
		return ok && x.Value == y.Value
	case *Null:
		_, ok := b.(*Null)
		return ok
	}
	return false
}

// Eqv extends Eq to numbers and characters compared by value.
func Eqv(a, b Object) bool {
	if Eq(a, b) {
		return true
	}
	switch x := a.(type) {
	case *Number:
		y, ok := b.(*Number)
		return ok && x.Equal(y)
	case *Char:
		y, ok := b.(*Char)
		return ok && x.Value == y.Value
	}
	return false
}

// Equal compares pairs and strings recursively by content.
func Equal(a, b Object) bool {
	for {
		if Eqv(a, b) {
			return true
		}
		switch x := a.(type) {
		case *String:
			y, ok := b.(*String)
			return ok && x.Value == y.Value
		case *Pair:
			y, ok := b.(*Pair)
			if !ok || !Equal(x.Car, y.Car) {
				return false
			}
			a, b = x.Cdr, y.Cdr
		default:
			return false
		}
	}
}
