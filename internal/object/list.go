package object

func Cons(car, cdr Object) *Pair {
	return &Pair{Car: car, Cdr: cdr}
}

func List(items ...Object) Object {
	var out Object = Unit
	for i := len(items) - 1; i >= 0; i-- {
		out = Cons(items[i], out)
	}
	return out
}

// ListStar is List with the last item as the tail instead of unit.
func ListStar(items ...Object) Object {
	if len(items) == 0 {
		return Unit
	}
	out := items[len(items)-1]
	for i := len(items) - 2; i >= 0; i-- {
		out = Cons(items[i], out)
	}
	return out
}

// ToSlice returns the elements of a proper list. It reports false for an
// improper list.
func ToSlice(list Object) ([]Object, bool) {
	var out []Object
	for {
		switch v := list.(type) {
		case *Null:
			return out, true
		case *Pair:
			out = append(out, v.Car)
			list = v.Cdr
		default:
			return out, false
		}
	}
}

func IsList(o Object) bool {
	for {
		switch v := o.(type) {
		case *Null:
			return true
		case *Pair:
			o = v.Cdr
		default:
			return false
		}
	}
}

// Length counts pairs up to the terminating non-pair.
func Length(o Object) int {
	n := 0
	for {
		p, ok := o.(*Pair)
		if !ok {
			return n
		}
		n++
		o = p.Cdr
	}
}

func Car(o Object) Object {
	if p, ok := o.(*Pair); ok {
		return p.Car
	}
	return Unit
}

func Cdr(o Object) Object {
	if p, ok := o.(*Pair); ok {
		return p.Cdr
	}
	return Unit
}

func Cadr(o Object) Object { return Car(Cdr(o)) }
func Cddr(o Object) Object { return Cdr(Cdr(o)) }

// Tail drops k pairs. It reports false when the list is too short.
func Tail(o Object, k int) (Object, bool) {
	for ; k > 0; k-- {
		p, ok := o.(*Pair)
		if !ok {
			return o, false
		}
		o = p.Cdr
	}
	return o, true
}

// Append copies every list but the last, which becomes the shared tail.
func Append(lists ...Object) (Object, bool) {
	if len(lists) == 0 {
		return Unit, true
	}
	out := lists[len(lists)-1]
	for i := len(lists) - 2; i >= 0; i-- {
		items, ok := ToSlice(lists[i])
		if !ok {
			return nil, false
		}
		for j := len(items) - 1; j >= 0; j-- {
			out = Cons(items[j], out)
		}
	}
	return out, true
}

func Reverse(o Object) (Object, bool) {
	var out Object = Unit
	for {
		switch v := o.(type) {
		case *Null:
			return out, true
		case *Pair:
			out = Cons(v.Car, out)
			o = v.Cdr
		default:
			return nil, false
		}
	}
}
