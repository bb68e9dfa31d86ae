package object

import "strings"

var charNames = map[rune]string{
	' ':    "space",
	'\n':   "newline",
	'\t':   "tab",
	'\r':   "return",
	0:      "null",
	'\x7f': "delete",
	'\x1b': "escape",
	'\a':   "alarm",
	'\b':   "backspace",
}

// CharByName resolves the long form of a character literal such as space.
func CharByName(name string) (rune, bool) {
	for r, n := range charNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}

var abbreviations = map[string]string{
	"quote":            "'",
	"quasiquote":       "`",
	"unquote":          ",",
	"unquote-splicing": ",@",
}

// Write renders o the way the reader would read it back.
func Write(o Object) string {
	var b strings.Builder
	writeObject(&b, o, false)
	return b.String()
}

// Display renders strings and characters without quoting.
func Display(o Object) string {
	var b strings.Builder
	writeObject(&b, o, true)
	return b.String()
}

func writeObject(b *strings.Builder, o Object, display bool) {
	switch v := o.(type) {
	case nil:
		b.WriteString("#<null>")
	case *String:
		if display {
			b.WriteString(v.Value)
			return
		}
		b.WriteByte('"')
		for _, r := range v.Value {
			switch r {
			case '"':
				b.WriteString(`\"`)
			case '\\':
				b.WriteString(`\\`)
			case '\n':
				b.WriteString(`\n`)
			case '\t':
				b.WriteString(`\t`)
			default:
				b.WriteRune(r)
			}
		}
		b.WriteByte('"')
	case *Char:
		if display {
			b.WriteRune(v.Value)
			return
		}
		b.WriteString(`#\`)
		if name, ok := charNames[v.Value]; ok {
			b.WriteString(name)
		} else {
			b.WriteRune(v.Value)
		}
	case *Pair:
		if sym, ok := v.Car.(*Symbol); ok && !sym.Fresh() {
			if rest, ok := v.Cdr.(*Pair); ok && rest.Cdr == Unit {
				if prefix, ok := abbreviations[sym.Name]; ok {
					b.WriteString(prefix)
					writeObject(b, rest.Car, display)
					return
				}
			}
		}
		b.WriteByte('(')
		var cur Object = v
		first := true
		for {
			p, ok := cur.(*Pair)
			if !ok {
				break
			}
			if !first {
				b.WriteByte(' ')
			}
			writeObject(b, p.Car, display)
			first = false
			cur = p.Cdr
		}
		if cur != Unit {
			b.WriteString(" . ")
			writeObject(b, cur, display)
		}
		b.WriteByte(')')
	default:
		b.WriteString(o.Inspect())
	}
}
