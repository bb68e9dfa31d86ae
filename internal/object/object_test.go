package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitIsTrueAndDistinctFromFalse(t *testing.T) {
	assert.True(t, IsTrue(Unit))
	assert.False(t, IsTrue(False))
	assert.True(t, IsTrue(True))
	assert.True(t, IsTrue(NewInt(0)))
	assert.False(t, Eq(Unit, False))
}

func TestListHelpers(t *testing.T) {
	l := List(NewInt(1), NewInt(2), NewInt(3))
	items, ok := ToSlice(l)
	require.True(t, ok)
	require.Len(t, items, 3)
	assert.Equal(t, 3, Length(l))
	assert.True(t, IsList(l))

	tail, ok := Tail(l, 2)
	require.True(t, ok)
	assert.Equal(t, "(3)", Write(tail))

	_, ok = Tail(l, 4)
	assert.False(t, ok)

	dotted := ListStar(NewInt(1), NewInt(2))
	assert.False(t, IsList(dotted))
	assert.Equal(t, "(1 . 2)", Write(dotted))

	joined, ok := Append(List(NewInt(1)), List(NewInt(2)), NewInt(3))
	require.True(t, ok)
	assert.Equal(t, "(1 2 . 3)", Write(joined))

	rev, ok := Reverse(l)
	require.True(t, ok)
	assert.Equal(t, "(3 2 1)", Write(rev))
}

func TestEquivalence(t *testing.T) {
	syms := NewSymbolTable()
	a := List(syms.Intern("a"), &String{Value: "x"}, NewInt(7))
	b := List(syms.Intern("a"), &String{Value: "x"}, NewInt(7))

	assert.False(t, Eq(a, b))
	assert.True(t, Equal(a, b))
	assert.True(t, Eqv(NewInt(7), NewInt(7)))
	assert.False(t, Eq(&String{Value: "x"}, &String{Value: "x"}))
	assert.True(t, Eqv(&Char{Value: 'z'}, &Char{Value: 'z'}))
	assert.False(t, Equal(List(NewInt(1)), List(NewInt(1), NewInt(2))))
}

func TestSymbolTableFresh(t *testing.T) {
	syms := NewSymbolTable()
	tmp := syms.Intern("tmp")
	require.Same(t, tmp, syms.Intern("tmp"))

	f1 := syms.Fresh("tmp")
	f2 := syms.Fresh("tmp")
	assert.NotSame(t, f1, f2)
	assert.NotSame(t, tmp, f1)
	assert.True(t, f1.Fresh())
	assert.False(t, tmp.Fresh())
	assert.False(t, Eq(f1, tmp))

	got, ok := syms.Lookup("tmp")
	require.True(t, ok)
	assert.Same(t, tmp, got)
}

func TestWriteAndDisplay(t *testing.T) {
	syms := NewSymbolTable()
	quoted := List(syms.Intern("quote"), syms.Intern("x"))
	assert.Equal(t, "'x", Write(quoted))
	assert.Equal(t, `"a\"b"`, Write(&String{Value: `a"b`}))
	assert.Equal(t, `a"b`, Display(&String{Value: `a"b`}))
	assert.Equal(t, `#\space`, Write(&Char{Value: ' '}))
	assert.Equal(t, "#t", True.Inspect())
	assert.Equal(t, "()", Unit.Inspect())
}

func TestParseNumber(t *testing.T) {
	n, ok := ParseNumber("123456789012345678901234567890")
	require.True(t, ok)
	assert.Equal(t, "123456789012345678901234567890", n.Inspect())

	n, ok = ParseNumber("42")
	require.True(t, ok)
	i, ok := n.Int()
	require.True(t, ok)
	assert.Equal(t, 42, i)

	_, ok = ParseNumber("abc")
	assert.False(t, ok)
}

func TestEnvironmentCells(t *testing.T) {
	syms := NewSymbolTable()
	env := NewEnvironment()
	x := syms.Intern("x")

	_, ok := env.Get(x)
	assert.False(t, ok)
	assert.False(t, env.Assign(x, NewInt(1)))

	cell := env.Define(x, NewInt(1))
	require.True(t, env.Assign(x, NewInt(2)))
	assert.Equal(t, "2", cell.Get().Inspect())

	mark := env.Mark()
	y := syms.Intern("y")
	env.Define(y, NewInt(3))
	env.Define(x, NewInt(4))
	again := env.Define(x, NewInt(5))
	assert.Same(t, cell, again)

	since := env.DefinedSince(mark)
	require.Len(t, since, 2)
	assert.Same(t, x, since[0].Name)
	assert.Same(t, y, since[1].Name)
	assert.Equal(t, "5", since[0].Value.Inspect())
	assert.Len(t, env.Bindings(), 2)
}

func TestDumpDepth(t *testing.T) {
	var d *Dump
	assert.Equal(t, 0, d.Len())
	d = d.Push(Unit, Unit, Unit)
	d = d.Push(Unit, Unit, Unit)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, 1, d.Next.Len())
}
