package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secd/internal/evaluator"
)

func session(t *testing.T, input string) (string, int) {
	t.Helper()
	var out bytes.Buffer
	ev, err := evaluator.New(evaluator.WithOutput(&out), evaluator.WithInput(strings.NewReader("")))
	require.NoError(t, err)
	code := Start(strings.NewReader(input), &out, ev)
	return out.String(), code
}

func TestReplEvaluatesForms(t *testing.T) {
	out, code := session(t, "(define (sq x) (* x x))\n(sq 7)\n(display \"hi\")\n")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "sq\n")
	assert.Contains(t, out, "49\n")
	assert.Contains(t, out, "hi")
}

func TestReplContinuesIncompleteInput(t *testing.T) {
	out, _ := session(t, "(+ 1\n2\n3)\n")
	assert.Contains(t, out, prompt2)
	assert.Contains(t, out, "6\n")
}

func TestReplReportsErrorsAndKeepsGoing(t *testing.T) {
	out, _ := session(t, "(car 1)\n(+ 1 1)\n")
	assert.Contains(t, out, "<repl>:1:1: error E2001")
	assert.Contains(t, out, "2\n")
}

func TestReplCommands(t *testing.T) {
	out, code := session(t, ":dis (f 1)\n:stats\n:bogus\n:quit\n(display \"never\")\n")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "LOAD_GLOBAL f")
	assert.Contains(t, out, "steps=")
	assert.Contains(t, out, "unknown command :bogus")
	assert.NotContains(t, out, "never")
}

func TestReplExit(t *testing.T) {
	_, code := session(t, "(exit 4)\n")
	assert.Equal(t, 4, code)
}
