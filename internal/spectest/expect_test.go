package spectest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpectationStdoutExact(t *testing.T) {
	exp, err := ParseExpectation(";; expect: ok\n;; expect: stdout \"alpha\\n\"\n(display \"alpha\")\n")
	require.NoError(t, err)
	assert.Equal(t, ExpectOK, exp.Outcome)
	assert.Equal(t, StdoutExpectation{Mode: StdoutExact, Value: "alpha\n"}, exp.Stdout)
}

func TestParseExpectationErrorContains(t *testing.T) {
	exp, err := ParseExpectation("\n; EXPECT: error contains \"boom\"\n;;; expect: stdout contains \"part\\n\"\n")
	require.NoError(t, err)
	assert.Equal(t, ExpectErrorContains, exp.Outcome)
	assert.Equal(t, "boom", exp.Substring)
	assert.Equal(t, StdoutExpectation{Mode: StdoutContains, Value: "part\n"}, exp.Stdout)
}

func TestParseExpectationStopsAtCode(t *testing.T) {
	exp, err := ParseExpectation("(display 1)\n;; expect: error\n")
	require.NoError(t, err)
	assert.Equal(t, ExpectOK, exp.Outcome)
	assert.Equal(t, StdoutNone, exp.Stdout.Mode)
}

func TestParseExpectationErrors(t *testing.T) {
	cases := map[string]string{
		"duplicate outcome": ";; expect: ok\n;; expect: error\n",
		"duplicate stdout":  ";; expect: stdout \"a\"\n;; expect: stdout contains \"b\"\n",
		"unquoted":          ";; expect: stdout a\n",
		"unknown":           ";; expect: maybe\n",
		"missing substring": ";; expect: error contains\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseExpectation(src)
			assert.Error(t, err)
		})
	}
}

func TestMatchStdoutExactNormalize(t *testing.T) {
	err := MatchStdout("a\r\nb\r\n", StdoutExpectation{Mode: StdoutExact, Value: "a\nb\n"}, "")
	assert.NoError(t, err)
}

func TestMatchStdoutContains(t *testing.T) {
	assert.NoError(t, MatchStdout("hello\nworld\n", StdoutExpectation{Mode: StdoutContains, Value: "world\n"}, ""))
	assert.Error(t, MatchStdout("hello\n", StdoutExpectation{Mode: StdoutContains, Value: "world"}, ""))
}

func TestMatchStdoutFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden.txt"), []byte("golden\n42\n"), 0o644))

	exp := StdoutExpectation{Mode: StdoutFile, Value: "golden.txt"}
	assert.NoError(t, MatchStdout("golden\n42\n", exp, dir))
	assert.Error(t, MatchStdout("golden\n", exp, dir))
}

func TestCheckOutcomes(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name string
		exp  Expectation
		res  Result
		pass bool
	}{
		{"ok", Expectation{Outcome: ExpectOK}, Result{}, true},
		{"ok but failed", Expectation{Outcome: ExpectOK}, Result{Err: boom}, false},
		{"error", Expectation{Outcome: ExpectError}, Result{Err: boom}, true},
		{"error but passed", Expectation{Outcome: ExpectError}, Result{}, false},
		{"contains", Expectation{Outcome: ExpectErrorContains, Substring: "oo"}, Result{Err: boom}, true},
		{"contains mismatch", Expectation{Outcome: ExpectErrorContains, Substring: "zz"}, Result{Err: boom}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.exp.Check(tc.res, "")
			if tc.pass {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
