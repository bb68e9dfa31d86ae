package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"secd/internal/compiler"
	"secd/internal/diag"
	"secd/internal/evaluator"
	"secd/internal/object"
	"secd/internal/parser"
	"secd/internal/vm"
)

const (
	prompt1 = "secd> "
	prompt2 = "....> "
	source  = "<repl>"
)

// lineSource yields one line per call and io.EOF when input ends.
type lineSource interface {
	Prompt(prompt string) (string, error)
	Remember(entry string)
	Close() error
}

type scannerSource struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (s *scannerSource) Prompt(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

func (s *scannerSource) Remember(string) {}
func (s *scannerSource) Close() error    { return nil }

type linerSource struct {
	state   *liner.State
	history string
}

func newLinerSource() *linerSource {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	src := &linerSource{state: state}
	if home, err := os.UserHomeDir(); err == nil {
		src.history = filepath.Join(home, ".secd_history")
		if f, err := os.Open(src.history); err == nil {
			state.ReadHistory(f)
			f.Close()
		}
	}
	return src
}

func (s *linerSource) Prompt(prompt string) (string, error) {
	line, err := s.state.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", nil
	}
	return line, err
}

func (s *linerSource) Remember(entry string) {
	s.state.AppendHistory(entry)
}

func (s *linerSource) Close() error {
	if s.history != "" {
		if f, err := os.Create(s.history); err == nil {
			s.state.WriteHistory(f)
			f.Close()
		}
	}
	return s.state.Close()
}

// Start runs a plain read-eval-print loop over in. It returns the process
// exit status requested by (exit), or 0 at end of input.
func Start(in io.Reader, out io.Writer, ev *evaluator.Evaluator) int {
	return loop(&scannerSource{scanner: bufio.NewScanner(in), out: out}, out, ev)
}

// StartInteractive is Start with line editing and history on the terminal.
func StartInteractive(out io.Writer, ev *evaluator.Evaluator) int {
	src := newLinerSource()
	defer src.Close()
	return loop(src, out, ev)
}

func loop(src lineSource, out io.Writer, ev *evaluator.Evaluator) int {
	fmt.Fprint(out, "secd REPL (:quit or Ctrl+D to exit)\n")

	var buf strings.Builder
	for {
		prompt := prompt1
		if buf.Len() > 0 {
			prompt = prompt2
		}
		line, err := src.Prompt(prompt)
		if err != nil {
			fmt.Fprint(out, "\n")
			return 0
		}

		trim := strings.TrimSpace(line)
		if buf.Len() == 0 && strings.HasPrefix(trim, ":") {
			src.Remember(trim)
			if quit := command(out, ev, trim); quit {
				return 0
			}
			continue
		}

		buf.WriteString(line)
		buf.WriteString("\n")

		// Keep reading while the buffer holds an unfinished datum.
		if _, err := parser.ReadString(buf.String(), ev.Symbols()); diag.IsIncomplete(err) {
			continue
		}

		text := buf.String()
		buf.Reset()
		if strings.TrimSpace(text) == "" {
			continue
		}
		src.Remember(strings.TrimRight(text, "\n"))

		if code, exit := evalInput(out, ev, text); exit {
			return code
		}
	}
}

// evalInput evaluates each datum of text and prints every value that is
// not unspecified.
func evalInput(out io.Writer, ev *evaluator.Evaluator, text string) (int, bool) {
	ev.ResetLimits()
	p := ev.Parser(text)
	for {
		d, err := p.Next()
		if err == io.EOF {
			return 0, false
		}
		if err != nil {
			report(out, err)
			return 0, false
		}
		v, err := ev.Eval(d.Value)
		if err != nil {
			var exit *vm.ExitError
			if errors.As(err, &exit) {
				return exit.Code, true
			}
			report(out, diag.At(err, d.Line, d.Col))
			return 0, false
		}
		if v != object.Unspecified {
			fmt.Fprintln(out, object.Write(v))
		}
	}
}

func report(out io.Writer, err error) {
	fmt.Fprintln(out, diag.FromError(err).Format(source))
}

func command(out io.Writer, ev *evaluator.Evaluator, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	switch name {
	case ":quit", ":q":
		return true
	case ":dis":
		data, err := parser.ReadString(arg, ev.Symbols())
		if err != nil {
			report(out, err)
			return false
		}
		for _, datum := range data {
			program, err := ev.Compile(datum)
			if err != nil {
				report(out, err)
				return false
			}
			fmt.Fprint(out, compiler.Disassemble(program))
		}
	case ":stats":
		s := ev.Machine().Stats()
		fmt.Fprintf(out, "steps=%d max-dump=%d expansions=%d renamed=%d\n", s.Steps, s.MaxDump, s.Expansions, s.Renamed)
	default:
		fmt.Fprintf(out, "unknown command %s (try :quit, :dis <expr>, :stats)\n", name)
	}
	return false
}
