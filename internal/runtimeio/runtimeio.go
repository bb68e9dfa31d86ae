package runtimeio

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var ErrInputUnavailable = errors.New("input is not available")

func IsInteractive() bool {
	return IsTerminal(os.Stdin)
}

func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Input is a line source shared by the read and read-line procedures.
type Input struct {
	r *bufio.Reader
}

func NewInput(r io.Reader) *Input {
	if r == nil {
		return &Input{}
	}
	return &Input{r: bufio.NewReader(r)}
}

// ReadLine returns the next line without its terminator. It returns io.EOF
// once the input is exhausted.
func (in *Input) ReadLine() (string, error) {
	if in == nil || in.r == nil {
		return "", ErrInputUnavailable
	}
	line, err := in.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
