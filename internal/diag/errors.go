package diag

import (
	"errors"
	"strings"

	"github.com/joomcode/errorx"

	"secd/internal/limits"
)

var (
	Namespace = errorx.NewNamespace("secd").ApplyModifiers(errorx.TypeModifierOmitStackTrace)

	Read       = Namespace.NewType("read")
	Incomplete = Read.NewSubtype("incomplete")
	Syntax     = Namespace.NewType("syntax")
	Evaluation = Namespace.NewType("evaluation")
	Import     = Namespace.NewType("import")
	Limit      = Namespace.NewType("limit")
	Memory     = Limit.NewSubtype("memory")
	Steps      = Limit.NewSubtype("steps")
)

var (
	// PropertyForm holds the offending datum.
	PropertyForm = errorx.RegisterProperty("form")
	PropertyLine = errorx.RegisterProperty("line")
	PropertyCol  = errorx.RegisterProperty("col")
)

const (
	CodeRead       = "E0001"
	CodeIncomplete = "E0002"
	CodeSyntax     = "E1001"
	CodeEvaluation = "E2001"
	CodeImport     = "E3001"
	CodeMemory     = "E8001"
	CodeSteps      = "E8002"
	CodeInternal   = "E9999"
)

// At attaches a source position to err when it is an errorx error that
// does not carry one yet.
func At(err error, line, col int) error {
	e := errorx.Cast(err)
	if e == nil || line <= 0 {
		return err
	}
	if _, ok := e.Property(PropertyLine); ok {
		return err
	}
	return e.WithProperty(PropertyLine, line).WithProperty(PropertyCol, col)
}

func IsIncomplete(err error) bool {
	return errorx.IsOfType(err, Incomplete)
}

// Message is the error text without type prefixes. Wrapped and decorated
// errors contribute every message down the cause chain, outermost first.
func Message(err error) string {
	var parts []string
	for cur := err; cur != nil; {
		e := errorx.Cast(cur)
		if e == nil {
			parts = append(parts, cur.Error())
			break
		}
		if msg := e.Message(); msg != "" {
			parts = append(parts, msg)
		}
		cur = e.Cause()
	}
	if len(parts) == 0 {
		return err.Error()
	}
	return strings.Join(parts, ": ")
}

func Code(err error) string {
	switch {
	case errorx.IsOfType(err, Incomplete):
		return CodeIncomplete
	case errorx.IsOfType(err, Read):
		return CodeRead
	case errorx.IsOfType(err, Syntax):
		return CodeSyntax
	case errorx.IsOfType(err, Evaluation):
		return CodeEvaluation
	case errorx.IsOfType(err, Import):
		return CodeImport
	case errorx.IsOfType(err, Memory):
		return CodeMemory
	case errorx.IsOfType(err, Steps):
		return CodeSteps
	}
	var mem limits.MaxMemoryError
	if errors.As(err, &mem) {
		return CodeMemory
	}
	var steps limits.MaxStepsError
	if errors.As(err, &steps) {
		return CodeSteps
	}
	return CodeInternal
}

// FromLimit converts a budget error into the matching limit error type.
func FromLimit(err error) error {
	var mem limits.MaxMemoryError
	if errors.As(err, &mem) {
		return Memory.New("%s", mem.Error())
	}
	var steps limits.MaxStepsError
	if errors.As(err, &steps) {
		return Steps.New("%s", steps.Error())
	}
	return err
}

// FromError converts any error into a diagnostic positioned at its line
// and column properties, or at 1:1 when it has none.
func FromError(err error) Diagnostic {
	d := Diagnostic{
		Code:     Code(err),
		Message:  Message(err),
		Severity: SeverityError,
		Range:    Range{Line: 1, Col: 1, Length: 1},
	}
	if line, ok := errorx.ExtractProperty(err, PropertyLine); ok {
		if n, ok := line.(int); ok && n > 0 {
			d.Range.Line = n
		}
	}
	if col, ok := errorx.ExtractProperty(err, PropertyCol); ok {
		if n, ok := col.(int); ok && n > 0 {
			d.Range.Col = n
		}
	}
	return d
}
