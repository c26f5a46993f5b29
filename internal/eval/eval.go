// Package eval evaluates the "value operator literal" expressions found on
// condition and effect lines against a property's effective value.
package eval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// ErrOperator is returned for operators that do not apply to the line kind.
var ErrOperator = errors.New("eval: unsupported operator")

var conditionExprs = map[string]string{
	">=": "value >= literal",
	"<=": "value <= literal",
	"==": "value == literal",
	"!=": "value != literal",
	">":  "value > literal",
	"<":  "value < literal",
}

var effectExprs = map[string]string{
	"+": "value + literal",
	"-": "value - literal",
	"*": "value * literal",
	"=": "literal",
}

// Evaluator compiles expressions once per operator and caches the programs.
type Evaluator struct {
	env *cel.Env

	mu       sync.Mutex
	programs map[string]cel.Program
}

// New creates an Evaluator.
func New() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("value", cel.DynType),
		cel.Variable("literal", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("eval: create env: %w", err)
	}
	return &Evaluator{env: env, programs: make(map[string]cel.Program)}, nil
}

// Condition evaluates "value op literal" to a boolean.
func (e *Evaluator) Condition(value any, op, literal string) (bool, error) {
	expr, ok := conditionExprs[op]
	if !ok {
		return false, fmt.Errorf("%w %q in condition", ErrOperator, op)
	}
	out, err := e.run(expr, value, literal)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("eval: condition produced %T", out)
	}
	return b, nil
}

// Effect evaluates "value op literal" to the property's new value.
func (e *Evaluator) Effect(value any, op, literal string) (any, error) {
	expr, ok := effectExprs[op]
	if !ok {
		return nil, fmt.Errorf("%w %q in effect", ErrOperator, op)
	}
	return e.run(expr, value, literal)
}

func (e *Evaluator) run(expr string, value any, literal string) (any, error) {
	prg, err := e.program(expr)
	if err != nil {
		return nil, err
	}
	lit := ParseLiteral(literal)
	v := normalize(value)
	if expr != "literal" && !sameKind(v, lit) {
		return nil, fmt.Errorf("eval: cannot combine %T and %T", v, lit)
	}
	out, _, err := prg.Eval(map[string]any{"value": v, "literal": lit})
	if err != nil {
		return nil, fmt.Errorf("eval: %s: %w", expr, err)
	}
	return out.Value(), nil
}

func (e *Evaluator) program(expr string) (cel.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, ok := e.programs[expr]; ok {
		return prg, nil
	}
	ast, iss := e.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("eval: compile %q: %w", expr, iss.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("eval: program %q: %w", expr, err)
	}
	e.programs[expr] = prg
	return prg, nil
}

// ParseLiteral turns literal source text into a bool, float64 or string.
func ParseLiteral(s string) any {
	s = strings.TrimSpace(s)
	if unq, err := strconv.Unquote(s); err == nil && strings.HasPrefix(s, `"`) {
		return unq
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// normalize widens numbers to float64 so CEL sees one numeric type.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}

func sameKind(a, b any) bool {
	switch a.(type) {
	case float64:
		_, ok := b.(float64)
		return ok
	case bool:
		_, ok := b.(bool)
		return ok
	case string:
		_, ok := b.(string)
		return ok
	}
	return false
}

// Format renders a value the way it would be written in source.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "none"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	}
	return fmt.Sprint(v)
}
