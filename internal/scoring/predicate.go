package scoring

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Predicate is a compiled boolean CEL expression over double variables.
type Predicate struct {
	expr    string
	program cel.Program
}

// CompilePredicate compiles expr with every name in vars declared as a double.
// The expression must evaluate to a bool.
func CompilePredicate(expr string, vars ...string) (*Predicate, error) {
	opts := []cel.EnvOption{cel.CrossTypeNumericComparisons(true)}
	for _, v := range vars {
		opts = append(opts, cel.Variable(v, cel.DoubleType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation error: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("expression must return bool, got %v", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}

	return &Predicate{expr: expr, program: program}, nil
}

// mustPredicate is CompilePredicate for package-level rule tables.
func mustPredicate(expr string, vars ...string) *Predicate {
	p, err := CompilePredicate(expr, vars...)
	if err != nil {
		panic(fmt.Sprintf("scoring: predicate %q: %v", expr, err))
	}
	return p
}

// Expr returns the source expression.
func (p *Predicate) Expr() string { return p.expr }

// Eval evaluates the predicate with the given variable bindings.
func (p *Predicate) Eval(vars map[string]any) (bool, error) {
	out, _, err := p.program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", p.expr, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("evaluate %q: non-bool result %T", p.expr, out.Value())
	}
	return matched, nil
}
