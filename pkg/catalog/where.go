package catalog

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// whereCostLimit bounds the work a single where expression may do per dataset.
const whereCostLimit = 10000

// WherePredicate is a compiled where expression.
//
// Expressions are CEL and see three variables:
//   - data_id: map of dimension name to value
//   - run: name of the run that owns the dataset
//   - dataset_type: dataset type name
//
// Example: `run == "HSC/raw" && data_id.visit > 100`
//
// A dataset for which the expression cannot be evaluated (for example it
// lacks a dimension the expression reads) does not match. The expression
// must evaluate to a bool.
type WherePredicate struct {
	expr    string
	program cel.Program
}

// CompileWhere compiles a where expression. An empty expression returns a
// nil predicate, which matches every dataset.
//
// Returns:
//   - error: StoreError with ErrInvalidArgument when the expression does
//     not parse, does not type-check, or is not boolean
func CompileWhere(expr string) (*WherePredicate, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("data_id", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("run", cel.StringType),
		cel.Variable("dataset_type", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create where environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, &StoreError{
			Code:    ErrInvalidArgument,
			Message: fmt.Sprintf("invalid where expression: %v", issues.Err()),
			Name:    expr,
		}
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, &StoreError{
			Code:    ErrInvalidArgument,
			Message: fmt.Sprintf("where expression must be boolean, got %s", ast.OutputType()),
			Name:    expr,
		}
	}

	program, err := env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(whereCostLimit),
	)
	if err != nil {
		return nil, &StoreError{
			Code:    ErrInvalidArgument,
			Message: fmt.Sprintf("invalid where expression: %v", err),
			Name:    expr,
		}
	}

	return &WherePredicate{expr: expr, program: program}, nil
}

// String returns the source expression.
func (p *WherePredicate) String() string {
	if p == nil {
		return ""
	}
	return p.expr
}

// Match evaluates the predicate against a dataset. A nil predicate matches.
func (p *WherePredicate) Match(ref DatasetRef) bool {
	if p == nil {
		return true
	}

	dataID := map[string]any(ref.DataID)
	if dataID == nil {
		dataID = map[string]any{}
	}

	out, _, err := p.program.Eval(map[string]any{
		"data_id":      dataID,
		"run":          ref.Run,
		"dataset_type": ref.DatasetType,
	})
	if err != nil {
		return false
	}
	val, ok := out.Value().(bool)
	return ok && val
}
