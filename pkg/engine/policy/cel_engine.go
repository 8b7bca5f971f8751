package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DrSkyle/assetpulse/pkg/profile"
	"github.com/google/cel-go/cel"
)

// CELEngine compiles rules once and evaluates them against field
// statistics.
type CELEngine struct {
	env      *cel.Env
	rules    []Rule
	programs map[string]cel.Program
}

// NewCELEngine declares the per-field variables rules may reference.
func NewCELEngine() (*CELEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("mean", cel.DoubleType),
		cel.Variable("std", cel.DoubleType),
		cel.Variable("min", cel.DoubleType),
		cel.Variable("max", cel.DoubleType),
		cel.Variable("median", cel.DoubleType),
		cel.Variable("unique_count", cel.IntType),
		cel.Variable("null_count", cel.IntType),
		cel.Variable("records", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}
	return &CELEngine{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Compile compiles rules into executable programs. Conditions must be
// boolean.
func (e *CELEngine) Compile(rules []Rule) error {
	for _, r := range rules {
		ast, issues := e.env.Compile(r.Condition)
		if issues != nil && issues.Err() != nil {
			return fmt.Errorf("rule %s compilation error: %w", r.ID, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return fmt.Errorf("rule %s: condition must be boolean, got %s", r.ID, ast.OutputType())
		}
		prg, err := e.env.Program(ast)
		if err != nil {
			return fmt.Errorf("rule %s program creation error: %w", r.ID, err)
		}
		e.programs[r.ID] = prg
		e.rules = append(e.rules, r)
	}
	return nil
}

// FieldVars builds the activation for one numeric field.
func FieldVars(f profile.FieldProfile, records int) map[string]any {
	vars := map[string]any{
		"name":         f.Name,
		"mean":         deref(f.Mean),
		"std":          deref(f.Std),
		"min":          deref(f.Min),
		"max":          deref(f.Max),
		"median":       deref(f.Median),
		"unique_count": int64(0),
		"null_count":   int64(f.NullCount),
		"records":      int64(records),
	}
	if f.UniqueCount != nil {
		vars["unique_count"] = int64(*f.UniqueCount)
	}
	return vars
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Evaluate returns the rules, in compile order, whose condition holds for
// vars. Evaluation errors are logged and treated as no match.
func (e *CELEngine) Evaluate(ctx context.Context, vars map[string]any) []Rule {
	var matches []Rule
	for _, r := range e.rules {
		if ctx.Err() != nil {
			return matches
		}
		out, _, err := e.programs[r.ID].Eval(vars)
		if err != nil {
			slog.Error("Rule evaluation failed", "rule_id", r.ID, "error", err)
			continue
		}
		if match, ok := out.Value().(bool); ok && match {
			matches = append(matches, r)
		}
	}
	return matches
}
