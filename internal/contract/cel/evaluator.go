// Package cel provides CEL expression evaluation for ledger history
// filtering.
package cel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"

	"github.com/RpGmAx/ronin-mission-5/internal/contract/physical"
	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

var (
	ErrInvalidExpression = errors.New("invalid CEL expression")
	ErrEvaluationFailed  = errors.New("CEL evaluation failed")
)

// Evaluator compiles and evaluates CEL expressions against ledger
// entries. Update entries expose {sender, old_message, new_message,
// timestamp}; delete entries expose {sender, message, timestamp}.
// Sender is the hex-encoded key.
type Evaluator struct {
	env   *cel.Env
	cache sync.Map // map[string]cel.Program
}

// NewEvaluator creates a new CEL evaluator with the ledger entry schema.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Declarations(
			decls.NewVar("sender", decls.String),
			decls.NewVar("message", decls.String),
			decls.NewVar("old_message", decls.String),
			decls.NewVar("new_message", decls.String),
			decls.NewVar("timestamp", decls.Int),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL env: %w", err)
	}

	return &Evaluator{env: env}, nil
}

// Compile parses and compiles a CEL expression. Compiled programs are cached.
func (e *Evaluator) Compile(_ context.Context, expression string) (cel.Program, error) {
	if cached, ok := e.cache.Load(expression); ok {
		if prg, ok := cached.(cel.Program); ok {
			return prg, nil
		}
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	e.cache.Store(expression, prg)
	return prg, nil
}

// ValidateExpression checks if an expression is syntactically valid.
func (e *Evaluator) ValidateExpression(ctx context.Context, expression string) error {
	_, err := e.Compile(ctx, expression)
	return err
}

// MatchUpdate evaluates an expression against an update-ledger entry.
func (e *Evaluator) MatchUpdate(ctx context.Context, expression string, entry *physical.UpdateEntry) (bool, error) {
	prg, err := e.Compile(ctx, expression)
	if err != nil {
		return false, err
	}
	return e.eval(prg, map[string]any{
		"sender":      identity.Hex(entry.Sender),
		"message":     "",
		"old_message": entry.OldMessage,
		"new_message": entry.NewMessage,
		"timestamp":   entry.Timestamp,
	})
}

// MatchDelete evaluates an expression against a delete-ledger entry.
func (e *Evaluator) MatchDelete(ctx context.Context, expression string, entry *physical.DeleteEntry) (bool, error) {
	prg, err := e.Compile(ctx, expression)
	if err != nil {
		return false, err
	}
	return e.eval(prg, map[string]any{
		"sender":      identity.Hex(entry.Sender),
		"message":     entry.Message,
		"old_message": "",
		"new_message": "",
		"timestamp":   entry.Timestamp,
	})
}

func (e *Evaluator) eval(prg cel.Program, activation map[string]any) (bool, error) {
	out, _, err := prg.Eval(activation)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrEvaluationFailed, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: expression must return bool, got %T", ErrEvaluationFailed, out.Value())
	}
	return result, nil
}
