package pipeline

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/banshee-data/traffic.count/internal/monitoring"
)

// ErrStageFailure is wrapped by every error a Run returns.
var ErrStageFailure = errors.New("stage failure")

// Stage is one unit of per-frame processing. Apply receives the current
// Context and returns the Context the next Stage should see: usually the
// same pointer after mutation, but a replacement is allowed.
type Stage interface {
	Apply(c *Context) (*Context, error)
}

// Named is implemented by stages that want a readable name in logs and errors.
type Named interface {
	Name() string
}

// StageFunc adapts a function to the Stage interface.
type StageFunc func(c *Context) (*Context, error)

// Apply implements Stage.
func (f StageFunc) Apply(c *Context) (*Context, error) { return f(c) }

// StageName returns the stage's Name, falling back to its Go type.
func StageName(s Stage) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return reflect.TypeOf(s).String()
}

// StageError reports which stage stopped a run.
type StageError struct {
	Index int
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%v: stage %d (%s): %v", ErrStageFailure, e.Index, e.Stage, e.Err)
}

// Unwrap exposes both ErrStageFailure and the stage's own error.
func (e *StageError) Unwrap() []error { return []error{ErrStageFailure, e.Err} }

// Runner executes a fixed list of stages over a persistent Context.
type Runner struct {
	stages  []Stage
	context *Context
}

// NewRunner copies stages so later changes to the caller's slice do not
// affect execution order.
func NewRunner(stages ...Stage) *Runner {
	r := &Runner{
		stages:  append([]Stage(nil), stages...),
		context: NewContext(),
	}
	names := make([]string, len(r.stages))
	for i, s := range r.stages {
		names[i] = StageName(s)
	}
	monitoring.Logf("[Pipeline] %d stages: %v", len(names), names)
	return r
}

// SetContext merges update into the persistent Context. Call it before each
// Run with at least the frame and its frame number.
func (r *Runner) SetContext(update map[string]any) {
	r.context.Merge(update)
}

// Context returns the persistent Context.
func (r *Runner) Context() *Context { return r.context }

// Stages returns a copy of the registered stages.
func (r *Runner) Stages() []Stage { return append([]Stage(nil), r.stages...) }

// Run invokes every stage once, in order, feeding each the Context returned
// by the previous one. The final result becomes the persistent Context. A
// stage error, or a stage returning nil, stops the run; the persistent
// Context then holds the last non-nil result.
func (r *Runner) Run() error {
	c := r.context
	for i, s := range r.stages {
		next, err := s.Apply(c)
		if err == nil && next == nil {
			err = errors.New("returned nil context")
		}
		if err != nil {
			r.context = c
			return &StageError{Index: i, Stage: StageName(s), Err: err}
		}
		c = next
	}
	r.context = c
	return nil
}
