package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/docmirror/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the run state left by
// the steps before it.
type Step interface {
	// Do executes the step. It returns an error only when the run cannot
	// continue; per-page problems belong in the run summary.
	Do(ctx context.Context, run *model.Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// final steps run after steps, whatever the outcome.
	final []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to keep executing steps
// after one fails. The first error is still returned by Execute.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// AddFinalStep appends a step that runs after all regular steps, even if
// one of them failed or ctx was cancelled. Final steps get a context that
// is never cancelled.
//
// Design decision: Recording history is a final step so an interrupted
// crawl still leaves a row with its partial summary. Detaching the context
// with context.WithoutCancel lets that write finish after Ctrl-C.
func (p *Pipeline) AddFinalStep(step Step) {
	p.final = append(p.final, step)
}

// Execute runs all steps in sequence, then the final steps.
// Cancellation is checked before each regular step.
//
// It returns the first error encountered, joined with any final step
// errors, or nil.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) error {
	firstErr := p.executeSteps(ctx, run)

	finalCtx := context.WithoutCancel(ctx)
	var finalErrs []error
	for _, step := range p.final {
		if err := p.do(finalCtx, step, run); err != nil {
			finalErrs = append(finalErrs, err)
		}
	}

	return errors.Join(append([]error{firstErr}, finalErrs...)...)
}

func (p *Pipeline) executeSteps(ctx context.Context, run *model.Run) error {
	var firstErr error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
			if firstErr == nil {
				firstErr = err
			}
			return firstErr
		}

		if err := p.do(ctx, step, run); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if !p.continueOnError {
				return firstErr
			}
		}
	}
	return firstErr
}

func (p *Pipeline) do(ctx context.Context, step Step, run *model.Run) error {
	p.logger.Debug("executing step", "step", step.Name(), "base_url", baseURL(run))

	if err := step.Do(ctx, run); err != nil {
		p.logger.Error("step failed", "step", step.Name(), "base_url", baseURL(run), "error", err)
		return err
	}

	p.logger.Debug("step completed", "step", step.Name(), "base_url", baseURL(run))
	return nil
}

func baseURL(run *model.Run) string {
	if run == nil || run.Config == nil {
		return ""
	}
	return run.Config.BaseURL
}

// StepCount returns the number of regular and final steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps) + len(p.final)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, p.StepCount())
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.final {
		names = append(names, step.Name())
	}
	return names
}
