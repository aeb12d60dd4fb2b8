package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/factlog/internal/engine"
	"github.com/roach88/factlog/internal/ir"
	"github.com/roach88/factlog/internal/program"
)

// Harness drives one scenario against one store.
type Harness struct {
	store  *engine.Store
	prog   *program.Program
	rules  map[string]func()
	logger *slog.Logger
}

// Option configures Run.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger routes harness and store logs to logger. Logs are discarded
// by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh store:
// 1. Load the program and install its rules and facts
// 2. Settle, then execute each step and settle again
// 3. Capture the final statements
// 4. Evaluate assertions
//
// A returned error means the scenario could not be executed; failed
// assertions are reported through Result.Errors.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	prog, err := program.Load(scenario.Program)
	if err != nil {
		return nil, fmt.Errorf("failed to load program: %w", err)
	}

	st := engine.New(
		engine.WithLogger(cfg.logger),
		engine.WithMaxPasses(scenario.MaxPasses),
	)
	defer st.Close()

	h := &Harness{
		store:  st,
		prog:   prog,
		rules:  make(map[string]func(), len(prog.Rules)),
		logger: cfg.logger,
	}

	result := NewResult()
	h.install()
	if err := h.settle(ctx, "install", result); err != nil {
		return nil, err
	}

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if err := h.settle(ctx, step.Action(), result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	result.Statements = st.Statements()

	actx := &AssertionContext{
		Store:   st,
		Program: prog,
		Ctx:     ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) install() {
	for _, r := range h.prog.Rules {
		h.rules[r.Name] = h.store.When(r.When, r.Callback(), engine.Named(r.Name))
	}
	h.store.Assert(h.prog.Facts...)
}

func (h *Harness) executeStep(ctx context.Context, step Step) error {
	switch step.Action() {
	case StepAssert:
		facts, err := h.parseFacts(step.Assert)
		if err != nil {
			return err
		}
		h.store.Assert(facts...)
	case StepRetract:
		facts, err := h.parseFacts(step.Retract)
		if err != nil {
			return err
		}
		if err := h.store.Retract(ctx, facts...); err != nil {
			return fmt.Errorf("retract: %w", err)
		}
	case StepUnregister:
		unregister, ok := h.rules[step.Unregister]
		if !ok {
			return fmt.Errorf("unregister: no rule named %q", step.Unregister)
		}
		unregister()
	default:
		return fmt.Errorf("empty step")
	}
	return nil
}

func (h *Harness) parseFacts(raws [][]any) ([]ir.Fact, error) {
	facts := make([]ir.Fact, 0, len(raws))
	for i, raw := range raws {
		f, err := h.prog.ParseFact(raw)
		if err != nil {
			return nil, fmt.Errorf("fact %d: %w", i, err)
		}
		facts = append(facts, f)
	}
	return facts, nil
}

func (h *Harness) settle(ctx context.Context, action string, result *Result) error {
	if err := h.store.Settle(ctx); err != nil {
		return fmt.Errorf("settle after %s: %w", action, err)
	}
	stats := h.store.Stats()
	result.Trace = append(result.Trace, StepTrace{
		Action:  action,
		Epoch:   stats.Epoch,
		Base:    stats.Base,
		Derived: stats.Derived,
	})
	h.logger.Debug("step settled",
		"action", action,
		"epoch", stats.Epoch,
		"base", stats.Base,
		"derived", stats.Derived,
	)
	return nil
}
