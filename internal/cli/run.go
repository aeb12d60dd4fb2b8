package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/factlog/internal/engine"
	"github.com/roach88/factlog/internal/ir"
	"github.com/roach88/factlog/internal/program"
	"github.com/roach88/factlog/internal/querysql"
)

// Query backends.
const (
	BackendMemory = "memory"
	BackendSQL    = "sql"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Backend   string
	MaxPasses int
	Timeout   time.Duration
}

// QueryOutput is one answered query.
type QueryOutput struct {
	Name    string           `json:"name"`
	Results []map[string]any `json:"results"`
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Program string        `json:"program"`
	Backend string        `json:"backend"`
	Epoch   int64         `json:"epoch"`
	Facts   int           `json:"facts"`
	Queries []QueryOutput `json:"queries"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Install a program, settle, and answer its queries",
		Long: `Install a program into a fresh store, wait for the rules to reach a
fixpoint, and print the answer to every declared query.

The sql backend mirrors the settled statements into an in-memory SQLite
database and answers the queries there; results must match the memory
backend.

Examples:
  factlog run ./people.yaml
  factlog run ./graph.cue --backend sql
  factlog run ./rules/ --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", BackendMemory, "query backend (memory|sql)")
	cmd.Flags().IntVar(&opts.MaxPasses, "max-passes", 0, "abandon recomputes after this many passes (0 = unlimited)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "maximum time to wait for the fixpoint")

	return cmd
}

func runProgram(opts *RunOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	if opts.Backend != BackendMemory && opts.Backend != BackendSQL {
		return f.Fail(ExitCommandError, ErrCodeInvalidFlags,
			fmt.Sprintf("invalid backend %q: must be memory or sql", opts.Backend), nil)
	}

	ctx, cancel := commandContext(cmd, opts.Timeout)
	defer cancel()

	prog, st, err := settleProgram(ctx, opts.RootOptions, path, opts.MaxPasses)
	if err != nil {
		return failLoad(f, err)
	}
	defer st.Close()
	f.VerboseLog("settled %s: %d statements", prog.Name, len(st.Statements()))

	var answers []program.Result
	switch opts.Backend {
	case BackendSQL:
		answers, err = querySQL(ctx, prog, st.Statements())
	default:
		answers, err = prog.RunQueries(ctx, st)
	}
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeExecution, "query failed", err)
	}

	result := RunResult{
		Program: prog.Name,
		Backend: opts.Backend,
		Epoch:   st.Stats().Epoch,
		Facts:   len(st.Statements()),
		Queries: make([]QueryOutput, len(answers)),
	}
	for i, a := range answers {
		result.Queries[i] = QueryOutput{Name: a.Name, Results: nativeBindings(a.Bindings)}
	}

	if f.JSON() {
		return f.Success(result)
	}
	w := cmd.OutOrStdout()
	if len(answers) == 0 {
		fmt.Fprintf(w, "%s: no queries declared (%d statements)\n", prog.Name, result.Facts)
		return nil
	}
	for _, a := range answers {
		fmt.Fprintf(w, "%s (%d)\n", a.Name, len(a.Bindings))
		for _, b := range a.Bindings {
			fmt.Fprintf(w, "  %s\n", b)
		}
	}
	return nil
}

// settleProgram loads a program, installs it into a new store and waits
// for the fixpoint. The caller closes the store.
func settleProgram(ctx context.Context, opts *RootOptions, path string, maxPasses int) (*program.Program, *engine.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, err
	}
	prog, err := program.Load(path)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range program.AnalyzeCycles(prog) {
		opts.logger().Debug("recursive rules", "path", w.Path)
	}

	st := engine.New(
		engine.WithLogger(opts.logger()),
		engine.WithMaxPasses(maxPasses),
	)
	prog.Install(st)
	if err := st.Settle(ctx); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("settle: %w", err)
	}
	return prog, st, nil
}

func querySQL(ctx context.Context, prog *program.Program, statements []ir.Fact) ([]program.Result, error) {
	m, err := querysql.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer m.Close()
	if err := m.Load(ctx, statements); err != nil {
		return nil, err
	}

	results := make([]program.Result, 0, len(prog.Queries))
	for _, q := range prog.Queries {
		bindings, err := m.Query(ctx, q.Find)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Name, err)
		}
		results = append(results, program.Result{Name: q.Name, Bindings: bindings})
	}
	return results, nil
}

// commandContext is cancelled on SIGINT/SIGTERM or after timeout.
func commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// failLoad maps program loading errors to exit codes: a missing path or
// unreadable file is a command error, an invalid program is a failure.
func failLoad(f *OutputFormatter, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, "program not found", err)
	}
	if program.IsCompileError(err) {
		return f.Fail(ExitFailure, ErrCodeCompile, "invalid program", err)
	}
	return f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load program", err)
}
