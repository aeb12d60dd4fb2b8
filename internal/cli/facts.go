package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/factlog/internal/ir"
)

// FactsOptions holds flags for the facts command.
type FactsOptions struct {
	*RootOptions
	Partition string
	MaxPasses int
	Timeout   time.Duration
}

// FactsResult is the JSON payload of the facts command.
type FactsResult struct {
	Program   string  `json:"program"`
	Partition string  `json:"partition"`
	Facts     [][]any `json:"facts"`
}

// NewFactsCommand creates the facts command.
func NewFactsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FactsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "facts <program>",
		Short: "Print the settled statements of a program",
		Long: `Install a program, wait for the fixpoint and print its facts: asserted
(base) facts first, then derived facts, each in insertion order.

Examples:
  factlog facts ./people.yaml
  factlog facts ./people.yaml --partition derived`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFacts(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Partition, "partition", "all", "which facts to print (all|base|derived)")
	cmd.Flags().IntVar(&opts.MaxPasses, "max-passes", 0, "abandon recomputes after this many passes (0 = unlimited)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "maximum time to wait for the fixpoint")

	return cmd
}

func runFacts(opts *FactsOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	switch opts.Partition {
	case "all", "base", "derived":
	default:
		return f.Fail(ExitCommandError, ErrCodeInvalidFlags,
			fmt.Sprintf("invalid partition %q: must be all, base or derived", opts.Partition), nil)
	}

	ctx, cancel := commandContext(cmd, opts.Timeout)
	defer cancel()

	prog, st, err := settleProgram(ctx, opts.RootOptions, path, opts.MaxPasses)
	if err != nil {
		return failLoad(f, err)
	}
	defer st.Close()

	var facts []ir.Fact
	switch opts.Partition {
	case "base":
		facts = st.Base()
	case "derived":
		facts = st.Derived()
	default:
		facts = st.Statements()
	}

	if f.JSON() {
		return f.Success(FactsResult{
			Program:   prog.Name,
			Partition: opts.Partition,
			Facts:     nativeFacts(facts),
		})
	}
	w := cmd.OutOrStdout()
	for _, fact := range facts {
		fmt.Fprintln(w, fact)
	}
	return nil
}
