package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/factlog/internal/program"
)

// CheckIssue is one compile error in JSON output.
type CheckIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// CheckResult holds validation results.
type CheckResult struct {
	Valid      bool                   `json:"valid"`
	Program    string                 `json:"program,omitempty"`
	Attributes int                    `json:"attributes"`
	Facts      int                    `json:"facts"`
	Rules      int                    `json:"rules"`
	Queries    int                    `json:"queries"`
	Errors     []CheckIssue           `json:"errors,omitempty"`
	Warnings   []program.CycleWarning `json:"warnings,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <program>",
		Short: "Validate a program without running it",
		Long: `Validate a YAML or CUE program without installing it.

Reports every invalid element (undeclared attributes, unbound variables,
floats, missing when/then) and warns about recursive rules, which only
terminate when they stop producing new facts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	w := cmd.OutOrStdout()

	prog, err := program.Load(path)
	if err != nil {
		if !program.IsCompileError(err) {
			return failLoad(f, err)
		}
		return outputCheckErrors(f, cmd, program.CompileErrors(err))
	}

	warnings := program.AnalyzeCycles(prog)
	result := CheckResult{
		Valid:      true,
		Program:    prog.Name,
		Attributes: len(prog.Attributes),
		Facts:      len(prog.Facts),
		Rules:      len(prog.Rules),
		Queries:    len(prog.Queries),
		Warnings:   warnings,
	}
	if f.JSON() {
		return f.Success(result)
	}

	fmt.Fprintf(w, "✓ %s: %d attributes, %d facts, %d rules, %d queries\n",
		result.Program, result.Attributes, result.Facts, result.Rules, result.Queries)
	for _, warn := range warnings {
		fmt.Fprintf(w, "⚠ %s\n", warn.Message)
	}
	return nil
}

func outputCheckErrors(f *OutputFormatter, cmd *cobra.Command, errs []*program.CompileError) error {
	issues := make([]CheckIssue, len(errs))
	for i, e := range errs {
		issues[i] = CheckIssue{Field: e.Field, Message: e.Message}
		if e.Pos.IsValid() {
			issues[i].Line = e.Pos.Line()
		}
	}

	if f.JSON() {
		if err := f.encode(CLIResponse{
			Status: "error",
			Data:   CheckResult{Valid: false, Errors: issues},
			Error: &CLIError{
				Code:    ErrCodeCompile,
				Message: fmt.Sprintf("%d error(s)", len(issues)),
			},
		}); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, issue := range issues {
			if issue.Line > 0 {
				fmt.Fprintf(w, "✗ %s (line %d): %s\n", issue.Field, issue.Line, issue.Message)
				continue
			}
			fmt.Fprintf(w, "✗ %s: %s\n", issue.Field, issue.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}
