package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/vharness/internal/constraint"
)

// CheckResult describes a suite that loaded and compiled.
type CheckResult struct {
	Suite    string           `json:"suite"`
	Fixtures []FixtureSummary `json:"fixtures"`
}

// FixtureSummary lists one compiled fixture.
type FixtureSummary struct {
	Name      string   `json:"name"`
	Skip      bool     `json:"skip,omitempty"`
	Templates []string `json:"templates"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <suite.yaml>",
		Short: "Check a suite without running it",
		Long: `Load and compile a validation suite without running any template.

Parses the YAML strictly, validates references between templates and data,
compiles every constraint and opens every SQL source (running its setup
statements). Faster than run for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	compiled, err := loadSuite(ctx, formatter, path, constraint.NewCUE())
	if err != nil {
		return err
	}
	defer compiled.Close()

	res := CheckResult{Suite: compiled.Name, Fixtures: []FixtureSummary{}}
	templates := 0
	for _, f := range compiled.Fixtures() {
		summary := FixtureSummary{Name: f.Name, Skip: f.Skip, Templates: []string{}}
		for _, t := range f.Templates {
			summary.Templates = append(summary.Templates, t.Name)
		}
		templates += len(f.Templates)
		res.Fixtures = append(res.Fixtures, summary)
	}

	if formatter.Format == "json" {
		return formatter.Success(res)
	}

	fmt.Fprintf(formatter.Writer, "✓ Suite %s is valid: %d fixture(s), %d template(s)\n",
		res.Suite, len(res.Fixtures), templates)
	if formatter.Verbose {
		for _, f := range res.Fixtures {
			suffix := ""
			if f.Skip {
				suffix = " (skip)"
			}
			fmt.Fprintf(formatter.Writer, "  %s%s\n", f.Name, suffix)
			for _, t := range f.Templates {
				fmt.Fprintf(formatter.Writer, "    - %s\n", t)
			}
		}
	}
	return nil
}
