package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/giygas/pharmacy-validator/config"
	"github.com/giygas/pharmacy-validator/entities"
	"github.com/giygas/pharmacy-validator/interfaces"
	"github.com/giygas/pharmacy-validator/logging"
	"github.com/giygas/pharmacy-validator/register"
	"github.com/giygas/pharmacy-validator/report"
	"github.com/giygas/pharmacy-validator/validation"
	"github.com/spf13/cobra"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a client list and write the annotated report",
		Long: `Look up every pharmacy of the input table on the register and write a
report with one row per input row: PharmacyName, BestMatch, MatchScore, Status.

Input and report formats follow the file extensions (.csv or .xlsx).

Examples:
  # Validate a CSV list
  pharmacy-validator validate --in clients.csv

  # Excel in, Excel out, with a custom name column
  pharmacy-validator validate --in clients.xlsx --out checked.xlsx --column Client`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, _ := cmd.Flags().GetString("in")
			out, _ := cmd.Flags().GetString("out")

			validator := validation.NewValidator(register.NewClientFromConfig(cfg), cfg.FetchDelay)

			summary, err := runValidate(cmd.Context(), cfg, validator, in, out)
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().String("in", "", "client list to validate (.csv or .xlsx)")
	cmd.Flags().String("out", report.DefaultFileName+".csv", "report file (.csv or .xlsx)")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}

// runSummary counts the outcome of a run
type runSummary struct {
	OutPath   string
	Rows      int
	Exact     int
	NoMatch   int
	Failed    int
	Cancelled bool
}

// runValidate reads inPath, validates every row and writes the report to
// outPath. Nothing is written when the input cannot be read.
func runValidate(ctx context.Context, c *config.Config, v interfaces.Validator, inPath, outPath string) (runSummary, error) {
	inFormat, err := report.FormatFromPath(inPath)
	if err != nil {
		return runSummary{}, fmt.Errorf("input %s: %w", inPath, err)
	}
	outFormat, err := report.FormatFromPath(outPath)
	if err != nil {
		return runSummary{}, fmt.Errorf("output %s: %w", outPath, err)
	}

	f, err := os.Open(inPath)
	if err != nil {
		return runSummary{}, fmt.Errorf("failed to open input: %w", err)
	}
	records, err := report.ReadRecords(f, inFormat, c.NameColumn)
	_ = f.Close()
	if err != nil {
		return runSummary{}, fmt.Errorf("input %s: %w", inPath, err)
	}

	logging.Info("Starting validation", "input", inPath, "rows", len(records))

	results := v.Validate(ctx, validation.Names(records))

	var buf bytes.Buffer
	if err := report.Write(&buf, outFormat, results); err != nil {
		return runSummary{}, err
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return runSummary{}, fmt.Errorf("failed to write report: %w", err)
	}

	summary := summarize(results)
	summary.OutPath = outPath
	summary.Cancelled = ctx.Err() != nil
	return summary, nil
}

func summarize(results []entities.Result) runSummary {
	s := runSummary{Rows: len(results)}
	for _, r := range results {
		switch r.BestMatch {
		case entities.ErrorName:
			s.Failed++
		case entities.NoMatchName:
			s.NoMatch++
		default:
			if r.MatchScore == 100 {
				s.Exact++
			}
		}
	}
	return s
}

func printSummary(w io.Writer, s runSummary) {
	if s.Cancelled {
		fmt.Fprintln(w, "Validation interrupted, remaining rows were not looked up.")
	} else {
		fmt.Fprintln(w, "Validation complete!")
	}
	fmt.Fprintf(w, "  rows:          %d\n", s.Rows)
	fmt.Fprintf(w, "  exact matches: %d\n", s.Exact)
	fmt.Fprintf(w, "  no match:      %d\n", s.NoMatch)
	fmt.Fprintf(w, "  errors:        %d\n", s.Failed)
	fmt.Fprintf(w, "Report written to %s\n", s.OutPath)
}
