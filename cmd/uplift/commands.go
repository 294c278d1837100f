package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gouplift/adapters/excel"
	"gouplift/app"
	"gouplift/domain/run"
	"gouplift/internal/container"
	"gouplift/internal/report"

	"github.com/spf13/cobra"
)

// outputFlags select where a report goes besides the console
type outputFlags struct {
	json     bool
	xlsx     string
	markdown string
	html     string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.json, "json", false, "Print the report as JSON instead of tables")
	cmd.Flags().StringVar(&o.xlsx, "xlsx", "", "Write the results workbook to this path")
	cmd.Flags().StringVar(&o.markdown, "markdown", "", "Write a Markdown summary to this path")
	cmd.Flags().StringVar(&o.html, "html", "", "Write an HTML report to this path")
}

func newABTestCmd(flags *globalFlags) *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "abtest",
		Short: "Run balance, conversion z-tests and spend Welch tests",
		Long: `Run the randomized-experiment tests over the full population.

Example: uplift abtest --data hillstrom.csv --resamples 5000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, flags, out, func(o *app.RunOptions) { o.SkipUplift = true }, false)
		},
	}
	out.register(cmd)
	return cmd
}

func newUpliftCmd(flags *globalFlags) *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "uplift",
		Short: "Fit the two-model uplift learner and simulate top-k targeting",
		Long: `Split the data, fit one calibrated model per arm, score the holdout,
then report the Qini curve summary and the ROI table per pair.

Example: uplift uplift --data hillstrom.csv --ks 0.05,0.1,0.2,0.3,1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, flags, out, func(o *app.RunOptions) { o.SkipSignificance = true }, false)
		},
	}
	out.register(cmd)
	return cmd
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var out outputFlags
	var noPersist bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every stage, store the report and export it",
		Long: `Run the significance tests and the uplift evaluation, store the report in
the configured database and optionally export XLSX, Markdown and HTML.

Example: uplift run --data hillstrom.csv --xlsx results.xlsx --markdown report.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, flags, out, nil, !noPersist)
		},
	}
	out.register(cmd)
	cmd.Flags().BoolVar(&noPersist, "no-persist", false, "Do not store the report in the database")
	return cmd
}

func execute(cmd *cobra.Command, flags *globalFlags, out outputFlags, adjust func(*app.RunOptions), persist bool) error {
	ctx := cmd.Context()
	c, err := newContainer(cmd, flags)
	if err != nil {
		return err
	}
	defer c.Shutdown(context.Background())

	if persist {
		if err := c.InitWithDatabase(ctx); err != nil {
			return err
		}
	}

	reader, err := dataReader(c)
	if err != nil {
		return err
	}
	records, err := c.Runner.Load(ctx, reader)
	if err != nil {
		return err
	}

	opts, err := app.OptionsFromConfig(c.Config)
	if err != nil {
		return err
	}
	if adjust != nil {
		adjust(&opts)
	}

	r, err := c.Runner.Execute(ctx, records, opts)
	if err != nil {
		return err
	}
	if persist {
		if err := c.Runner.Persist(ctx, r); err != nil {
			return err
		}
	}

	if err := render(cmd.OutOrStdout(), r, out.json); err != nil {
		return err
	}
	return export(c, r, out)
}

func render(w io.Writer, r *run.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	report.NewConsole(w).Print(r)
	return nil
}

func export(c *container.Container, r *run.Report, out outputFlags) error {
	log := c.Logger.With("export")
	if out.xlsx != "" {
		if err := excel.ExportReport(out.xlsx, r); err != nil {
			return err
		}
		log.Info("workbook written to %s", out.xlsx)
	}
	if out.markdown != "" {
		if err := os.WriteFile(out.markdown, []byte(report.Markdown(r)), 0o644); err != nil {
			return fmt.Errorf("write markdown report: %w", err)
		}
		log.Info("markdown written to %s", out.markdown)
	}
	if out.html != "" {
		if err := os.WriteFile(out.html, report.HTML(r), 0o644); err != nil {
			return fmt.Errorf("write html report: %w", err)
		}
		log.Info("html written to %s", out.html)
	}
	return nil
}
