package app

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/skusync/pkg/constants"
	"github.com/agentstation/skusync/pkg/logging"
	"github.com/agentstation/skusync/pkg/pipeline"
	"github.com/agentstation/skusync/pkg/reports"
)

// NewRunCommand creates the run command with its per-report subcommands.
func (a *App) NewRunCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate and deliver reconciled reports",
		Long: `Run reconciles the newest channel exports in the input directory into
SKU-keyed reports, writes them to the output directory, and posts them to
the configured webhook.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "write report files but skip webhook delivery")

	cmd.AddCommand(&cobra.Command{
		Use:   "sales",
		Short: "Generate the daily sales report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReports(cmd, dryRun, reports.Sales)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "inventory",
		Short: "Generate the point-in-time inventory report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReports(cmd, dryRun, reports.Inventory)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "Generate both reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReports(cmd, dryRun, reports.Sales, reports.Inventory)
		},
	})

	return cmd
}

// runReports runs the pipeline for each report type in order.
func (a *App) runReports(cmd *cobra.Command, dryRun bool, types ...reports.Type) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), constants.CommandTimeout)
	defer cancel()
	ctx = logging.WithLogger(ctx, a.logger)

	p, err := a.Pipeline(dryRun)
	if err != nil {
		return err
	}

	for _, t := range types {
		outcome, err := p.Run(ctx, t)
		if err != nil {
			return err
		}
		for _, path := range outcome.Paths {
			cmd.Printf("wrote %s\n", path)
		}
		if !outcome.Report.Diagnostics.Empty() {
			cmd.Printf("skipped records: %s\n", outcome.Report.Diagnostics)
		}
		if outcome.Delivered {
			cmd.Printf("delivered %s report to webhook\n", t)
		}
	}
	return nil
}

// NewCombineCommand creates the combine command.
func (a *App) NewCombineCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "combine",
		Short: "Concatenate generated inventory reports into one history CSV",
		Long: `Combine joins every inventory report CSV in the output directory into a
single chronological combined_inventory_report.csv.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := logging.WithLogger(cmd.Context(), a.logger)
			path, n, err := pipeline.Combine(ctx, a.config.OutputDir)
			if err != nil {
				return err
			}
			cmd.Printf("combined %d reports into %s\n", n, path)
			return nil
		},
	}
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("skusync %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
