package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veb86/GristWidgets-sub001/internal/config"
	"github.com/veb86/GristWidgets-sub001/internal/managercalc"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Compute group levels and write changed rows back",
	Long: `Fetch the device table, resolve level1..level3 for every device and
send the rows whose levels changed to the document in batches.

Examples:
  managercalc classify --dry-run             # show what would change
  managercalc classify --batch-size 100      # larger batches
  managercalc classify -f project.grist      # work on a local document`,
	Args: cobra.NoArgs,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().Bool("dry-run", false, "Plan only, do not write")
	classifyCmd.Flags().Bool("json", false, "Output the report as JSON")
	classifyCmd.Flags().Bool("strict", false, "Fail when the table has validation warnings")
	classifyCmd.Flags().Bool("show-updates", false, "List planned updates in the summary")
	classifyCmd.Flags().Int("batch-size", 0, "Updates per request (default from config, 50)")
	classifyCmd.Flags().String("delay", "", "Delay between batches, e.g. 10ms (default from config)")
	classifyCmd.Flags().Bool("no-progress", false, "Do not draw the progress line")
}

func runClassify(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	jsonOut, _ := cmd.Flags().GetBool("json")
	strict, _ := cmd.Flags().GetBool("strict")
	showUpdates, _ := cmd.Flags().GetBool("show-updates")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	delay, _ := cmd.Flags().GetString("delay")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	cfg := mustLoadConfig()
	if batchSize != 0 {
		cfg.BatchSize = batchSize
	}
	if delay != "" {
		d, err := config.ParseDelay(delay)
		if err != nil {
			return err
		}
		cfg.UpdateDelay = d
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	api, closeHost := mustOpenHost(cfg)
	defer closeHost()

	log := componentLogger("classify")
	run := managercalc.NewRun(api, cfg, log)
	run.Status = managercalc.LogStatus{Logger: log}
	if !noProgress && !jsonOut {
		run.Progress = managercalc.NewProgressLine(os.Stderr).Update
	}

	report, err := run.Execute(cmd.Context(), managercalc.Options{DryRun: dryRun, Strict: strict})
	if report != nil {
		if jsonOut {
			if perr := managercalc.PrintJSON(os.Stdout, report); perr != nil {
				return fmt.Errorf("failed to encode report: %w", perr)
			}
		} else {
			managercalc.PrintSummary(os.Stdout, report, showUpdates || dryRun)
		}
	}
	return err
}
