package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veb86/GristWidgets-sub001/internal/classify"
	"github.com/veb86/GristWidgets-sub001/internal/managercalc"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the device table for naming problems",
	Long: `Report devices without a base name, duplicate base names, head device
cycles and onlyGUpath entries that are not head units.

A head device that is missing from the table is not reported; classify
treats it as the top of the tree.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().Bool("json", false, "Output as JSON")
	validateCmd.Flags().Bool("strict", false, "Exit with status 1 when there are warnings")
}

func runValidate(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	strict, _ := cmd.Flags().GetBool("strict")

	cfg := mustLoadConfig()
	api, closeHost := mustOpenHost(cfg)
	defer closeHost()

	snap, err := api.FetchTable(cmd.Context(), cfg.Table)
	if err != nil {
		return fmt.Errorf("failed to fetch devices: %w", err)
	}
	devices, err := classify.Decode(snap, cfg.Columns)
	if err != nil {
		return err
	}

	warnings := classify.Validate(devices, classify.NewIndex(devices), cfg.PathSeparator)
	if jsonOut {
		if warnings == nil {
			warnings = []classify.Warning{}
		}
		if err := managercalc.PrintJSON(os.Stdout, warnings); err != nil {
			return err
		}
	} else {
		managercalc.PrintWarnings(os.Stdout, warnings)
	}

	if strict && len(warnings) > 0 {
		return fmt.Errorf("%w: %d found", managercalc.ErrValidation, len(warnings))
	}
	return nil
}
