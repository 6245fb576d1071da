package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veb86/GristWidgets-sub001/internal/classify"
	"github.com/veb86/GristWidgets-sub001/internal/managercalc"
)

var explainCmd = &cobra.Command{
	Use:   "explain <nmoBaseName>",
	Short: "Show how the levels of one device are resolved",
	Long: `Walk the head devices of one device the same way classify does and
print every hop: which ancestor was visited, which rule applied and which
level slot received its group.

Examples:
  managercalc explain QF1.2
  managercalc explain QF1.2 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().Bool("json", false, "Output as JSON")
}

func runExplain(cmd *cobra.Command, args []string) error {
	name := args[0]
	jsonOut, _ := cmd.Flags().GetBool("json")

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

	idx := classify.NewIndex(devices)
	device, ok := idx.Get(name)
	if !ok {
		return fmt.Errorf("device %q not found in %s", name, cfg.Table)
	}

	trace := classify.Explain(*device, idx, cfg.PathSeparator)
	if jsonOut {
		return managercalc.PrintJSON(os.Stdout, trace)
	}

	managercalc.PrintTrace(os.Stdout, trace)
	if trace.Levels != device.Stored {
		fmt.Fprintf(os.Stdout, "\nStored levels differ: %q / %q / %q\n",
			device.Stored.Level1, device.Stored.Level2, device.Stored.Level3)
	}
	return nil
}
