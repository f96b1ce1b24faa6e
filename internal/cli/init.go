package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the marker table",
	Long: `Init creates the marker table if it does not exist yet.

Loads create the marker table on first use, so init is optional. It is useful
to provision the table with an administrative account ahead of time, or to
check connectivity and permissions from a deployment pipeline.

With --write-config the resolved connection is saved to vload.yaml in
--config-dir (the password is never written).

Examples:
  vload init -d vmart
  vload init -d vmart --marker-table etl.table_updates --write-config`,
	Args: NoArgs,
	RunE: runInit,
}

var initWriteConfig bool

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initWriteConfig, "write-config", false,
		"Save the resolved connection to vload.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	err = a.run(func(ctx context.Context) error {
		if err := a.status.InitMarker(ctx); err != nil {
			return fmt.Errorf("failed to create marker table: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "marker table ready")
		return nil
	})
	if err != nil {
		return err
	}

	if initWriteConfig {
		path, err := saveConnectionToConfig(globalFlags.configDir, a.conn)
		if err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		a.logger.Info("Connection saved to %s", path)
	}
	return nil
}
