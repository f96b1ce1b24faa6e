package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vvka-141/vload/pkg/vload"
)

// NoArgs rejects positional arguments with a usage error.
func NoArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%s takes no arguments, received %q\n\nUsage: %s: %w",
			cmd.CommandPath(), args, cmd.UseLine(), vload.ErrUsage)
	}
	return nil
}

// requireFlag returns a usage error naming the missing flag with an example.
func requireFlag(cmd *cobra.Command, name, value, example string) error {
	if value != "" {
		return nil
	}
	return fmt.Errorf(`missing required flag: --%s

Usage: %s

Example:
  %s %s: %w`, name, cmd.UseLine(), cmd.CommandPath(), example, vload.ErrUsage)
}
