package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the thingstore release.
const Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/thingstore"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the thingstore version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "thingstore v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
