// Command nearby runs the nearest-facility pipeline from the terminal,
// using the same configuration as the API server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nearby",
		Short:         "Find the nearest healthcare facilities",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("provider", "", "places and geocoding provider (geoapify, google, mock); overrides the environment")
	root.PersistentFlags().Bool("verbose", false, "log pipeline progress to stderr")

	root.AddCommand(newSearchCmd(), newGeocodeCmd(), newStrategiesCmd())
	return root
}
