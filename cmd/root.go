// Package cmd implements the drumscribe command line interface
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/drumscribe/drumscribe/logging"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "drumscribe",
	Short: "Drum annotation analysis toolkit",
	Long: `Drumscribe analyzes drum recordings for rhythm-game annotation:
onset detection, don/ka classification, tempo and beat-grid inference,
and snapping of annotated hits onto the grid.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logging.SetLevel(logging.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
