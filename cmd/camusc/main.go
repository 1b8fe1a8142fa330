// camusc compiles packet-classification rule files into P4 match-action
// table entries: runtime table_add commands, an equivalent JSON document,
// and a multicast-group file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "camusc: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "camusc",
	Short:         "Compile packet-classification rules to P4 table entries.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("headers", "", "header catalog TOML file")
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(versionCmd)
}

// Version is the software version, set at build time.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the camusc version.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("camusc", Version)
	},
}
