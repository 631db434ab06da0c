// Package cmd implements the gvm16 CLI: a terminal-driven demonstration
// that loads a source file, ticks the interpreter, feeds keyboard
// input, and repaints a screen.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const currentReleaseVersion = "v0.1.0"

var rootCmd = &cobra.Command{
	Use:   "gvm16 [command]",
	Short: "gvm16 is a 16-bit register machine emulator",
	Long: "gvm16 assembles and runs programs on a small 16-bit register " +
		"machine: 8 general purpose registers, a segmented memory model, " +
		"and memory-mapped keyboard and screen peripherals.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Unknown command. Try `gvm16 help` for more information")
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs gvm16 according to the user's command/subcommand/flags.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
