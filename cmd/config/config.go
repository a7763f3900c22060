// Package config wires the symbols/splits text-file reader and writer
// (pkg/config) to the command line, for normalizing or inspecting those
// files independent of a full split run.
package config

import (
	"github.com/spf13/cobra"
)

// ConfigCmd groups the symbols and splits file subcommands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Read, normalize, and write symbols/splits config files",
}

func init() {
	ConfigCmd.AddCommand(symbolsCmd, splitsCmd)
}
