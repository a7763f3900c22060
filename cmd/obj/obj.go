// Package obj wires the split-propagation, link-order resolution, object
// splitting, and assembly emission passes (pkg/obj/splitter, pkg/asm) to
// the command line, following the one-subcommand-group-per-file layout
// used elsewhere in this CLI's command tree.
package obj

import (
	"github.com/spf13/cobra"
)

// ObjCmd groups every subcommand operating on an in-memory image: running
// the split pipeline, emitting assembly for a single relocatable, and
// dumping an image for inspection.
var ObjCmd = &cobra.Command{
	Use:   "obj",
	Short: "Split and inspect PowerPC executable images",
}

func init() {
	ObjCmd.AddCommand(splitCmd, asmCmd, dumpCmd)
}
