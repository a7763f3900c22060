package obj

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ppcsplit/ppcsplit/pkg/asm"
	ppcobj "github.com/ppcsplit/ppcsplit/pkg/obj"
)

var asmOutputFile string

var asmCmd = &cobra.Command{
	Use:   "asm <relocatable.yaml>",
	Short: "Emit GNU-assembler text for a single relocatable object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		img, err := ppcobj.LoadYAML(f)
		if err != nil {
			return err
		}

		out := os.Stdout
		if asmOutputFile != "" {
			of, err := os.Create(asmOutputFile)
			if err != nil {
				return err
			}
			defer of.Close()
			out = of
		}
		return asm.WriteAsm(out, img)
	},
}

func init() {
	asmCmd.Flags().StringVarP(&asmOutputFile, "output", "o", "", "Output file. If omitted, written to stdout")
}
