package obj

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	ppcobj "github.com/ppcsplit/ppcsplit/pkg/obj"
)

var (
	dumpFormat     string
	dumpOutputFile string
)

var dumpCmd = &cobra.Command{
	Use:   "dump <image.yaml>",
	Short: "Dump an image for inspection, or normalize it through the YAML model",
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
		if dumpOutputFile != "" {
			of, err := os.Create(dumpOutputFile)
			if err != nil {
				return err
			}
			defer of.Close()
			out = of
		}

		switch dumpFormat {
		case "", "text":
			return ppcobj.DumpImage(out, img)
		case "yaml":
			return ppcobj.SaveYAML(out, img)
		default:
			return fmt.Errorf("unknown dump format %q (want text or yaml)", dumpFormat)
		}
	},
}

func init() {
	dumpCmd.Flags().StringVar(&dumpFormat, "format", "text", "Output format: text or yaml")
	dumpCmd.Flags().StringVarP(&dumpOutputFile, "output", "o", "", "Output file. If omitted, written to stdout")
}
