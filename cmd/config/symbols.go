package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ppcsplit/ppcsplit/pkg/config"
	ppcobj "github.com/ppcsplit/ppcsplit/pkg/obj"
)

var symbolsImageFile string
var symbolsOutputFile string

var symbolsCmd = &cobra.Command{
	Use:   "symbols <symbols-file>",
	Short: "Parse a symbols file against an image and re-emit it in canonical form",
	Long: `Resolves each symbol line's named section against --image (a YAML image,
see "obj dump --format=yaml"), then writes the resulting symbol table back out
in the symbols file grammar. Running a canonical file through this twice
produces byte-identical output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := loadImage(symbolsImageFile)
		if err != nil {
			return err
		}

		sf, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer sf.Close()
		if err := config.ReadSymbols(sf, img); err != nil {
			return err
		}

		out := os.Stdout
		if symbolsOutputFile != "" {
			of, err := os.Create(symbolsOutputFile)
			if err != nil {
				return err
			}
			defer of.Close()
			out = of
		}
		return config.WriteSymbols(out, img)
	},
}

func loadImage(path string) (*ppcobj.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ppcobj.LoadYAML(f)
}

func init() {
	symbolsCmd.Flags().StringVar(&symbolsImageFile, "image", "", "YAML image providing section context")
	symbolsCmd.MarkFlagRequired("image")
	symbolsCmd.Flags().StringVarP(&symbolsOutputFile, "output", "o", "", "Output file. If omitted, written to stdout")
}
