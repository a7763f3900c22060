package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ppcsplit/ppcsplit/pkg/config"
)

var splitsImageFile string
var splitsOutputFile string

var splitsCmd = &cobra.Command{
	Use:   "splits <splits-file>",
	Short: "Parse a splits file against an image and re-emit it in canonical form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := loadImage(splitsImageFile)
		if err != nil {
			return err
		}

		sf, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer sf.Close()
		if err := config.ReadSplits(sf, img); err != nil {
			return err
		}

		out := os.Stdout
		if splitsOutputFile != "" {
			of, err := os.Create(splitsOutputFile)
			if err != nil {
				return err
			}
			defer of.Close()
			out = of
		}
		return config.WriteSplits(out, img)
	},
}

func init() {
	splitsCmd.Flags().StringVar(&splitsImageFile, "image", "", "YAML image providing section context")
	splitsCmd.MarkFlagRequired("image")
	splitsCmd.Flags().StringVarP(&splitsOutputFile, "output", "o", "", "Output file. If omitted, written to stdout")
}
