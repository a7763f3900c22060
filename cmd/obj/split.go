package obj

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppcsplit/ppcsplit/pkg/asm"
	"github.com/ppcsplit/ppcsplit/pkg/config"
	"github.com/ppcsplit/ppcsplit/pkg/diag"
	ppcobj "github.com/ppcsplit/ppcsplit/pkg/obj"
	"github.com/ppcsplit/ppcsplit/pkg/obj/splitter"
)

var (
	splitSymbolsFile string
	splitSplitsFile  string
	splitOutDir      string
	splitLogFile     string
)

var splitCmd = &cobra.Command{
	Use:   "split <image.yaml>",
	Short: "Run the split propagator and splitter, writing one .s file per unit",
	Long: `Loads an image (the YAML rendering produced by "obj dump --format=yaml",
standing in for an upstream ELF loader), applies any symbols/splits config
files given with --symbols/--splits, propagates ctors/dtors, extabindex, and
common-BSS splits, resolves the link order, splits the image into one
relocatable object per unit, and writes each as GNU-assembler text under
--out.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := diag.New(splitLogFile)
		if err != nil {
			return err
		}
		diag.Default = logger

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		img, err := ppcobj.LoadYAML(f)
		if err != nil {
			return err
		}

		if splitSymbolsFile != "" {
			if err := applyConfigFile(splitSymbolsFile, func(r *os.File) error { return config.ReadSymbols(r, img) }); err != nil {
				return err
			}
		}
		if splitSplitsFile != "" {
			if err := applyConfigFile(splitSplitsFile, func(r *os.File) error { return config.ReadSplits(r, img) }); err != nil {
				return err
			}
		}

		if err := splitter.UpdateSplits(img); err != nil {
			return err
		}

		outputs, err := splitter.SplitObj(img)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(splitOutDir, 0o755); err != nil {
			return err
		}
		for _, out := range outputs {
			path := filepath.Join(splitOutDir, out.Name+".s")
			of, err := os.Create(path)
			if err != nil {
				return err
			}
			err = asm.WriteAsm(of, out)
			of.Close()
			if err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
		}

		logger.Info("split complete", "units", len(outputs), "out", splitOutDir)
		return nil
	},
}

func applyConfigFile(path string, apply func(*os.File) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return apply(f)
}

func init() {
	splitCmd.Flags().StringVar(&splitSymbolsFile, "symbols", "", "Symbols config file to apply before splitting")
	splitCmd.Flags().StringVar(&splitSplitsFile, "splits", "", "Splits config file to apply before splitting")
	splitCmd.Flags().StringVarP(&splitOutDir, "out", "o", ".", "Output directory for per-unit .s files")
	splitCmd.Flags().StringVar(&splitLogFile, "log-file", "", "Also append diagnostics to this file")
}
