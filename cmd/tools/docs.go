package tools

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

var docsOutputDir string

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Generate Markdown documentation for the ppcsplit CLI",
	Long: `Walks the command tree rooted at the caller and writes one Markdown file
per command to --output-dir, using cobra/doc's standard generator.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := os.MkdirAll(docsOutputDir, 0o755); err != nil {
			fmt.Fprintln(os.Stderr, "Error creating output directory:", err)
			os.Exit(1)
		}
		if err := doc.GenMarkdownTree(cmd.Root(), docsOutputDir); err != nil {
			fmt.Fprintln(os.Stderr, "Error generating docs:", err)
			os.Exit(2)
		}
	},
}

func init() {
	ToolsCmd.AddCommand(docsCmd)
	docsCmd.Flags().StringVarP(&docsOutputDir, "output-dir", "o", "./docs", "Directory to write generated Markdown files into")
}
