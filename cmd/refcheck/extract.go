package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwz-bot/reference-check/internal/ingest"
)

var extractAll bool

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolVar(&extractAll, "all", false, "Print every paragraph, not just the reference section")
}

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print the reference section of a PDF, DOCX, or text file",
	Long: `Print the reference section of a document, one paragraph per entry.
PDF text is split into lines, so wrapped references may span several lines.

The section starts at the first paragraph mentioning References,
Bibliography, 參考文獻, 参考文献, 參考資料, or 参考资料.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// ExtractResponse is the JSON output of the extract command.
type ExtractResponse struct {
	Path       string   `json:"path"`
	Found      bool     `json:"found"`
	Paragraphs []string `json:"paragraphs"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	paragraphs, err := ingest.ExtractParagraphs(args[0])
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}

	section := ingest.ReferenceSection(paragraphs)
	resp := ExtractResponse{Path: args[0], Found: section != nil, Paragraphs: paragraphs}
	if !extractAll {
		resp.Paragraphs = section
	}
	if resp.Paragraphs == nil {
		resp.Paragraphs = []string{}
	}

	if !humanOutput {
		return outputJSON(resp)
	}
	if !extractAll && !resp.Found {
		exitWithError(ExitDataError, "no reference section found in %s", args[0])
	}
	for _, p := range resp.Paragraphs {
		fmt.Println(p)
	}
	return nil
}
