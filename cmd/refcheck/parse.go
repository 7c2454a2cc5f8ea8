package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/cwz-bot/reference-check/internal/parser"
	"github.com/cwz-bot/reference-check/internal/reference"
)

var parseWhole bool

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().BoolVar(&parseWhole, "whole", false, "Use the whole document when no reference section heading is found")
}

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse raw references into JSONL without checking them",
	Long: `Parse raw references into structured fields and print one JSON object per
line. The output can be edited and passed back to 'refcheck check'.

With --human, prints a short field summary per reference instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	path := inputPath(args)
	refs, err := loadReferences(ctx, path, os.Stdin, inputOptions{whole: parseWhole}, parser.NewAnyStyle(cfg.AnyStyleCommand))
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}
	if len(refs) == 0 {
		exitWithError(ExitDataError, "no references found in %s", displayName(path))
	}

	if humanOutput {
		printParsedHuman(refs)
		return nil
	}
	return parser.WriteJSONL(os.Stdout, refs)
}

func printParsedHuman(refs []reference.Parsed) {
	for i, p := range refs {
		fmt.Printf("%d. %s\n", i+1, truncateString(p.Text, 100))
		if p.Title != "" {
			fmt.Printf("   Title:   %s\n", p.Title)
		}
		if p.Authors != "" {
			fmt.Printf("   Authors: %s\n", truncateString(p.Authors, 80))
		}
		if p.Date != "" {
			fmt.Printf("   Date:    %s\n", p.Date)
		}
		if src := p.Source(); src != "" {
			fmt.Printf("   Source:  %s\n", src)
		}
		if p.DOI != "" {
			fmt.Printf("   DOI:     %s\n", p.DOI)
		}
		if p.URL != "" {
			fmt.Printf("   URL:     %s\n", p.URL)
		}
		fmt.Println()
	}
}
