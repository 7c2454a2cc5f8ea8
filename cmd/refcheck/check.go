package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwz-bot/reference-check/internal/ingest"
	"github.com/cwz-bot/reference-check/internal/parser"
	"github.com/cwz-bot/reference-check/internal/reference"
	"github.com/cwz-bot/reference-check/internal/scheduler"
)

var (
	checkFormat     string
	checkOutput     string
	checkParsed     bool
	checkWhole      bool
	checkWorkers    int
	checkThreshold  float64
	checkNoCache    bool
	checkNoFallback bool
	checkDisable    []string
	checkStrict     bool
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "", "Output format: json, table, csv, markdown, bibtex (default json, table with --human)")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "", "Write the report to a file instead of stdout")
	checkCmd.Flags().BoolVar(&checkParsed, "parsed", false, "Input is pre-parsed JSON/JSONL (implied by .json/.jsonl files)")
	checkCmd.Flags().BoolVar(&checkWhole, "whole", false, "Use the whole document when no reference section heading is found")
	checkCmd.Flags().IntVarP(&checkWorkers, "workers", "w", 0, "Concurrent references (default from config, 5)")
	checkCmd.Flags().Float64Var(&checkThreshold, "threshold", 0, "Title similarity threshold in (0, 1] (default from config, 0.9)")
	checkCmd.Flags().BoolVar(&checkNoCache, "no-cache", false, "Do not read or write the response cache")
	checkCmd.Flags().BoolVar(&checkNoFallback, "no-text-fallback", false, "Skip the raw-text Scholar search for unmatched references")
	checkCmd.Flags().StringSliceVar(&checkDisable, "disable", nil, "Sources to skip: local, crossref, scopus, openalex, s2, scholar, scholar-text, website")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Exit with code 5 when any reference is not verified")
}

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Verify every reference in a document or reference list",
	Long: `Verify every reference in a document or reference list.

Input may be a PDF, DOCX, text, or Markdown file, or "-" / no argument for
stdin. For documents the reference section is located by its heading
(References, Bibliography, 參考文獻, ...). Raw entries are parsed with
AnyStyle (see anystyle_command in config). Pre-parsed references can be
supplied as JSON or JSONL, e.g. the output of 'refcheck parse'.

Examples:
  refcheck check thesis.pdf --human
  refcheck check refs.txt -f csv -o report.csv
  refcheck parse refs.txt > refs.jsonl && refcheck check refs.jsonl
  refcheck check refs.jsonl --disable scopus,scholar --strict`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(checkFormat)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	cfg := mustLoadConfig()
	if checkWorkers > 0 {
		cfg.MaxWorkers = checkWorkers
	}
	if checkThreshold != 0 {
		if checkThreshold < 0 || checkThreshold > 1 {
			exitWithError(ExitError, "--threshold must be in (0, 1]")
		}
		cfg.Threshold = checkThreshold
	}
	if checkNoCache {
		cfg.NoCache = true
	}
	if checkNoFallback {
		cfg.DisableTextFallback = true
	}
	cfg.DisabledSources = append(cfg.DisabledSources, checkDisable...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	path := inputPath(args)
	refs, err := loadReferences(ctx, path, os.Stdin, inputOptions{
		parsed: checkParsed,
		whole:  checkWhole,
	}, parser.NewAnyStyle(cfg.AnyStyleCommand))
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}
	if len(refs) == 0 {
		exitWithError(ExitDataError, "no references found in %s", displayName(path))
	}

	p := newPipeline(cfg)
	defer p.Close()

	opts := scheduler.Options{MaxWorkers: cfg.MaxWorkers}
	if humanOutput {
		opts.Progress = func(done, total int) {
			fmt.Fprintf(os.Stderr, "\rChecked %d/%d", done, total)
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		}
	}
	records := scheduler.ResolveAll(ctx, p.resolver, refs, opts)

	if err := writeReport(checkOutput, format, records); err != nil {
		exitWithError(ExitError, "writing report: %v", err)
	}

	if checkStrict {
		for _, r := range records {
			if !r.Verified() {
				os.Exit(ExitUnverified)
			}
		}
	}
	return nil
}

func writeReport(path, format string, records []reference.Record) error {
	if path == "" {
		return writeRecords(os.Stdout, format, records)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeRecords(f, format, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if humanOutput {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", path)
	}
	return nil
}

// errNoSection is returned when a document has no reference heading.
var errNoSection = errors.New("no reference section found (use --whole to check the entire document)")

type inputOptions struct {
	parsed bool // input is JSON/JSONL
	whole  bool // use the whole document when no heading is found
}

func inputPath(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}

func displayName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return path
}

// loadReferences reads references from path, or from stdin for "-".
func loadReferences(ctx context.Context, path string, stdin io.Reader, opts inputOptions, p parser.Parser) ([]reference.Parsed, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if opts.parsed || ext == ".json" || ext == ".jsonl" {
		if path == "-" {
			return parser.ReadJSON(stdin)
		}
		return parser.ReadJSONFile(path)
	}

	raw, err := readRawReferences(path, stdin, opts.whole)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return p.Parse(ctx, raw)
}

// readRawReferences returns reference text, one entry per line. Documents
// are cut to their reference section. Plain text and stdin are used as-is
// unless a line holds nothing but a section heading.
func readRawReferences(path string, stdin io.Reader, whole bool) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return plainEntries(strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")), nil
	}

	paragraphs, err := ingest.ExtractParagraphs(path)
	if err != nil {
		return "", err
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".pdf" && ext != ".docx" {
		return plainEntries(paragraphs), nil
	}

	section := ingest.ReferenceSection(paragraphs)
	if section == nil {
		if !whole {
			return "", errNoSection
		}
		section = paragraphs
	}
	return strings.Join(ingest.Entries(section), "\n"), nil
}

func plainEntries(lines []string) string {
	if i := ingest.HeadingIndex(lines); i >= 0 {
		lines = lines[i+1:]
	}
	return strings.Join(lines, "\n")
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, parser.ErrParserUnavailable):
		return ExitParserUnavailable
	case errors.Is(err, errNoSection), errors.Is(err, ingest.ErrUnsupportedFormat):
		return ExitDataError
	default:
		return ExitError
	}
}
