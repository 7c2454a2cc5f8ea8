package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cwz-bot/reference-check/internal/reference"
)

// DefaultCommand runs a locally installed AnyStyle CLI.
var DefaultCommand = []string{"anystyle"}

// DefaultTimeout bounds one AnyStyle run.
const DefaultTimeout = 2 * time.Minute

// DefaultBatchSize is the most input, in bytes, passed to one AnyStyle run.
const DefaultBatchSize = 32 << 10

// ErrParserUnavailable is returned when the parser executable is missing.
var ErrParserUnavailable = errors.New("reference parser not available")

// Parser turns raw reference text into structured references. Every
// returned reference has non-empty Text.
type Parser interface {
	Parse(ctx context.Context, raw string) ([]reference.Parsed, error)
}

// AnyStyle runs the AnyStyle CLI on one reference per line.
type AnyStyle struct {
	// Command is the executable and any leading arguments, e.g.
	// ["docker", "exec", "anystyle", "anystyle"].
	Command []string
	Timeout time.Duration
	// BatchSize caps the bytes of input per run; 0 parses everything at once.
	BatchSize int
}

// NewAnyStyle creates an AnyStyle parser. An empty command selects
// DefaultCommand.
func NewAnyStyle(command []string) *AnyStyle {
	if len(command) == 0 {
		command = DefaultCommand
	}
	return &AnyStyle{Command: command, Timeout: DefaultTimeout, BatchSize: DefaultBatchSize}
}

// Parse runs `anystyle --stdout -f json parse` over the references in
// batches of whole lines. When a run returns one entry per input line the
// line becomes the entry's text.
func (a *AnyStyle) Parse(ctx context.Context, raw string) ([]reference.Parsed, error) {
	lines := SplitEntries(raw)
	if len(lines) == 0 {
		return nil, nil
	}

	var refs []reference.Parsed
	for _, batch := range Chunk(strings.Join(lines, "\n"), a.BatchSize) {
		parsed, err := a.parseLines(ctx, SplitEntries(batch))
		if err != nil {
			return nil, err
		}
		refs = append(refs, parsed...)
	}
	return refs, nil
}

func (a *AnyStyle) parseLines(ctx context.Context, lines []string) ([]reference.Parsed, error) {
	tmp, err := os.CreateTemp("", "refcheck-*.txt")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("writing temp file: %w", err)
	}

	out, err := a.run(ctx, tmp.Name())
	if err != nil {
		return nil, err
	}

	refs, err := DecodeEntries(out)
	if err != nil {
		return nil, err
	}

	paired := len(refs) == len(lines)
	if !paired {
		slog.Warn("parser output does not line up with input", "lines", len(lines), "entries", len(refs))
	}
	for i := range refs {
		if paired {
			refs[i].Text = lines[i]
		}
		refs[i] = refs[i].EnsureText()
	}
	return refs, nil
}

func (a *AnyStyle) run(ctx context.Context, path string) ([]byte, error) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := exec.LookPath(a.Command[0]); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrParserUnavailable, a.Command[0])
	}

	args := append(append([]string{}, a.Command[1:]...), "--stdout", "-f", "json", "parse", path)
	cmd := exec.CommandContext(ctx, a.Command[0], args...)
	output, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("anystyle timed out after %s", timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("anystyle error: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("anystyle error: %w", err)
	}
	return output, nil
}
