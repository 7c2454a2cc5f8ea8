package parser

import (
	"strings"
	"unicode/utf8"
)

// SplitEntries splits raw text into one reference per non-blank line.
func SplitEntries(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Chunk splits raw into pieces of at most size bytes, preferring to cut at a
// blank line, then at a line break, so that a reference is not split. A cut
// point in the first half of a window is ignored. A single line longer than
// size is cut on a rune boundary.
func Chunk(raw string, size int) []string {
	if size <= 0 || len(raw) <= size {
		if s := strings.TrimSpace(raw); s != "" {
			return []string{s}
		}
		return nil
	}

	var chunks []string
	for start := 0; start < len(raw); {
		end := min(start+size, len(raw))
		if end < len(raw) {
			window := raw[start:end]
			cut := strings.LastIndex(window, "\n\n")
			if cut <= size/2 {
				cut = strings.LastIndex(window, "\n")
			}
			if cut > size/2 {
				end = start + cut
			}
			for end > start+1 && !utf8.RuneStart(raw[end]) {
				end--
			}
		}
		if s := strings.TrimSpace(raw[start:end]); s != "" {
			chunks = append(chunks, s)
		}
		start = end
	}
	return chunks
}
