package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cwz-bot/reference-check/internal/reference"
)

// ReadJSON reads pre-parsed references from r: a JSON array, or one JSON
// object per line.
func ReadJSON(r io.Reader) ([]reference.Parsed, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading parsed references: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var refs []reference.Parsed
	if data[0] == '[' {
		if refs, err = DecodeEntries(data); err != nil {
			return nil, err
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(data))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var e Entry
			if err := json.Unmarshal(line, &e); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			refs = append(refs, e.Parsed())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("scanning parsed references: %w", err)
		}
	}

	for i := range refs {
		refs[i] = refs[i].EnsureText()
	}
	return refs, nil
}

// ReadJSONFile reads pre-parsed references from path.
func ReadJSONFile(path string) ([]reference.Parsed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening parsed references: %w", err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// WriteJSONL writes one reference per line, the format ReadJSON accepts.
func WriteJSONL(w io.Writer, refs []reference.Parsed) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, p := range refs {
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encoding reference: %w", err)
		}
	}
	return nil
}
