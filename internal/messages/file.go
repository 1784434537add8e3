// internal/messages/file.go
package messages

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mitchellh/go-homedir"
)

// maxLineSize bounds a single line of an imported file.
const maxLineSize = 1 << 20

// Parse reads messages separated by one or more blank lines. Consecutive non-blank
// lines form one multi-line message joined with "\n". Trailing whitespace is trimmed
// from every line; leading indentation is kept.
func Parse(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		out     []string
		current []string
	)
	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, "\n"))
			current = current[:0]
		}
	}

	for sc.Scan() {
		line := strings.TrimRightFunc(sc.Text(), unicode.IsSpace)
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	flush()
	return out, nil
}

// LoadFile parses the messages in path. A leading "~" is expanded.
func LoadFile(path string) ([]string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to open message file: %w", err)
	}
	defer f.Close()

	msgs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", expanded, err)
	}
	return msgs, nil
}

// Preview shortens msg to its first n runes followed by "..." and flattens line breaks,
// for one-line listings.
func Preview(msg string, n int) string {
	flat := strings.ReplaceAll(msg, "\n", " / ")
	if n <= 0 || utf8.RuneCountInString(flat) <= n {
		return flat
	}
	runes := []rune(flat)
	return string(runes[:n]) + "..."
}
