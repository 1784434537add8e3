// File: cmd/input.go
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// maxLineSize matches the longest message line accepted from files.
const maxLineSize = 1024 * 1024

// lineReader owns an input stream and hands out its lines one at a time. Reads go
// through a channel so a caller blocked on input still notices cancellation.
type lineReader struct {
	lines chan string
	done  chan struct{}
	once  sync.Once
	err   error
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{lines: make(chan string), done: make(chan struct{})}
	go lr.scan(r)
	return lr
}

func (lr *lineReader) scan(r io.Reader) {
	defer close(lr.lines)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		select {
		case lr.lines <- strings.TrimRight(sc.Text(), "\r"):
		case <-lr.done:
			return
		}
	}
	// Read by ReadLine only after lines is closed.
	lr.err = sc.Err()
}

// ReadLine returns the next line, io.EOF once the input is exhausted, or ctx's error.
func (lr *lineReader) ReadLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-lr.lines:
		if !ok {
			if lr.err != nil {
				return "", lr.err
			}
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close releases the scanning goroutine unless it is blocked in a read.
func (lr *lineReader) Close() {
	lr.once.Do(func() { close(lr.done) })
}

// syncWriter serializes writes from the menu and the dispatch goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newSyncWriter(w io.Writer) *syncWriter {
	return &syncWriter{w: w}
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *syncWriter) Printf(format string, args ...any) {
	fmt.Fprintf(s, format, args...)
}

func (s *syncWriter) Println(args ...any) {
	fmt.Fprintln(s, args...)
}
