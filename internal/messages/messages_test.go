// internal/messages/messages_test.go
package messages

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue(t *testing.T) {
	q := NewQueue("a", "", "b")
	assert.Equal(t, 2, q.Len())

	assert.True(t, q.Add("c"))
	assert.False(t, q.Add(""))
	assert.Equal(t, 2, q.AddMany([]string{"d", "", "e\nf"}))

	snap := q.Snapshot()
	assert.Empty(t, cmp.Diff([]string{"a", "b", "c", "d", "e\nf"}, snap))

	// Snapshots are detached from the queue.
	snap[0] = "mutated"
	q.Add("g")
	assert.Equal(t, "a", q.Snapshot()[0])
	assert.Len(t, snap, 5)

	assert.Equal(t, 1, q.Replace([]string{"only"}))
	assert.Equal(t, []string{"only"}, q.Snapshot())

	q.Clear()
	assert.Zero(t, q.Len())
	assert.Empty(t, q.Snapshot())
}

func TestQueue_ConcurrentAdds(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Add("m")
				_ = q.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, q.Len())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"only blank lines", "\n\n  \n\t\n", nil},
		{"single line", "hello", []string{"hello"}},
		{"blank line separates", "one\n\ntwo\n", []string{"one", "two"}},
		{"consecutive lines join", "line 1\nline 2\n\nnext", []string{"line 1\nline 2", "next"}},
		{"runs of blank lines collapse", "a\n\n\n\nb", []string{"a", "b"}},
		{"trailing whitespace trimmed, indentation kept", "a  \t\n  b \r\n\r\nc", []string{"a\n  b", "c"}},
		{"unicode preserved", "I love you ❤️\n\n✨ 𝓘 ✨", []string{"I love you ❤️", "✨ 𝓘 ✨"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msgs.txt")
	require.NoError(t, os.WriteFile(path, []byte("first\n\nsecond\nline\n"), 0o600))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second\nline"}, got)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 50))
	assert.Equal(t, "abcde...", Preview("abcdefgh", 5))
	assert.Equal(t, "ab / cd", Preview("ab\ncd", 10))
	assert.Equal(t, "❤️❤️...", Preview(strings.Repeat("❤️", 10), 4))
	assert.Equal(t, "unbounded", Preview("unbounded", 0))
}
