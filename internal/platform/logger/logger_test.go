package logger_test

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"notegenius/internal/platform/logger"
)

// lockedBuffer lets concurrent writers share one buffer under the race detector.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Split(strings.TrimRight(b.buf.String(), "\n"), "\n")
}

func TestEntryIsOneKeyValueLine(t *testing.T) {
	t.Parallel()
	out := &lockedBuffer{}
	log := logger.New(out, false)

	log.Warn("remote session write failed", "update", errors.New("offline"), map[string]any{"session": "rec-1", "attempt": 2})
	log.Debug("hidden without debug")

	lines := out.lines()
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", lines)
	}
	for _, want := range []string{"[WARN]", "notegenius: remote session write failed", "v0=update", "error=offline", "attempt=2", "session=rec-1"} {
		if !strings.Contains(lines[0], want) {
			t.Fatalf("expected %q in %q", want, lines[0])
		}
	}
}

func TestConcurrentEntriesDoNotInterleave(t *testing.T) {
	t.Parallel()
	out := &lockedBuffer{}
	log := logger.New(out, true)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Debug("route change", "study->study", i)
		}()
	}
	wg.Wait()

	lines := out.lines()
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, "[DEBUG]") || !strings.Contains(line, "v0=study->study") {
			t.Fatalf("mangled line %q", line)
		}
	}
}
