package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"notegenius/internal/modules/tracker/domain"
	trackerout "notegenius/internal/modules/tracker/port/out"
	"notegenius/internal/platform/markdown"
	"notegenius/internal/platform/slug"
)

const (
	noteSchemaVersion = 1
	indexStartMarker  = "<!-- notegenius:sessions:start -->"
	indexEndMarker    = "<!-- notegenius:sessions:end -->"
	indexMaxEntries   = 100
)

// MarkdownExporter writes one note per ended session and keeps a managed
// list of recent sessions in index.md.
type MarkdownExporter struct {
	mu  sync.Mutex
	dir string
}

func NewMarkdownExporter(dir string) *MarkdownExporter {
	return &MarkdownExporter{dir: dir}
}

var _ trackerout.SessionExporter = (*MarkdownExporter)(nil)

func (e *MarkdownExporter) Export(_ context.Context, s domain.Summary) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := s.StartTime.UTC()
	dir := filepath.Join(e.dir, "sessions", start.Format("2006"), start.Format("01"), start.Format("02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session note dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s.md", start.Format("150405"), slug.Make(string(s.Activity)))
	path := filepath.Join(dir, name)

	meta := map[string]any{
		"schema_version":   noteSchemaVersion,
		"id":               s.SessionID,
		"user_id":          s.UserID,
		"activity":         string(s.Activity),
		"started_at":       start.Format(time.RFC3339),
		"ended_at":         s.EndTime.UTC().Format(time.RFC3339),
		"duration_seconds": s.Duration,
		"paused_seconds":   s.PausedSeconds,
		"ended_by":         s.Reason,
	}
	body := fmt.Sprintf("# Study session %s\n\n- Activity: %s\n- Duration: %s\n- Paused: %s\n",
		start.Format("2006-01-02 15:04"), s.Activity, formatSeconds(s.Duration), formatSeconds(s.PausedSeconds))
	rendered, err := markdown.RenderFrontmatter(meta, body)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write session note: %w", err)
	}
	rel, err := filepath.Rel(e.dir, path)
	if err != nil {
		rel = path
	}
	if err := e.updateIndex(s, filepath.ToSlash(rel)); err != nil {
		return path, err
	}
	return path, nil
}

func (e *MarkdownExporter) updateIndex(s domain.Summary, rel string) error {
	path := filepath.Join(e.dir, "index.md")
	content := ""
	if raw, err := os.ReadFile(path); err == nil {
		content = string(raw)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read session index: %w", err)
	}
	meta, body, err := markdown.SplitFrontmatter(content)
	if err != nil {
		return err
	}
	if body == "" {
		body = "# Study sessions\n"
	}
	entry := fmt.Sprintf("- [%s %s](%s) %s", s.StartTime.UTC().Format("2006-01-02 15:04"), s.Activity, rel, formatSeconds(s.Duration))
	entries := []string{entry}
	for _, line := range strings.Split(markdown.ManagedBlock(body, indexStartMarker, indexEndMarker), "\n") {
		if strings.TrimSpace(line) == "" || strings.Contains(line, "]("+rel+")") {
			continue
		}
		entries = append(entries, line)
	}
	if len(entries) > indexMaxEntries {
		entries = entries[:indexMaxEntries]
	}
	meta["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	meta["sessions"] = len(entries)
	body = markdown.ReplaceManagedBlock(body, indexStartMarker, indexEndMarker, strings.Join(entries, "\n"))
	rendered, err := markdown.RenderFrontmatter(meta, body)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("write session index: %w", err)
	}
	return nil
}

func formatSeconds(seconds int) string {
	return (time.Duration(seconds) * time.Second).String()
}
