package markdown_test

import (
	"strings"
	"testing"

	"notegenius/internal/platform/markdown"
)

func TestFrontmatterRoundTrip(t *testing.T) {
	t.Parallel()
	rendered, err := markdown.RenderFrontmatter(map[string]any{"id": "rec-1", "duration_seconds": 90}, "# Title\n")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	meta, body, err := markdown.SplitFrontmatter(rendered)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if meta["id"] != "rec-1" || meta["duration_seconds"] != 90 || body != "# Title\n" {
		t.Fatalf("unexpected round trip: %v %q", meta, body)
	}
}

func TestSplitFrontmatterEdgeCases(t *testing.T) {
	t.Parallel()
	meta, body, err := markdown.SplitFrontmatter("plain note\n")
	if err != nil || len(meta) != 0 || body != "plain note\n" {
		t.Fatalf("unexpected plain note result: %v %q %v", meta, body, err)
	}
	meta, body, err = markdown.SplitFrontmatter("---\r\n---\r\nbody\r\n")
	if err != nil || len(meta) != 0 || body != "body\n" {
		t.Fatalf("unexpected empty frontmatter result: %v %q %v", meta, body, err)
	}
	if _, _, err := markdown.SplitFrontmatter("---\nid: x\nno closing\n"); err == nil {
		t.Fatalf("expected missing separator to fail")
	}
}

func TestManagedBlock(t *testing.T) {
	t.Parallel()
	const start, end = "<!-- s -->", "<!-- e -->"

	body := markdown.ReplaceManagedBlock("# Index", start, end, "- one")
	if body != "# Index\n\n<!-- s -->\n- one\n<!-- e -->\n" {
		t.Fatalf("unexpected appended block %q", body)
	}
	body = markdown.ReplaceManagedBlock(body+"footer\n", start, end, "- two\n- one")
	if got := markdown.ManagedBlock(body, start, end); got != "- two\n- one" {
		t.Fatalf("unexpected block %q", got)
	}
	if !strings.HasSuffix(body, "footer\n") || strings.Count(body, start) != 1 {
		t.Fatalf("expected the block replaced in place, got %q", body)
	}
	if got := markdown.ManagedBlock("no block", start, end); got != "" {
		t.Fatalf("expected empty block, got %q", got)
	}
	if got := markdown.ReplaceManagedBlock("  ", start, end, "x"); got != "<!-- s -->\nx\n<!-- e -->\n" {
		t.Fatalf("unexpected block for empty body %q", got)
	}
}
