package workspace

import (
	"path/filepath"
	"testing"
)

func TestResolvePath(t *testing.T) {
	root := t.TempDir()

	got, err := ResolvePath(root, "sub/file.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(root, "sub", "file.txt"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	got, err = ResolvePath(root, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != root {
		t.Fatalf("empty path should resolve to root, got %s", got)
	}
}

func TestResolvePathRejectsEscape(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"..", "../outside", "sub/../../outside", "/etc/passwd"} {
		if _, err := ResolvePath(root, p); err == nil {
			t.Fatalf("expected error for path %q", p)
		}
	}
}

func TestResolvePathNormalizesDotSegments(t *testing.T) {
	root := t.TempDir()
	got, err := ResolvePath(root, "a/./b/../c.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(root, "a", "c.txt"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
