package workspace

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolvePath resolves p against the workspace root and rejects anything
// that escapes it.
func ResolvePath(root, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return root, nil
	}
	abs := p
	if !filepath.IsAbs(p) {
		abs = filepath.Join(root, p)
	}
	abs = filepath.Clean(abs)
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes the workspace: %s", p)
	}
	return abs, nil
}
