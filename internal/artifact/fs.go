package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"brdwizard/internal/export"
	"brdwizard/internal/logging"
)

// FS writes artifacts as files under a root directory.
// Existing files with the same name are replaced.
type FS struct {
	root string
}

// NewFS returns a filesystem sink rooted at root, creating it if needed.
func NewFS(root string) (*FS, error) {
	if root == "" {
		return nil, fmt.Errorf("export directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &FS{root: root}, nil
}

func (s *FS) Driver() Driver { return DriverFilesystem }

// Root returns the directory artifacts are written to.
func (s *FS) Root() string { return s.root }

// sanitizeName keeps artifact names inside root.
func sanitizeName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("empty artifact name")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return name, nil
}

// Put writes art atomically and returns the file path.
func (s *FS) Put(ctx context.Context, art export.Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := sanitizeName(art.Name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.root, name)

	tmp, err := os.CreateTemp(s.root, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(art.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to place %s: %w", name, err)
	}

	logging.Export("Wrote %s (%d bytes)", path, len(art.Body))
	return path, nil
}
