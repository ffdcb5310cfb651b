// -----------------------------------------------------------------------
// Filesystem media storage - binary asset persistence for generated media
// -----------------------------------------------------------------------

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/storymill/storymill/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// FilesystemStorage implements the MediaStorage interface on the local
// filesystem. Assets live under <root>/<projectID>/<category>/<filename> and
// the returned URL is the file path relative to the media root.
type FilesystemStorage struct {
	root   string
	logger arbor.ILogger
}

// NewFilesystemStorage creates a new filesystem media store rooted at dir.
func NewFilesystemStorage(dir string, logger arbor.ILogger) (*FilesystemStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("media directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &FilesystemStorage{root: dir, logger: logger}, nil
}

func (s *FilesystemStorage) path(projectID, category, filename string) (string, error) {
	for _, part := range []string{projectID, category, filename} {
		if part == "" || strings.Contains(part, "..") || strings.ContainsRune(part, os.PathSeparator) {
			return "", fmt.Errorf("invalid media path segment: %q", part)
		}
	}
	return filepath.Join(s.root, projectID, category, filename), nil
}

// Save writes an asset and returns its URL.
func (s *FilesystemStorage) Save(ctx context.Context, projectID, category, filename string, data []byte) (string, error) {
	path, err := s.path(projectID, category, filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create asset directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write asset: %w", err)
	}

	s.logger.Debug().
		Str("project_id", projectID).
		Str("category", category).
		Str("filename", filename).
		Int("bytes", len(data)).
		Msg("Media asset saved")

	return filepath.ToSlash(filepath.Join("/media", projectID, category, filename)), nil
}

// Exists reports whether an asset is present.
func (s *FilesystemStorage) Exists(ctx context.Context, projectID, category, filename string) (bool, error) {
	path, err := s.path(projectID, category, filename)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Read returns an asset's bytes.
func (s *FilesystemStorage) Read(ctx context.Context, projectID, category, filename string) ([]byte, error) {
	path, err := s.path(projectID, category, filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset: %w", err)
	}
	return data, nil
}

// Delete removes an asset. Deleting an absent asset is not an error.
func (s *FilesystemStorage) Delete(ctx context.Context, projectID, category, filename string) error {
	path, err := s.path(projectID, category, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}

// Root returns the media root directory.
func (s *FilesystemStorage) Root() string {
	return s.root
}

var _ interfaces.MediaStorage = (*FilesystemStorage)(nil)
