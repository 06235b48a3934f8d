package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/theirongolddev/feaso/internal/model"
)

// FileSource reads a schedule from disk. Path is either a schedule file or
// a directory holding one <project>.yaml, .yml or .json file per project.
type FileSource struct {
	Path string
}

var extensions = []string{".yaml", ".yml", ".json"}

// LoadSchedule implements ScheduleSource.
func (f FileSource) LoadSchedule(_ context.Context, projectID string) ([]model.ScheduleTask, error) {
	path, err := f.resolve(projectID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading schedule: %w", err)
	}
	return Parse(data, formatOf(path))
}

// resolve returns the schedule file for projectID.
func (f FileSource) resolve(projectID string) (string, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, f.Path)
		}
		return "", err
	}
	if !info.IsDir() {
		return f.Path, nil
	}
	for _, ext := range extensions {
		candidate := filepath.Join(f.Path, projectID+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no schedule for %q in %s", ErrNotFound, projectID, f.Path)
}

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
