package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rohmanhakim/site-auditor/pkg/failure"
)

// GetFileExtension extracts the file extension from a path, or empty string if none
func GetFileExtension(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}
	return strings.TrimPrefix(ext, ".")
}

// EnsureDir checks if a given directory plus the following path exists, then creates one if not
func EnsureDir(dir string, path ...string) failure.ClassifiedError {
	targetPath := []string{dir}
	targetPath = append(targetPath, path...)

	target := filepath.Join(targetPath...)
	if err := os.MkdirAll(target, 0755); err != nil {
		return &FileError{
			Message:   fmt.Sprintf("%v", err),
			Retryable: false,
			Cause:     ErrCausePathError,
		}
	}
	return nil
}

// WriteFile writes data to dir/name, creating parent directories as needed.
func WriteFile(dir, name string, data []byte) failure.ClassifiedError {
	if err := EnsureDir(dir); err != nil {
		return err
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, data, 0644); err != nil {
		return &FileError{
			Message:   fmt.Sprintf("%v", err),
			Retryable: false,
			Cause:     ErrCauseWriteError,
		}
	}
	return nil
}
