// Package fsops implements the file browser operations exposed by the API:
// directory listing, size-capped reads, writes, create, rename and delete.
package fsops

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidPath  = errors.New("invalid path")
	ErrFileTooLarge = errors.New("file too large")
)

// FileEntry describes one directory entry
type FileEntry struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	IsDir    bool      `json:"is_dir"`
}

// Ops performs filesystem operations with a read size cap
type Ops struct {
	maxReadBytes int64
}

// New creates an Ops with the given read cap. A cap of 0 disables the limit.
func New(maxReadBytes int64) *Ops {
	return &Ops{maxReadBytes: maxReadBytes}
}

// cleanPath rejects NUL bytes and empty paths, then normalizes
func cleanPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("%w: NUL byte in path", ErrInvalidPath)
	}
	return filepath.Clean(path), nil
}

// List returns the entries of a directory, directories first, each group
// sorted by name.
func (o *Ops) List(dir string) ([]FileEntry, error) {
	dir, err := cleanPath(dir)
	if err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	entries := make([]FileEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			// Entry disappeared between ReadDir and Info
			continue
		}
		entries = append(entries, FileEntry{
			Name:     de.Name(),
			Path:     filepath.Join(dir, de.Name()),
			Size:     info.Size(),
			Modified: info.ModTime(),
			IsDir:    de.IsDir(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Read returns the contents of a file, failing if it exceeds the read cap
func (o *Ops) Read(path string) ([]byte, error) {
	path, err := cleanPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if o.maxReadBytes > 0 {
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat file: %w", err)
		}
		if info.Size() > o.maxReadBytes {
			return nil, fmt.Errorf("%w: %d bytes exceeds cap of %d", ErrFileTooLarge, info.Size(), o.maxReadBytes)
		}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Write replaces the contents of a file, creating it if needed
func (o *Ops) Write(path string, data []byte) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Create creates an empty file or a directory at path
func (o *Ops) Create(path string, isDir bool) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}

	if isDir {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return f.Close()
}

// Delete removes a file or directory tree
func (o *Ops) Delete(path string) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// Rename moves a file or directory
func (o *Ops) Rename(oldPath, newPath string) error {
	oldPath, err := cleanPath(oldPath)
	if err != nil {
		return err
	}
	newPath, err = cleanPath(newPath)
	if err != nil {
		return err
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("failed to rename: %w", err)
	}
	return nil
}
