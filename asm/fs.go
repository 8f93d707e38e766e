// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// A FileSystem provides the file access the assembler needs.
type FileSystem interface {
	ReadText(path string) (string, error)
	WriteFile(path string, b []byte) error
	FileSize(path string) (int64, error)
	Open(path string) (io.ReadCloser, error)
	Exists(path string) bool
}

// OSFileSystem is a FileSystem backed by the operating system.
type OSFileSystem struct{}

// ReadText reads an entire text file.
func (OSFileSystem) ReadText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading '%s'", path)
	}
	return string(b), nil
}

// WriteFile creates or truncates a file and writes b to it.
func (OSFileSystem) WriteFile(path string, b []byte) error {
	if err := os.WriteFile(path, b, 0644); err != nil {
		return errors.Wrapf(err, "writing '%s'", path)
	}
	return nil
}

// FileSize returns the size of a file in bytes.
func (OSFileSystem) FileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrapf(err, "examining '%s'", path)
	}
	return fi.Size(), nil
}

// Open opens a file for reading.
func (OSFileSystem) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening '%s'", path)
	}
	return f, nil
}

// Exists returns true if the path names an existing file.
func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// MemFileSystem is a FileSystem held in memory. It is safe for
// concurrent use.
type MemFileSystem struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemFileSystem creates an in-memory file system holding the given
// files.
func NewMemFileSystem(files map[string][]byte) *MemFileSystem {
	fs := &MemFileSystem{files: make(map[string][]byte)}
	for k, v := range files {
		fs.files[filepath.Clean(k)] = v
	}
	return fs
}

var errNotExist = errors.New("file does not exist")

func (fs *MemFileSystem) get(path string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	b, ok := fs.files[filepath.Clean(path)]
	if !ok {
		return nil, errors.Wrapf(errNotExist, "'%s'", path)
	}
	return b, nil
}

func (fs *MemFileSystem) ReadText(path string) (string, error) {
	b, err := fs.get(path)
	return string(b), err
}

func (fs *MemFileSystem) WriteFile(path string, b []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[filepath.Clean(path)] = append([]byte(nil), b...)
	return nil
}

func (fs *MemFileSystem) FileSize(path string) (int64, error) {
	b, err := fs.get(path)
	return int64(len(b)), err
}

func (fs *MemFileSystem) Open(path string) (io.ReadCloser, error) {
	b, err := fs.get(path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (fs *MemFileSystem) Exists(path string) bool {
	_, err := fs.get(path)
	return err == nil
}

// Files returns the sorted paths of all files.
func (fs *MemFileSystem) Files() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	paths := make([]string, 0, len(fs.files))
	for k := range fs.files {
		paths = append(paths, k)
	}
	sort.Strings(paths)
	return paths
}
