// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernal

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Storage is the host side of the disk and tape devices.
type Storage interface {
	// Open opens a file for reading. The name may contain '*' and '?'
	// wildcards. A missing file yields an error matching fs.ErrNotExist.
	Open(name string) (io.ReadCloser, error)

	// Create opens a file for writing, truncating it if it exists.
	Create(name string) (io.WriteCloser, error)

	// List returns the files in the store sorted by name.
	List() ([]Entry, error)
}

// An Entry describes one file in a Storage.
type Entry struct {
	Name string
	Size int64
	Dir  bool
}

// ErrInvalidName is returned for file names that would leave the storage
// directory.
var ErrInvalidName = errors.New("invalid file name")

// Check that a name refers to a file directly inside the storage
// directory.
func checkName(op, name string) error {
	if strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) {
		return &fs.PathError{Op: op, Path: name, Err: ErrInvalidName}
	}
	return nil
}

// DirStorage keeps files in a directory on the host.
type DirStorage struct {
	Dir string
}

func (s DirStorage) Open(name string) (io.ReadCloser, error) {
	if err := checkName("open", name); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.Dir, name))
	if err == nil {
		return f, nil
	}

	entries, derr := os.ReadDir(s.Dir)
	if derr != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() && match(name, e.Name()) {
			return os.Open(filepath.Join(s.Dir, e.Name()))
		}
	}
	return nil, err
}

func (s DirStorage) Create(name string) (io.WriteCloser, error) {
	if err := checkName("create", name); err != nil {
		return nil, err
	}
	return os.Create(filepath.Join(s.Dir, name))
}

func (s DirStorage) List() ([]Entry, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}

	list := make([]Entry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		entry := Entry{Name: e.Name(), Dir: e.IsDir()}
		if !entry.Dir {
			entry.Size = info.Size()
		}
		list = append(list, entry)
	}
	return list, nil
}

// MapStorage keeps files in memory. It is safe for concurrent use.
type MapStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMapStorage creates an empty in-memory store.
func NewMapStorage() *MapStorage {
	return &MapStorage{files: make(map[string][]byte)}
}

// Put stores a copy of data under name.
func (s *MapStorage) Put(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = append([]byte(nil), data...)
}

// Get returns the contents of a file.
func (s *MapStorage) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[name]
	return b, ok
}

func (s *MapStorage) Open(name string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.files[name]; ok {
		return io.NopCloser(bytes.NewReader(b)), nil
	}

	names := make([]string, 0, len(s.files))
	for n := range s.files {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if match(name, n) {
			return io.NopCloser(bytes.NewReader(s.files[n])), nil
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

func (s *MapStorage) Create(name string) (io.WriteCloser, error) {
	return &mapFile{s: s, name: name}, nil
}

func (s *MapStorage) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]Entry, 0, len(s.files))
	for n, b := range s.files {
		list = append(list, Entry{Name: n, Size: int64(len(b))})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list, nil
}

// A mapFile commits its contents to the store when closed.
type mapFile struct {
	s    *MapStorage
	name string
	buf  bytes.Buffer
}

func (f *mapFile) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

func (f *mapFile) Close() error {
	f.s.Put(f.name, f.buf.Bytes())
	return nil
}

// Report whether a host file name matches a file name pattern. Matching
// ignores case.
func match(pattern, name string) bool {
	ok, err := path.Match(strings.ToUpper(pattern), strings.ToUpper(name))
	return err == nil && ok
}
