package filesystem

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (f *memoryFileInfo) Name() string       { return f.name }
func (f *memoryFileInfo) Size() int64        { return f.size }
func (f *memoryFileInfo) Mode() fs.FileMode  { return f.mode }
func (f *memoryFileInfo) ModTime() time.Time { return f.modTime }
func (f *memoryFileInfo) IsDir() bool        { return f.mode.IsDir() }
func (f *memoryFileInfo) Sys() interface{}   { return nil }

type memoryFile struct {
	absPath string
	relPath string
	content []byte
	info    *memoryFileInfo
	openErr error
	walkErr error
}

func (f *memoryFile) Path() string         { return f.absPath }
func (f *memoryFile) RelativePath() string { return f.relPath }
func (f *memoryFile) Info() FileInfo       { return f.info }

func (f *memoryFile) Open() (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	if f.info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", f.absPath)
	}
	return io.NopCloser(bytes.NewReader(f.content)), nil
}

type memoryDirectory struct {
	absPath string
	fs      *MemoryFileSystem
}

func (d *memoryDirectory) Path() string { return d.absPath }

func (d *memoryDirectory) Walk(fn func(File, error) error) error {
	entries := d.fs.entriesUnder(d.absPath)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].absPath < entries[j].absPath
	})

	for _, entry := range entries {
		var callbackErr error
		func() {
			defer func() {
				if r := recover(); r != nil {
					callbackErr = fmt.Errorf("walk callback panicked at %s: %v", entry.absPath, r)
				}
			}()

			if entry.walkErr != nil {
				callbackErr = fn(nil, fmt.Errorf("%s: %w", entry.absPath, entry.walkErr))
				return
			}
			rel := strings.TrimPrefix(strings.TrimPrefix(entry.absPath, d.absPath), "/")
			if rel == "" {
				rel = "."
			}
			callbackErr = fn(&memoryFile{
				absPath: entry.absPath,
				relPath: rel,
				content: entry.content,
				info:    entry.info,
				openErr: entry.openErr,
			}, nil)
		}()

		if callbackErr != nil {
			return callbackErr
		}
	}

	return nil
}

// MemoryFileSystem implements FileSystemProvider for in-memory testing.
// Paths are slash separated regardless of platform.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string]*memoryFile
	root  string
}

// NewMemoryFileSystem creates an in-memory filesystem rooted at root.
func NewMemoryFileSystem(root string) *MemoryFileSystem {
	root = path.Clean(filepath.ToSlash(root))

	mfs := &MemoryFileSystem{
		files: make(map[string]*memoryFile),
		root:  root,
	}
	mfs.files[root] = newMemoryDir(root)
	return mfs
}

func newMemoryDir(p string) *memoryFile {
	return &memoryFile{
		absPath: p,
		info: &memoryFileInfo{
			name:    path.Base(p),
			mode:    0755 | fs.ModeDir,
			modTime: time.Now(),
		},
	}
}

// Root returns the filesystem root.
func (mfs *MemoryFileSystem) Root() string {
	return mfs.root
}

// AddFile adds a file relative to the root, or at an absolute path.
func (mfs *MemoryFileSystem) AddFile(filePath string, content string) {
	mfs.AddFileWithTime(filePath, content, time.Now())
}

// AddFileWithTime adds a file with a specific modification time.
func (mfs *MemoryFileSystem) AddFileWithTime(filePath string, content string, modTime time.Time) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	absPath := mfs.resolve(filePath)
	data := []byte(content)
	mfs.files[absPath] = &memoryFile{
		absPath: absPath,
		content: data,
		info: &memoryFileInfo{
			name:    path.Base(absPath),
			size:    int64(len(data)),
			mode:    0644,
			modTime: modTime,
		},
	}
	mfs.ensureParents(absPath)
}

// AddDir adds an empty directory.
func (mfs *MemoryFileSystem) AddDir(dirPath string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	absPath := mfs.resolve(dirPath)
	if _, ok := mfs.files[absPath]; !ok {
		mfs.files[absPath] = newMemoryDir(absPath)
	}
	mfs.ensureParents(absPath)
}

// FailOpen makes every later attempt to open filePath return err.
func (mfs *MemoryFileSystem) FailOpen(filePath string, err error) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	if f, ok := mfs.files[mfs.resolve(filePath)]; ok {
		f.openErr = err
	}
}

// FailWalk makes a walk report err in place of the entry at entryPath.
func (mfs *MemoryFileSystem) FailWalk(entryPath string, err error) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	if f, ok := mfs.files[mfs.resolve(entryPath)]; ok {
		f.walkErr = err
	}
}

func (mfs *MemoryFileSystem) resolve(p string) string {
	p = filepath.ToSlash(p)
	if p == "" || p == "." {
		return mfs.root
	}
	if !path.IsAbs(p) {
		p = path.Join(mfs.root, p)
	}
	return path.Clean(p)
}

func (mfs *MemoryFileSystem) ensureParents(p string) {
	for dir := path.Dir(p); dir != "/" && dir != "."; dir = path.Dir(dir) {
		if _, exists := mfs.files[dir]; exists {
			return
		}
		mfs.files[dir] = newMemoryDir(dir)
	}
}

func (mfs *MemoryFileSystem) entriesUnder(base string) []*memoryFile {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	var entries []*memoryFile
	for p, file := range mfs.files {
		if p == base || base == "/" || strings.HasPrefix(p, base+"/") {
			entries = append(entries, file)
		}
	}
	return entries
}

func (mfs *MemoryFileSystem) lookup(p string) (*memoryFile, bool) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	f, ok := mfs.files[mfs.resolve(p)]
	return f, ok
}

// Open implements FileSystemProvider.Open
func (mfs *MemoryFileSystem) Open(openPath string) (Directory, error) {
	file, exists := mfs.lookup(openPath)
	if !exists {
		return nil, fmt.Errorf("failed to access path: %w", &fs.PathError{Op: "open", Path: openPath, Err: fs.ErrNotExist})
	}
	if !file.info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", openPath)
	}
	return &memoryDirectory{absPath: file.absPath, fs: mfs}, nil
}

// OpenFile implements FileSystemProvider.OpenFile
func (mfs *MemoryFileSystem) OpenFile(filePath string) (io.ReadCloser, error) {
	file, exists := mfs.lookup(filePath)
	if !exists {
		return nil, &fs.PathError{Op: "open", Path: filePath, Err: fs.ErrNotExist}
	}
	return file.Open()
}

// Stat implements FileSystemProvider.Stat
func (mfs *MemoryFileSystem) Stat(statPath string) (FileInfo, error) {
	file, exists := mfs.lookup(statPath)
	if !exists {
		return nil, &fs.PathError{Op: "stat", Path: statPath, Err: fs.ErrNotExist}
	}
	return file.info, nil
}
