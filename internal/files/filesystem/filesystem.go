package filesystem

import (
	"io"
	"io/fs"
)

// FileInfo is an alias for fs.FileInfo from the standard library.
type FileInfo = fs.FileInfo

// File is a single entry produced while walking a Directory.
type File interface {
	// Path returns the absolute path to the file
	Path() string

	// RelativePath returns the path relative to the walked root, slash separated
	RelativePath() string

	// Info returns file metadata
	Info() FileInfo

	// Open returns a stream over the file's content. The caller closes it.
	Open() (io.ReadCloser, error)
}

// Directory is a root that can be traversed to discover data files.
type Directory interface {
	// Path returns the absolute path to the directory
	Path() string

	// Walk visits every entry under the directory in lexical path order.
	// A non-nil error passed to fn describes an entry that could not be visited.
	// If fn returns an error, walking stops and Walk returns that error.
	Walk(fn func(File, error) error) error
}

// FileSystemProvider opens directories and files by path.
type FileSystemProvider interface {
	// Open opens a directory at the specified path
	Open(path string) (Directory, error)

	// OpenFile opens a regular file for streaming reads
	OpenFile(path string) (io.ReadCloser, error)

	// Stat returns file information for the given path
	Stat(path string) (FileInfo, error)
}
