package sparketl

import (
	"iter"
	"time"
)

// FileWalker discovers data files under a root directory.
// Implementations must be safe for concurrent use by multiple goroutines.
type FileWalker interface {
	// Walk lazily yields every matching file under root in a stable order.
	// A walk error is yielded once and ends the sequence.
	Walk(root string) iter.Seq2[FileMetadata, error]

	// ScanDirectory drains Walk into a FileScanResult.
	ScanDirectory(root string) (FileScanResult, error)
}

// FileScanResult contains the results of scanning a directory.
type FileScanResult struct {
	Root  string
	Files []FileMetadata
}

// FileMetadata describes one discovered data file.
type FileMetadata struct {
	Path         string // Absolute path
	RelativePath string // Path relative to the scan root, forward slashes
	Name         string
	SizeBytes    int64
	ModifiedAt   time.Time
}

// RecordParser decodes a JSON-lines file.
type RecordParser interface {
	// ParseFile returns one Record per non-blank line, in file order.
	// Any malformed line fails the whole file.
	ParseFile(path string) ([]Record, error)
}
