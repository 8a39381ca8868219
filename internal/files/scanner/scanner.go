package scanner

import (
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	"github.com/vvka-141/sparketl/internal/files/filesystem"
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// errStopWalk aborts a directory walk when the consumer stops iterating.
var errStopWalk = errors.New("stop walk")

// Scanner discovers data files by extension.
// Scanner is safe for concurrent use by multiple goroutines as long as
// the provided fsProvider is also thread-safe.
type Scanner struct {
	fsProvider filesystem.FileSystemProvider
	extension  string
}

// NewScanner creates a scanner over the OS filesystem matching *.json files.
func NewScanner() *Scanner {
	return NewScannerWithFS(filesystem.NewOSFileSystem())
}

// NewScannerWithFS creates a scanner with a custom filesystem provider.
// Panics if fsProvider is nil.
func NewScannerWithFS(fsProvider filesystem.FileSystemProvider) *Scanner {
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}
	return &Scanner{
		fsProvider: fsProvider,
		extension:  sparketl.DataFileExtension,
	}
}

// Walk yields every data file under root in lexical path order.
// Directories, dotfiles and files with other extensions are skipped. The
// extension match is case-sensitive, so TRA.JSON is not a data file. An unreadable root or subtree is yielded as a
// single error wrapping sparketl.ErrFilesystem, after which the sequence ends.
func (s *Scanner) Walk(root string) iter.Seq2[sparketl.FileMetadata, error] {
	return func(yield func(sparketl.FileMetadata, error) bool) {
		dir, err := s.fsProvider.Open(root)
		if err != nil {
			yield(sparketl.FileMetadata{}, fmt.Errorf("%w: failed to open directory %s: %w", sparketl.ErrFilesystem, root, err))
			return
		}

		walkErr := dir.Walk(func(file filesystem.File, err error) error {
			if err != nil {
				return fmt.Errorf("%w: error walking %s: %w", sparketl.ErrFilesystem, root, err)
			}
			if file.Info().IsDir() || !s.matches(file.Info().Name()) {
				return nil
			}
			if !yield(toMetadata(file), nil) {
				return errStopWalk
			}
			return nil
		})

		if walkErr != nil && !errors.Is(walkErr, errStopWalk) {
			yield(sparketl.FileMetadata{}, walkErr)
		}
	}
}

// ScanDirectory collects every data file under root.
func (s *Scanner) ScanDirectory(root string) (sparketl.FileScanResult, error) {
	result := sparketl.FileScanResult{Root: root}
	for meta, err := range s.Walk(root) {
		if err != nil {
			return sparketl.FileScanResult{}, err
		}
		result.Files = append(result.Files, meta)
	}
	return result, nil
}

func (s *Scanner) matches(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return filepath.Ext(name) == s.extension
}

func toMetadata(file filesystem.File) sparketl.FileMetadata {
	info := file.Info()
	return sparketl.FileMetadata{
		Path:         file.Path(),
		RelativePath: file.RelativePath(),
		Name:         info.Name(),
		SizeBytes:    info.Size(),
		ModifiedAt:   info.ModTime(),
	}
}

// Verify Scanner implements the interface at compile time
var _ sparketl.FileWalker = (*Scanner)(nil)
