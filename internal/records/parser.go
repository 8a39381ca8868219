package records

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vvka-141/sparketl/internal/files/filesystem"
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

const (
	initialLineBuffer = 64 * 1024
	maxLineBytes      = 16 * 1024 * 1024
)

// Parser reads JSON-lines files through a filesystem provider.
type Parser struct {
	fsProvider filesystem.FileSystemProvider
}

// NewParser creates a parser over the OS filesystem.
func NewParser() *Parser {
	return NewParserWithFS(filesystem.NewOSFileSystem())
}

// NewParserWithFS creates a parser with a custom filesystem provider.
// Panics if fsProvider is nil.
func NewParserWithFS(fsProvider filesystem.FileSystemProvider) *Parser {
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}
	return &Parser{fsProvider: fsProvider}
}

// ParseFile returns one record per non-blank line of path, in file order.
func (p *Parser) ParseFile(path string) ([]sparketl.Record, error) {
	rc, err := p.fsProvider.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", sparketl.ErrFilesystem, path, err)
	}
	defer rc.Close()

	return Decode(path, rc)
}

// Decode reads JSON-lines from r. path is used only for error reporting.
func Decode(path string, r io.Reader) ([]sparketl.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialLineBuffer), maxLineBytes)

	var records []sparketl.Record
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		fields, err := decodeObject(raw)
		if err != nil {
			return nil, &sparketl.ParseError{Path: path, Line: line, Err: err}
		}
		records = append(records, sparketl.Record{Path: path, Line: line, Fields: fields})
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, &sparketl.ParseError{Path: path, Line: line + 1, Err: err}
		}
		return nil, fmt.Errorf("%w: failed to read %s: %w", sparketl.ErrFilesystem, path, err)
	}

	return records, nil
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("expected a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return fields, nil
}

// Verify Parser implements the interface at compile time
var _ sparketl.RecordParser = (*Parser)(nil)
