// Package files groups the data-file discovery packages.
//
//   - filesystem: Filesystem abstraction interfaces and implementations (OS and in-memory)
//   - scanner: Recursive discovery of *.json data files in a stable order
//
// # Usage
//
//	import (
//	    "github.com/vvka-141/sparketl/internal/files/filesystem"
//	    "github.com/vvka-141/sparketl/internal/files/scanner"
//	)
//
//	fileScanner := scanner.NewScanner()
//	result, err := fileScanner.ScanDirectory("data/song_data")
//
// Parsing the files is left to the records package.
package files
