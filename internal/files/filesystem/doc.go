// Package filesystem abstracts the directory trees that hold song and log data.
//
// Two providers are available:
//   - OSFileSystem: the real filesystem, walked in lexical order
//   - MemoryFileSystem: an in-memory tree for tests, with optional fault injection
//
// Files are opened as streams so that large event logs can be parsed line by line.
package filesystem
