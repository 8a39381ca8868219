// Package scanner discovers JSON data files in a directory tree.
//
// The scanner is filesystem-agnostic through filesystem.FileSystemProvider,
// so production code walks the OS filesystem while tests use an in-memory tree.
// Files are yielded lazily in lexical path order, which makes every run over
// the same tree process files in the same sequence.
package scanner
