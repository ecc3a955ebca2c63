// Package diff turns a file's unified patch into an addressable sequence of
// added lines. The hosting API anchors inline comments by position within the
// raw patch text, while the language model references added lines by ordinal;
// this package provides the bridge between the two coordinate systems.
package diff
