// Package output maps page URLs to file paths under the output directory
// and writes the converted documents there.
//
// Mapper turns a URL path into a relative Markdown path that mirrors the
// site structure, and keeps a registry so two different URLs never share
// a file, even on case-insensitive file systems. Writer creates parent
// directories on demand and writes the files.
package output
