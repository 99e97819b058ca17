package converter

import "errors"

var (
	// ErrConversion is returned alongside a fallback page when the HTML
	// could not be parsed or rendered. The page body then holds the raw HTML.
	ErrConversion = errors.New("conversion error")

	// ErrFrontmatter is returned by ParseFrontmatter for documents without
	// a well-formed frontmatter block.
	ErrFrontmatter = errors.New("invalid frontmatter")
)
