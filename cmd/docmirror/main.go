// Package main provides the entry point for the docmirror CLI.
//
// docmirror mirrors a documentation site into a tree of Markdown files with
// YAML frontmatter, discovering pages from the site's sitemap or by
// following same-site links.
//
// Usage:
//
//	docmirror crawl https://docs.example.com
//	docmirror crawl -m sitemap -s https://docs.example.com/sitemap.xml docs.example.com
//	docmirror history
//
// See --help for all available options.
package main

// main is the entry point for docmirror.
func main() {
	Execute()
}
