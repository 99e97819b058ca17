// Package converter turns a fetched HTML page into a ConvertedPage: a
// title, a Markdown body and the same-site links the page points to.
//
// Links are collected from the whole document, navigation included, before
// site chrome (menus, headers, footers, sidebars) is stripped. The body is
// rendered from the main content region only.
//
// RenderDocument and ParseFrontmatter write and read the YAML frontmatter
// block that heads every output file.
package converter
