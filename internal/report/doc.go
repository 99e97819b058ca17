// Package report renders crawl summaries and run history.
//
// Writers implement the Writer interface and differ only in format:
//   - TextWriter: aligned plain text for the terminal
//   - MarkdownWriter: tables, a mermaid outcome chart and alerts
//   - JSONWriter: structured output for tool integration
//
// HistoryWriter renders the history command's listings and diffs in the
// same three formats.
package report
