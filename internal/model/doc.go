// Package model defines the data structures shared by docmirror's components.
//
// This package contains the following main types:
//   - CrawlTarget: a URL scheduled for fetching, with its source and depth
//   - CrawlResult: the outcome of one fetch attempt
//   - ConvertedPage: the Markdown rendition of a page
//   - PageRecord: the retained per-page outcome
//   - Summary: the final run summary
//   - Plan and Run: state passed between pipeline steps
//
// Models live in their own package so fetcher, converter, crawler, report
// and database can share them without import cycles.
package model
