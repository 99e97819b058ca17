// Package pipeline runs a crawl as a sequence of steps.
//
// A run passes through three steps: DiscoverStep builds the crawl plan,
// CrawlStep fetches, converts and writes the pages, and RecordStep stores
// the outcome in the history database. Each step reads and extends the
// shared model.Run.
//
// Steps added with AddFinalStep run even after an earlier step failed or
// the context was cancelled, so an interrupted crawl is still recorded.
package pipeline
