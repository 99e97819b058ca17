// Package crawler runs a documentation crawl.
//
// # Architecture
//
// The Orchestrator owns the crawl loop. A single goroutine takes targets
// from the frontier one at a time, fetches them through the politeness
// gate, converts the HTML to Markdown, and in recursive mode enqueues the
// in-scope links it found. Converted pages are handed over a buffered
// channel to the writer stage, a second goroutine that maps each page to
// a file path, renders the frontmatter, and writes the file.
//
// Because the writer stage is one FIFO consumer, files are written in the
// order their URLs left the frontier, and it is the only code that
// touches the path registry and the summary while the crawl runs.
//
// # Cancellation
//
// Cancelling the context stops the loop before the next target. Pages
// already queued for writing are still written, and the URLs left in the
// frontier are reported as pending.
//
// # Usage
//
//	orch := crawler.NewOrchestrator(fetch, conv, mapper, writer,
//		crawler.WithMaxPages(100),
//		crawler.WithScope(scope),
//	)
//	summary, err := orch.Run(ctx, plan)
package crawler
