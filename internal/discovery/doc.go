// Package discovery finds the pages a crawl starts from.
//
// Three methods exist. Sitemap mode flattens an explicit sitemap (and any
// sitemap indexes below it) into a list of page URLs. Auto mode tries the
// sitemaps hinted in robots.txt and a handful of conventional locations,
// and falls back to recursive mode when none of them yields an in-scope
// page. Recursive mode seeds the crawl with the base URL alone and relies
// on links found in converted pages.
//
// Scope filters every discovered URL before it reaches the frontier.
package discovery
