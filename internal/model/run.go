package model

import "github.com/nao1215/docmirror/internal/config"

// Plan is the output of URL discovery: the initial targets plus any
// sitemap failures that did not stop discovery.
type Plan struct {
	// Method is the resolved discovery method.
	// Auto resolves to sitemap or recursive.
	Method config.Method

	// Targets are the initial crawl targets in first-seen order.
	Targets []CrawlTarget

	// FollowLinks is true when links from converted pages feed the frontier.
	FollowLinks bool

	// Errors holds non-fatal sitemap failures.
	Errors []error
}

// Run carries state between pipeline steps.
type Run struct {
	// Config is the validated run configuration.
	Config *config.Config

	// Plan is set by the discover step.
	Plan *Plan

	// Summary is set by the crawl step. It is set even when the crawl is
	// cancelled.
	Summary *Summary

	// ID is the history database id, set by the record step. Zero if the
	// run was not recorded.
	ID int64
}

// NewRun creates a Run for cfg.
func NewRun(cfg *config.Config) *Run {
	return &Run{Config: cfg}
}
