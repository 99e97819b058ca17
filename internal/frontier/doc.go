// Package frontier holds the crawl queue.
//
// Targets leave the Frontier in the order they entered it, which makes a
// recursive crawl breadth-first. Each normalized URL enters at most once
// per run. With a page limit, Next stops handing out targets once the
// limit is reached and whatever is left is reported by Pending.
//
// Rejects counts the distinct links a recursive crawl turned away as out
// of scope, in fixed memory.
package frontier
