// Package politeness keeps docmirror a well-behaved client.
//
// A Guard combines two checks that every outbound request goes through:
//
//   - Allowed consults robots.txt for the URL's host. Rules are fetched
//     once per host and cached; hosts whose robots.txt is missing,
//     unreachable or broken are treated as allowing everything.
//   - Wait and Done form a process-wide delay gate. A request starts only
//     after the configured delay has passed since the previous request
//     started and since it completed.
//
// The Guard owns all of this state; there are no package-level globals.
package politeness
