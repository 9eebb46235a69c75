// Package feed fetches and decodes the Baidu Baike "events on history" feed.
//
// The upstream document is nominally JSON, but entry titles and descriptions
// carry raw HTML anchors and unescaped double quotes. Clean repairs the body
// with a fixed sequence of scrubbing passes before it is handed to
// encoding/json, and Parse reduces titles to plain text afterwards.
package feed
