// Package history provides the types for "today in history" entries.
//
// An Event is one dated line from the Baidu Baike events feed. A Feed indexes
// events by zero-padded month ("10") and month-day key ("1015"), which is the
// shape the upstream document uses. The package also formats the reply text
// that gets drawn into the day image.
package history
