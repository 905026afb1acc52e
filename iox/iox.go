// Package iox provides cleanup helpers and a rate-limited reader.
package iox

import "io"

// DiscardClose closes c and discards the error.
// Use in defer statements where close errors are unactionable:
//
//	defer iox.DiscardClose(f)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c, for t.Cleanup
// or for handing a release func back to a caller:
//
//	return reporter, iox.CloseFunc(reporter)
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

