// ABOUTME: Defines the Terminal interface for raw mode, restoration, size queries, and output.
// ABOUTME: Abstracts the controlling terminal so the relay can run against a real or virtual one.

package terminal

// Terminal abstracts the controlling terminal the relay owns: entering raw
// mode, restoring the saved attributes, size queries and output.
type Terminal interface {
	EnterRawMode() error
	// Restore reapplies the attributes saved by EnterRawMode. Calling it
	// again, or without a prior EnterRawMode, is a no-op returning nil.
	Restore() error
	Size() (cols, rows int, err error)
	Write(p []byte) (n int, err error)
}
