// Package watch implements the polling loop at the heart of the watcher.
//
// Each iteration probes the remote branch tip, compares it against the last
// synchronized baseline, and converges the local checkout when they differ.
// The baseline advances only after a confirmed successful sync, so a failed
// pull is retried on every subsequent poll until it succeeds.
package watch
