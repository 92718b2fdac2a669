// Package content holds document payloads behind a uniform streaming
// interface, fingerprints them for change detection, and tracks how many
// documents share each store so it can be cleaned up exactly once.
package content
