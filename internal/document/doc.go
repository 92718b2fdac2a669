// Package document defines the immutable unit of content that flows through
// pipelines, together with the factory that owns document lifetimes.
//
// A Document never changes after construction. Derive returns a new Document
// that shares the unmodified metadata layers and, unless new content is
// supplied, the original content store.
package document
