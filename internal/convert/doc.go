// Package convert implements the page-to-document pipeline: chapter
// discovery, page ordering, bounded-concurrency image decoding, and
// multi-page PDF assembly.
package convert
