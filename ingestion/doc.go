// Package ingestion loads operation breakdown datasets into a local corpus
// store.
//
// An Importer reads flat operation rows and allocations, groups the rows
// into breakdowns and writes them in batches. Each source is fingerprinted
// so that re-importing an unchanged file is a no-op.
package ingestion
