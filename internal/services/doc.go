// Package services defines shared utilities consumed by the enrichment
// pipeline and its external lookup clients.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, film slugs, and lookup kinds for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified as transient (retry on a later run) or permanent.
//
// Use these helpers when wiring new lookup sources so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
