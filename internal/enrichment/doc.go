// Package enrichment runs the lookup pipeline over a batch of film records.
//
// For every film and every enabled lookup kind the orchestrator normalizes the
// title into a cache key, serves the answer from the cache when it can, and
// otherwise asks the external service, scores the candidates, stores the
// outcome, and merges an accepted match into the record. Films run on a
// bounded worker pool; the two kinds of one film run side by side. Output
// order always matches input order.
//
// A failure on one film never aborts the batch. Lookups that fail are
// reported as errors in the Summary and are not cached, so the next run tries
// again; confirmed no-matches are cached and reported separately.
package enrichment
