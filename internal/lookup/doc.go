// Package lookup defines the contract shared by the external search clients
// (metadata and video), the failure taxonomy they report, and the politeness
// and retry machinery every client call passes through.
//
// Clients live in subpackages (tmdb, omdb, youtube) and only translate between
// HTTP payloads and Candidates. Guard wraps any Searcher with a process-wide
// Throttle and a RetryPolicy so callers never talk to a service directly.
package lookup
