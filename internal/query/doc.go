// Package query turns raw lineup titles into canonical lookup queries.
//
// Normalize is pure and idempotent: the same title and year always produce the
// same NormalizedQuery, and feeding a canonical title back in returns it
// unchanged. The query's Key is the identity used by the lookup cache.
package query
