// Package preflight provides readiness checks for the filesystem paths and
// credentials marquee depends on.
//
// The enrich command calls RunAll before touching the network and refuses to
// start when a directory check fails. "marquee status" prints every result.
//
// Each credential check is gated by its lookup kind; disabled kinds are skipped.
package preflight
