// Package textutil provides text processing utilities for fingerprinting,
// similarity, and filename sanitization.
//
// Fingerprints are term-frequency vectors over lowercase letter/digit tokens.
// Two similarity measures are offered: cosine similarity over the frequency
// vectors and the overlap coefficient over the unique token sets. Both are
// symmetric and bounded to [0, 1].
package textutil
