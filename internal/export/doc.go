// Package export writes an enriched lineup as JSON, CSV (one row per
// showtime), and a Markdown table.
package export
