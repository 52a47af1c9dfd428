// Package main hosts the marquee CLI entrypoint and command graph.
//
// The Cobra command tree loads a scraped festival lineup, runs the enrichment
// orchestrator against the configured metadata and trailer services, and
// writes the merged lineup through the exporters. Cache maintenance and
// configuration scaffolding live alongside as small subcommands.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it here through a command or flag.
package main
