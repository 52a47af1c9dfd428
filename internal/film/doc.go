// Package film defines the lineup record model shared by the enrichment
// pipeline, the classifier, and the exporters, and loads scraper output from
// JSON or YAML files.
//
// Scraped fields are owned by the scraper. Pipeline stages only write into
// Enrichment and Classification.
package film
