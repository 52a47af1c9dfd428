// Package youtube implements the video lookup client against the YouTube Data
// API v3 search endpoint, plus the manual search URL recorded for every film.
package youtube
