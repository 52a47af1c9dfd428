// Package tmdb implements the metadata lookup client against The Movie
// Database v3 API: title search with a release-year filter and a detail fetch
// that fills production companies and the IMDb identifier.
package tmdb
