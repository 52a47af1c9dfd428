// Package classify derives lineup categories (shorts programs, restorations,
// introduced screenings) and a 0-100 distribution likelihood score from a
// film record and whatever enrichment it carries.
package classify
