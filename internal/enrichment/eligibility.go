package enrichment

import (
	"fmt"
	"strings"

	"marquee/internal/classify"
	"marquee/internal/film"
	"marquee/internal/query"
)

// maxDirectorsForLookup is the largest credited-director count that still
// identifies a single film.
const maxDirectorsForLookup = 2

// ineligible returns a reason when rec should not be looked up for kind.
func ineligible(rec film.Record, kind query.Kind) (string, bool) {
	if strings.TrimSpace(rec.Title) == "" {
		return "record has no title", true
	}
	switch kind {
	case query.KindMetadata:
		if strings.Contains(rec.Title, "+") && strings.Contains(rec.Director, "/") {
			return "double-feature screening", true
		}
		if n := classify.CountDirectors(rec.Director); n > maxDirectorsForLookup {
			return fmt.Sprintf("program with %d directors", n), true
		}
	case query.KindVideo:
		if classify.IsShortProgram(rec) {
			return "shorts program", true
		}
	}
	return "", false
}
