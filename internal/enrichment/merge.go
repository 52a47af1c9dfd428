package enrichment

import (
	"slices"
	"strings"

	"marquee/internal/film"
	"marquee/internal/lookup"
	"marquee/internal/query"
)

// merge writes an accepted candidate's fields into rec. Each kind's fields are
// replaced together.
func merge(rec *film.Record, kind query.Kind, c *lookup.Candidate, confidence float64) {
	if c == nil {
		return
	}
	e := &rec.Enrichment
	switch kind {
	case query.KindMetadata:
		e.ExternalID = c.ExternalID
		e.IMDbID = c.Payload.IMDbID
		if e.IMDbID == "" && strings.HasPrefix(c.ExternalID, "tt") {
			e.IMDbID = c.ExternalID
		}
		e.MatchedTitle = c.Title
		e.ProductionCompanies = slices.Clone(c.Payload.ProductionCompanies)
		e.ProductionCompany = ""
		if len(e.ProductionCompanies) > 0 {
			e.ProductionCompany = e.ProductionCompanies[0]
		}
		e.Distributor = c.Payload.Distributor
		e.MetadataConfidence = confidence
	case query.KindVideo:
		e.TrailerURL = c.Payload.VideoURL
		e.TrailerTitle = c.Title
		e.TrailerConfidence = confidence
	}
}
