package film

import "strconv"

// Showtime is one scheduled screening of a film.
type Showtime struct {
	Date      string   `json:"date" yaml:"date"`
	Time      string   `json:"time" yaml:"time"`
	Venue     string   `json:"venue,omitempty" yaml:"venue,omitempty"`
	Notes     []string `json:"notes,omitempty" yaml:"notes,omitempty"`
	Available bool     `json:"available" yaml:"available"`
	RawText   string   `json:"raw_text,omitempty" yaml:"raw_text,omitempty"`
}

// Enrichment holds facts resolved from external services. Each kind's fields
// are written together or not at all.
type Enrichment struct {
	ExternalID          string   `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	IMDbID              string   `json:"imdb_id,omitempty" yaml:"imdb_id,omitempty"`
	MatchedTitle        string   `json:"matched_title,omitempty" yaml:"matched_title,omitempty"`
	ProductionCompany   string   `json:"production_company,omitempty" yaml:"production_company,omitempty"`
	ProductionCompanies []string `json:"production_companies,omitempty" yaml:"production_companies,omitempty"`
	Distributor         string   `json:"distributor,omitempty" yaml:"distributor,omitempty"`
	MetadataConfidence  float64  `json:"metadata_confidence,omitempty" yaml:"metadata_confidence,omitempty"`

	TrailerURL        string  `json:"trailer_url,omitempty" yaml:"trailer_url,omitempty"`
	TrailerTitle      string  `json:"trailer_title,omitempty" yaml:"trailer_title,omitempty"`
	TrailerConfidence float64 `json:"trailer_confidence,omitempty" yaml:"trailer_confidence,omitempty"`
	// TrailerSearchURL is a manual search link, present whenever the film has a title.
	TrailerSearchURL string `json:"trailer_search_url,omitempty" yaml:"trailer_search_url,omitempty"`
}

// HasMetadata reports whether a metadata match was merged.
func (e Enrichment) HasMetadata() bool {
	return e.ExternalID != ""
}

// HasTrailer reports whether a trailer match was merged.
func (e Enrichment) HasTrailer() bool {
	return e.TrailerURL != ""
}

// Classification is the derived lineup category and distribution outlook.
type Classification struct {
	IsShortProgram    bool   `json:"is_short_program" yaml:"is_short_program"`
	IsRestoration     bool   `json:"is_restoration" yaml:"is_restoration"`
	HasIntroOrQnA     bool   `json:"has_intro_or_qa" yaml:"has_intro_or_qa"`
	Category          string `json:"category" yaml:"category"`
	FestivalSection   string `json:"festival_section,omitempty" yaml:"festival_section,omitempty"`
	DistributionScore int    `json:"distribution_score" yaml:"distribution_score"`
	LikelyDistributed bool   `json:"likely_distributed" yaml:"likely_distributed"`
}

// Record is one film in a festival lineup.
type Record struct {
	Slug        string            `json:"slug" yaml:"slug"`
	Title       string            `json:"title" yaml:"title"`
	Year        *int              `json:"year,omitempty" yaml:"year,omitempty"`
	Director    string            `json:"director,omitempty" yaml:"director,omitempty"`
	Country     string            `json:"country,omitempty" yaml:"country,omitempty"`
	Runtime     string            `json:"runtime,omitempty" yaml:"runtime,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Section     string            `json:"section,omitempty" yaml:"section,omitempty"`
	URL         string            `json:"url,omitempty" yaml:"url,omitempty"`
	Showtimes   []Showtime        `json:"showtimes,omitempty" yaml:"showtimes,omitempty"`
	Raw         map[string]string `json:"raw,omitempty" yaml:"raw,omitempty"`

	Enrichment     Enrichment      `json:"enrichment" yaml:"enrichment"`
	Classification *Classification `json:"classification,omitempty" yaml:"classification,omitempty"`
}

// YearString renders the year or an empty string.
func (r Record) YearString() string {
	if r.Year == nil {
		return ""
	}
	return strconv.Itoa(*r.Year)
}

// Clone returns a deep copy so pipeline stages never share mutable state with
// the caller's slice.
func (r Record) Clone() Record {
	out := r
	if r.Year != nil {
		y := *r.Year
		out.Year = &y
	}
	if r.Showtimes != nil {
		out.Showtimes = make([]Showtime, len(r.Showtimes))
		for i, st := range r.Showtimes {
			st.Notes = append([]string(nil), st.Notes...)
			out.Showtimes[i] = st
		}
	}
	if r.Raw != nil {
		out.Raw = make(map[string]string, len(r.Raw))
		for k, v := range r.Raw {
			out.Raw[k] = v
		}
	}
	out.Enrichment.ProductionCompanies = append([]string(nil), r.Enrichment.ProductionCompanies...)
	if r.Classification != nil {
		c := *r.Classification
		out.Classification = &c
	}
	return out
}
