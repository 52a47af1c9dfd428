package classify

import (
	"regexp"
	"strings"
	"time"

	"marquee/internal/film"
)

// Festival sections recognised by the scorer.
const (
	SectionMainSlate   = "main slate"
	SectionSpotlight   = "spotlight"
	SectionCurrents    = "currents"
	SectionRestoration = "restoration"
	SectionRevivals    = "revivals"
	SectionShorts      = "shorts"
	SectionUnknown     = "unknown"
)

// Categories written to the classification.
const (
	CategoryShorts      = "shorts"
	CategoryRestoration = "restoration"
	CategorySpotlight   = "spotlight"
	CategoryFeature     = "feature"
)

// LikelyThreshold is the score at which a film counts as likely distributed.
const LikelyThreshold = 50

// restorationAge is how many years before the reference year a film must be
// to count as a revival on age alone.
const restorationAge = 5

var sectionWeights = map[string]int{
	SectionMainSlate:   50,
	SectionSpotlight:   45,
	SectionCurrents:    -40,
	SectionRestoration: -70,
	SectionRevivals:    -70,
	SectionShorts:      -80,
}

var (
	shortsTitleIndicators = []string{"shorts", "short films", "short program", "anthology", "collection", "omnibus", "portmanteau"}
	shortsDescIndicators  = []string{"short films", "shorts program", "anthology", "collection of", "various directors", "multiple filmmakers", "several shorts"}
	shortsRuntimeWords    = []string{"shorts", "films", "segments"}

	restorationIndicators = []string{"restoration", "restored", "remastered", "revival", "classic", "retrospective"}

	introNoteKeywords  = []string{"q&a", "intro", "introduction", "panel", "discussion"}
	introDescKeywords  = []string{"q&a", "introduction", "panel", "discussion", "filmmaker in attendance", "followed by", "with director", "with cast", "film scholar", "moderated", "special guest"}
	spotlightKeywords  = []string{"spotlight", "opening night", "closing night", "gala", "centerpiece", "special screening", "world premiere", "red carpet", "festival highlight"}
	mainSlateKeywords  = []string{"main slate", "opening night", "closing night", "centerpiece", "gala screening", "world premiere", "north american premiere"}
	spotSectionKeyword = []string{"spotlight", "special presentation", "red carpet", "festival highlight", "special screening"}
	currentsKeywords   = []string{"currents", "experimental", "avant-garde", "art house", "emerging filmmaker"}

	directorSplit = regexp.MustCompile(`\s+(?:and|&)\s+|,\s*|/`)
	hasLetter     = regexp.MustCompile(`[A-Za-z\p{L}]`)
)

// Classifier evaluates records against a reference year.
type Classifier struct {
	referenceYear int
}

// New returns a classifier. A non-positive reference year means the current
// year.
func New(referenceYear int) *Classifier {
	if referenceYear <= 0 {
		referenceYear = time.Now().Year()
	}
	return &Classifier{referenceYear: referenceYear}
}

// Classify computes the classification for rec.
func (c *Classifier) Classify(rec film.Record) film.Classification {
	out := film.Classification{
		IsShortProgram: IsShortProgram(rec),
		IsRestoration:  c.IsRestoration(rec),
		HasIntroOrQnA:  HasIntroOrQnA(rec),
	}
	out.Category = category(rec, out)
	out.FestivalSection = festivalSection(rec, out)
	out.DistributionScore = distributionScore(rec, out.FestivalSection)
	out.LikelyDistributed = out.DistributionScore >= LikelyThreshold
	return out
}

// Apply classifies every record in place.
func (c *Classifier) Apply(films []film.Record) {
	for i := range films {
		cls := c.Classify(films[i])
		films[i].Classification = &cls
	}
}

// IsShortProgram reports whether rec looks like a program of short films.
func IsShortProgram(rec film.Record) bool {
	if strings.Contains(strings.ToLower(rec.Section), "short") {
		return true
	}
	title := strings.ToLower(rec.Title)
	if containsAny(title, shortsTitleIndicators) {
		return true
	}
	if containsAny(strings.ToLower(rec.Description), shortsDescIndicators) {
		return true
	}
	if CountDirectors(rec.Director) >= 3 {
		return true
	}
	runtime := strings.ToLower(rec.Runtime)
	return runtime != "" && containsAny(runtime, shortsRuntimeWords)
}

// IsRestoration reports whether rec is a restoration or revival screening.
func (c *Classifier) IsRestoration(rec film.Record) bool {
	section := strings.ToLower(rec.Section)
	if strings.Contains(section, "revival") || strings.Contains(section, "restoration") {
		return true
	}
	text := strings.ToLower(rec.Title + " " + rec.Description)
	if containsAny(text, restorationIndicators) {
		return true
	}
	return rec.Year != nil && *rec.Year < c.referenceYear-restorationAge
}

// HasIntroOrQnA reports whether any screening is introduced or followed by a
// discussion.
func HasIntroOrQnA(rec film.Record) bool {
	for _, st := range rec.Showtimes {
		for _, note := range st.Notes {
			if containsAny(strings.ToLower(note), introNoteKeywords) {
				return true
			}
		}
	}
	return containsAny(strings.ToLower(rec.Description), introDescKeywords)
}

// CountDirectors counts the names in a credit such as "A and B, C / D".
func CountDirectors(director string) int {
	director = strings.TrimSpace(director)
	if director == "" {
		return 0
	}
	count := 0
	for _, part := range directorSplit.Split(director, -1) {
		if part = strings.TrimSpace(part); part != "" && hasLetter.MatchString(part) {
			count++
		}
	}
	return count
}

func category(rec film.Record, cls film.Classification) string {
	switch {
	case cls.IsShortProgram:
		return CategoryShorts
	case cls.IsRestoration:
		return CategoryRestoration
	case containsAny(strings.ToLower(rec.Title+" "+rec.Description), spotlightKeywords):
		return CategorySpotlight
	default:
		return CategoryFeature
	}
}

func festivalSection(rec film.Record, cls film.Classification) string {
	if section := matchSection(strings.ToLower(strings.TrimSpace(rec.Section))); section != "" {
		return section
	}
	if cls.IsShortProgram {
		return SectionShorts
	}
	if cls.IsRestoration {
		return SectionRestoration
	}
	text := strings.ToLower(rec.Title + " " + rec.Description)
	switch {
	case containsAny(text, mainSlateKeywords):
		return SectionMainSlate
	case containsAny(text, spotSectionKeyword):
		return SectionSpotlight
	case containsAny(text, currentsKeywords):
		return SectionCurrents
	}
	return SectionUnknown
}

func matchSection(section string) string {
	if section == "" {
		return ""
	}
	for _, name := range []string{SectionMainSlate, SectionSpotlight, SectionCurrents, SectionRevivals, SectionRestoration, SectionShorts} {
		if strings.Contains(section, name) {
			return name
		}
	}
	if strings.Contains(section, "short") {
		return SectionShorts
	}
	return ""
}

func distributionScore(rec film.Record, section string) int {
	score := sectionWeights[section]
	companies := len(rec.Enrichment.ProductionCompanies)
	hasDistributor := strings.TrimSpace(rec.Enrichment.Distributor) != ""

	if hasDistributor {
		score += 40
	}
	if companies > 3 {
		score += 20
	}
	// Legacy producer and distributor heuristic, applied on top.
	if companies > 2 {
		score += 20
	}
	if hasDistributor {
		score += 30
	}
	return max(0, min(100, score))
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
