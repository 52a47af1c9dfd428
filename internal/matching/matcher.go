package matching

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"marquee/internal/config"
	"marquee/internal/film"
	"marquee/internal/logging"
	"marquee/internal/lookup"
	"marquee/internal/query"
	"marquee/internal/textutil"
)

// Decision is the outcome of matching one query.
type Decision string

const (
	Accepted              Decision = "ACCEPTED"
	RejectedLowConfidence Decision = "REJECTED_LOW_CONFIDENCE"
	NoCandidates          Decision = "NO_CANDIDATES"
)

// Defaults used when no configuration is supplied.
const (
	DefaultAcceptThreshold = 0.75
	DefaultTitleWeight     = 0.7
	DefaultYearWeight      = 0.3
)

// Year agreement terms.
const (
	yearExact   = 1.0
	yearAdjoins = 0.8
	yearUnknown = 0.5
	yearFar     = 0.0
)

// Result is the matcher's verdict. Candidate is set for ACCEPTED and for
// REJECTED_LOW_CONFIDENCE (the best rejected candidate).
type Result struct {
	Candidate  *lookup.Candidate
	Confidence float64
	Decision   Decision
}

// Score breaks a candidate's total into its parts.
type Score struct {
	Title float64
	Year  float64
	Total float64
}

// Matcher applies the scoring rules with a fixed threshold and weights.
type Matcher struct {
	threshold   float64
	titleWeight float64
	yearWeight  float64
	logger      *slog.Logger
}

// New returns a matcher. Non-positive values fall back to the defaults.
func New(threshold, titleWeight, yearWeight float64, logger *slog.Logger) *Matcher {
	if threshold <= 0 {
		threshold = DefaultAcceptThreshold
	}
	if titleWeight <= 0 && yearWeight <= 0 {
		titleWeight, yearWeight = DefaultTitleWeight, DefaultYearWeight
	}
	return &Matcher{
		threshold:   threshold,
		titleWeight: titleWeight,
		yearWeight:  yearWeight,
		logger:      logging.NewComponentLogger(logger, "matching"),
	}
}

// NewFromConfig builds a matcher from the [matching] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Matcher {
	return New(cfg.Matching.AcceptThreshold, cfg.Matching.TitleWeight, cfg.Matching.YearWeight, logger)
}

// Threshold returns the acceptance threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Match picks the best candidate for q.
func (m *Matcher) Match(rec film.Record, q query.NormalizedQuery, candidates []lookup.Candidate) Result {
	logger := m.logger.With(
		logging.String(logging.FieldFilm, rec.Slug),
		logging.String(logging.FieldKind, string(q.Kind)),
	)

	eligible := filterByType(q.Kind, candidates)
	if len(eligible) == 0 {
		reason := "no candidates returned"
		if len(candidates) > 0 {
			reason = fmt.Sprintf("%d candidates failed the %s type filter", len(candidates), q.Kind)
		}
		m.logDecision(logger, q, NoCandidates, 0, nil, reason)
		return Result{Decision: NoCandidates}
	}

	var (
		best      *lookup.Candidate
		bestScore Score
	)
	for i := range eligible {
		c := &eligible[i]
		score := m.ScoreCandidate(q, *c)
		logger.Debug("candidate scored",
			logging.String("candidate_id", c.ExternalID),
			logging.String("candidate_title", c.Title),
			logging.Int("source_rank", c.SourceRank),
			logging.Float64("title_similarity", score.Title),
			logging.Float64("year_term", score.Year),
			logging.Float64("score", score.Total),
		)
		if best == nil || score.Total > bestScore.Total ||
			(score.Total == bestScore.Total && c.SourceRank < best.SourceRank) {
			best, bestScore = c, score
		}
	}

	chosen := *best
	if bestScore.Total < m.threshold {
		reason := fmt.Sprintf("best score %.3f below threshold %.2f", bestScore.Total, m.threshold)
		m.logDecision(logger, q, RejectedLowConfidence, bestScore.Total, &chosen, reason)
		return Result{Candidate: &chosen, Confidence: bestScore.Total, Decision: RejectedLowConfidence}
	}
	reason := fmt.Sprintf("score %.3f meets threshold %.2f", bestScore.Total, m.threshold)
	m.logDecision(logger, q, Accepted, bestScore.Total, &chosen, reason)
	return Result{Candidate: &chosen, Confidence: bestScore.Total, Decision: Accepted}
}

// ScoreCandidate computes the weighted score of c against q.
func (m *Matcher) ScoreCandidate(q query.NormalizedQuery, c lookup.Candidate) Score {
	title := TitleSimilarity(q.CanonicalTitle, comparableTitle(q.Kind, c.Title))
	year := YearTerm(q.Year, c.Year)
	return Score{
		Title: title,
		Year:  year,
		Total: m.titleWeight*title + m.yearWeight*year,
	}
}

// TitleSimilarity returns 1 for identical canonical titles, otherwise the
// mean of token cosine similarity and token overlap coefficient.
func TitleSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	fa, fb := textutil.NewFingerprint(a), textutil.NewFingerprint(b)
	return (textutil.CosineSimilarity(fa, fb) + textutil.OverlapCoefficient(fa, fb)) / 2
}

// YearTerm scores year agreement. A missing year on either side is neutral.
func YearTerm(queryYear, candidateYear *int) float64 {
	if queryYear == nil || candidateYear == nil {
		return yearUnknown
	}
	diff := *queryYear - *candidateYear
	if diff < 0 {
		diff = -diff
	}
	switch diff {
	case 0:
		return yearExact
	case 1:
		return yearAdjoins
	default:
		return yearFar
	}
}

func (m *Matcher) logDecision(logger *slog.Logger, q query.NormalizedQuery, decision Decision, confidence float64, c *lookup.Candidate, reason string) {
	attrs := append(logging.DecisionAttrs("match", string(decision), reason),
		logging.String("cache_key", q.Key()),
		logging.Float64("confidence", confidence),
	)
	if c != nil {
		attrs = append(attrs,
			logging.String("candidate_id", c.ExternalID),
			logging.String("candidate_title", c.Title),
		)
	}
	logger.Info("match decision", logging.Args(attrs...)...)
}

// trailerMarkers identify a video as a trailer.
var trailerMarkers = []string{"trailer", "teaser"}

// videoNoise are tokens stripped from video titles before comparison.
var videoNoise = map[string]struct{}{
	"official": {}, "trailer": {}, "trailers": {}, "teaser": {}, "hd": {}, "4k": {},
	"uhd": {}, "international": {}, "exclusive": {}, "subtitled": {}, "subs": {},
	"restoration": {}, "restored": {}, "nyff": {},
}

func filterByType(kind query.Kind, candidates []lookup.Candidate) []lookup.Candidate {
	out := make([]lookup.Candidate, 0, len(candidates))
	for _, c := range candidates {
		switch kind {
		case query.KindMetadata:
			mt := strings.ToLower(strings.TrimSpace(c.MediaType))
			if mt != "" && mt != lookup.MediaTypeMovie {
				continue
			}
		case query.KindVideo:
			if !isTrailerTitle(c.Title) {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func isTrailerTitle(title string) bool {
	lower := strings.ToLower(title)
	for _, marker := range trailerMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// comparableTitle reduces a candidate title to the same canonical form as the
// query. Video titles also lose noise words and embedded years.
func comparableTitle(kind query.Kind, title string) string {
	cleaned := query.CleanTitle(title)
	if kind != query.KindVideo {
		return cleaned
	}
	words := strings.Fields(cleaned)
	kept := words[:0]
	for _, word := range words {
		if _, noise := videoNoise[word]; noise {
			continue
		}
		if isYearToken(word) {
			continue
		}
		kept = append(kept, word)
	}
	if len(kept) == 0 {
		return cleaned
	}
	return strings.Join(kept, " ")
}

func isYearToken(word string) bool {
	if len(word) != 4 {
		return false
	}
	year, err := strconv.Atoi(word)
	return err == nil && year >= 1870 && year <= 2100
}
