package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"marquee/internal/film"
	"marquee/internal/fileutil"
	"marquee/internal/services"
)

// Supported formats and their file extensions.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

var extensions = map[string]string{
	FormatJSON:     ".json",
	FormatCSV:      ".csv",
	FormatMarkdown: ".md",
}

// Formats lists every supported format in write order.
func Formats() []string {
	return []string{FormatJSON, FormatCSV, FormatMarkdown}
}

var csvHeader = []string{
	"Title", "Director", "Year", "Country", "Runtime", "Section", "Description",
	"Date", "Time", "Venue", "Showtime_Notes", "Available",
	"Production_Companies", "Distributor", "IMDB_ID", "Matched_Title", "Metadata_Confidence",
	"Trailer_URL", "Trailer_Confidence", "YouTube_Search_URL",
	"Is_Short_Program", "Is_Restoration", "Has_Intro_Or_QnA", "Category",
	"Distribution_Score", "Likely_Distributed",
}

// JSON writes films as an indented array.
func JSON(w io.Writer, films []film.Record) error {
	if films == nil {
		films = []film.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(films)
}

// CSV writes one row per showtime; a film without showtimes gets one row with
// empty showtime columns.
func CSV(w io.Writer, films []film.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range films {
		if len(rec.Showtimes) == 0 {
			if err := cw.Write(csvRow(rec, nil)); err != nil {
				return err
			}
			continue
		}
		for i := range rec.Showtimes {
			if err := cw.Write(csvRow(rec, &rec.Showtimes[i])); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(rec film.Record, st *film.Showtime) []string {
	e := rec.Enrichment
	cls := classification(rec)
	var date, clock, venue, notes, available string
	if st != nil {
		date, clock, venue = st.Date, st.Time, st.Venue
		notes = strings.Join(st.Notes, "; ")
		available = boolCell(st.Available)
	}
	return []string{
		rec.Title, rec.Director, rec.YearString(), rec.Country, rec.Runtime, rec.Section, rec.Description,
		date, clock, venue, notes, available,
		strings.Join(e.ProductionCompanies, "; "), e.Distributor, e.IMDbID, e.MatchedTitle, confidenceCell(e.MetadataConfidence),
		e.TrailerURL, confidenceCell(e.TrailerConfidence), e.TrailerSearchURL,
		boolCell(cls.IsShortProgram), boolCell(cls.IsRestoration), boolCell(cls.HasIntroOrQnA), cls.Category,
		scoreCell(rec), likelyCell(rec),
	}
}

// Markdown writes a summary heading and a table of the lineup.
func Markdown(w io.Writer, films []film.Record) error {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Title", "Director", "Year", "Category", "Showtimes", "Distributor", "Likely", "Links"})
	for _, rec := range films {
		tw.AppendRow(table.Row{
			rec.Title,
			rec.Director,
			rec.YearString(),
			classification(rec).Category,
			showtimeSummary(rec.Showtimes),
			rec.Enrichment.Distributor,
			likelyCell(rec),
			links(rec),
		})
	}
	if _, err := fmt.Fprintf(w, "# Festival Lineup\n\nTotal films: %d\n\n", len(films)); err != nil {
		return err
	}
	_, err := io.WriteString(w, tw.RenderMarkdown()+"\n")
	return err
}

// WriteAll writes base.<ext> into dir for every requested format and returns
// the paths written.
func WriteAll(dir, base string, formats []string, films []film.Record) ([]string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return nil, services.Wrap(services.ErrValidation, "export", "write", "output name is empty", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "export", "write", "create output dir", err)
	}
	written := make([]string, 0, len(formats))
	for _, format := range formats {
		format = strings.ToLower(strings.TrimSpace(format))
		ext, ok := extensions[format]
		if !ok {
			return written, services.Wrap(services.ErrValidation, "export", "write", fmt.Sprintf("unsupported format %q", format), nil)
		}
		path := filepath.Join(dir, base+ext)
		if err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
			return write(w, format, films)
		}); err != nil {
			return written, services.Wrap(services.ErrPermanent, "export", format, "write "+path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func write(w io.Writer, format string, films []film.Record) error {
	switch format {
	case FormatCSV:
		return CSV(w, films)
	case FormatMarkdown:
		return Markdown(w, films)
	default:
		return JSON(w, films)
	}
}

func classification(rec film.Record) film.Classification {
	if rec.Classification == nil {
		return film.Classification{}
	}
	return *rec.Classification
}

func showtimeSummary(showtimes []film.Showtime) string {
	if len(showtimes) == 0 {
		return "TBA"
	}
	parts := make([]string, 0, len(showtimes))
	for _, st := range showtimes {
		part := strings.TrimSpace(st.Date + " " + st.Time)
		if !st.Available {
			part += " (sold out)"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "; ")
}

func links(rec film.Record) string {
	var out []string
	if rec.Enrichment.IMDbID != "" {
		out = append(out, fmt.Sprintf("[IMDb](https://www.imdb.com/title/%s/)", rec.Enrichment.IMDbID))
	}
	switch {
	case rec.Enrichment.TrailerURL != "":
		out = append(out, fmt.Sprintf("[Trailer](%s)", rec.Enrichment.TrailerURL))
	case rec.Enrichment.TrailerSearchURL != "":
		out = append(out, fmt.Sprintf("[Search for trailer](%s)", rec.Enrichment.TrailerSearchURL))
	}
	return strings.Join(out, " ")
}

func boolCell(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

func confidenceCell(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func scoreCell(rec film.Record) string {
	if rec.Classification == nil {
		return ""
	}
	return strconv.Itoa(rec.Classification.DistributionScore)
}

func likelyCell(rec film.Record) string {
	if rec.Classification == nil {
		return ""
	}
	if rec.Classification.LikelyDistributed {
		return "Yes"
	}
	return "Limited"
}
