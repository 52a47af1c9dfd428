package film

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"marquee/internal/query"
	"marquee/internal/services"
	"marquee/internal/textutil"
)

// lineupEnvelope is the object form of an input file: {"films": [...]}.
type lineupEnvelope struct {
	Films []Record `json:"films" yaml:"films"`
}

// Load reads scraper output from path. JSON is expected unless the file ends in
// .yaml or .yml. Both a bare array of records and an object with a "films"
// array are accepted.
func Load(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "input", "open", path, err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return Decode(file, FormatYAML)
	default:
		return Decode(file, FormatJSON)
	}
}

// Format names an input encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Decode parses records from r and prepares them for enrichment.
func Decode(r io.Reader, format Format) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "input", "read", "", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var records []Record
	switch format {
	case FormatYAML:
		records, err = decodeYAML(data)
	default:
		records, err = decodeJSON(data)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "input", "decode", string(format), err)
	}
	if err := Prepare(records); err != nil {
		return nil, err
	}
	return records, nil
}

func decodeJSON(data []byte) ([]Record, error) {
	if data[0] == '[' {
		var records []Record
		err := json.Unmarshal(data, &records)
		return records, err
	}
	var envelope lineupEnvelope
	err := json.Unmarshal(data, &envelope)
	return envelope.Films, err
}

func decodeYAML(data []byte) ([]Record, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		var records []Record
		err := node.Decode(&records)
		return records, err
	}
	var envelope lineupEnvelope
	err := node.Decode(&envelope)
	return envelope.Films, err
}

// Prepare trims titles, lifts a trailing "(YYYY)" into Year when Year is
// absent, and assigns slugs. Generated slugs are made unique with a numeric
// suffix; a duplicated explicit slug is an input error.
func Prepare(records []Record) error {
	seen := make(map[string]bool, len(records))
	for i := range records {
		rec := &records[i]
		rec.Title = strings.TrimSpace(rec.Title)
		if rec.Year == nil {
			if year, ok := query.ExtractYear(rec.Title); ok {
				rec.Year = year
			}
		}
		rec.Slug = strings.TrimSpace(rec.Slug)
		if rec.Slug == "" {
			continue
		}
		if seen[rec.Slug] {
			return services.Wrap(services.ErrValidation, "input", "prepare",
				fmt.Sprintf("duplicate slug %q at record %d", rec.Slug, i), nil)
		}
		seen[rec.Slug] = true
	}

	// Generated slugs never take one given explicitly later in the lineup.
	for i := range records {
		rec := &records[i]
		if rec.Slug != "" {
			continue
		}
		base := textutil.Slugify(rec.Title)
		slug := base
		for n := 2; seen[slug]; n++ {
			slug = fmt.Sprintf("%s-%d", base, n)
		}
		rec.Slug = slug
		seen[slug] = true
	}
	return nil
}
