package query_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"marquee/internal/query"
)

func intPtr(v int) *int { return &v }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		title string
		year  *int
		want  query.NormalizedQuery
	}{
		{
			name:  "leading article",
			title: "The Great Escape",
			year:  intPtr(1963),
			want:  query.NormalizedQuery{CanonicalTitle: "great escape", Year: intPtr(1963), Kind: query.KindMetadata},
		},
		{
			name:  "library sort suffix",
			title: "Great Escape, The",
			year:  intPtr(1963),
			want:  query.NormalizedQuery{CanonicalTitle: "great escape", Year: intPtr(1963), Kind: query.KindMetadata},
		},
		{
			name:  "trailing year becomes year",
			title: "Chungking Express (1994)",
			want:  query.NormalizedQuery{CanonicalTitle: "chungking express", Year: intPtr(1994), Kind: query.KindMetadata},
		},
		{
			name:  "explicit year wins over parenthetical",
			title: "Solaris (1972)",
			year:  intPtr(2002),
			want:  query.NormalizedQuery{CanonicalTitle: "solaris", Year: intPtr(2002), Kind: query.KindMetadata},
		},
		{
			name:  "diacritics folded",
			title: "Amélie",
			want:  query.NormalizedQuery{CanonicalTitle: "amelie", Kind: query.KindMetadata},
		},
		{
			name:  "internal apostrophe and hyphen kept",
			title: "Schindler’s List: Spider-Man - Edition!",
			want:  query.NormalizedQuery{CanonicalTitle: "schindler's list spider-man edition", Kind: query.KindMetadata},
		},
		{
			name:  "ampersand spelled out",
			title: "Tom & Jerry",
			want:  query.NormalizedQuery{CanonicalTitle: "tom and jerry", Kind: query.KindMetadata},
		},
		{
			name:  "article alone is kept",
			title: "The",
			want:  query.NormalizedQuery{CanonicalTitle: "the", Kind: query.KindMetadata},
		},
		{
			name:  "article only stripped at start",
			title: "Escape from the Planet of the Apes",
			want:  query.NormalizedQuery{CanonicalTitle: "escape from the planet of the apes", Kind: query.KindMetadata},
		},
		{
			name:  "punctuation only falls back to input",
			title: "  ?!  ",
			want:  query.NormalizedQuery{CanonicalTitle: "?!", Kind: query.KindMetadata},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := query.Normalize(tc.title, tc.year, query.KindMetadata)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Normalize(%q) mismatch (-want +got):\n%s", tc.title, diff)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"The Great Escape",
		"Great Escape, The",
		"A Man Escaped (1956)",
		"the the the",
		"'71",
		"Rock 'n' Roll High School",
		"İstanbul Hatırası",
		"8½",
		"Crouching Tiger, Hidden Dragon",
		"Mission: Impossible – Dead Reckoning",
		"(2024)",
		"...",
		"ℌello",
		"Ⅻ Monkeys",
	}
	for _, kind := range query.Kinds {
		for _, input := range inputs {
			first := query.Normalize(input, nil, kind)
			second := query.Normalize(first.CanonicalTitle, first.Year, kind)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("Normalize not idempotent for %q (-first +second):\n%s", input, diff)
			}
		}
	}
}

func TestNormalizeLowercasesCompatibilityLetters(t *testing.T) {
	tests := map[string]string{
		"ℌello":     "hello",
		"Ⅻ Monkeys": "xii monkeys",
		"ﬁn":        "fin",
	}
	for input, want := range tests {
		if got := query.Normalize(input, nil, query.KindMetadata).CanonicalTitle; got != want {
			t.Errorf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestEquivalentTitlesShareKey(t *testing.T) {
	a := query.Normalize("The Great Escape", intPtr(1963), query.KindVideo)
	b := query.Normalize("Great Escape, The", intPtr(1963), query.KindVideo)
	if !a.Equal(b) || a.Hash() != b.Hash() {
		t.Fatalf("expected identical keys, got %q and %q", a.Key(), b.Key())
	}
	other := query.Normalize("The Great Escape", intPtr(1963), query.KindMetadata)
	if other.Key() == a.Key() {
		t.Fatal("kinds must not share cache keys")
	}
}

func TestKeyFormat(t *testing.T) {
	q := query.Normalize("Stalker", nil, query.KindMetadata)
	if q.Key() != "metadata|stalker|-" {
		t.Fatalf("unexpected key %q", q.Key())
	}
	q = query.Normalize("Stalker", intPtr(1979), query.KindVideo)
	if q.Key() != "video|stalker|1979" {
		t.Fatalf("unexpected key %q", q.Key())
	}
	if len(q.Hash()) != 64 {
		t.Fatalf("expected sha256 hex, got %q", q.Hash())
	}
}

func TestNormalizeDoesNotAliasYear(t *testing.T) {
	year := 2001
	q := query.Normalize("Spirited Away", &year, query.KindMetadata)
	year = 1999
	if *q.Year != 2001 {
		t.Fatalf("query year changed with caller variable: %d", *q.Year)
	}
}

func TestExtractYear(t *testing.T) {
	if y, ok := query.ExtractYear("Nosferatu (1922)"); !ok || *y != 1922 {
		t.Fatalf("ExtractYear = %v %v", y, ok)
	}
	if _, ok := query.ExtractYear("Blade Runner 2049"); ok {
		t.Fatal("bare trailing number must not be treated as year")
	}
	if _, ok := query.ExtractYear("Future (3050)"); ok {
		t.Fatal("out of range year must be rejected")
	}
}

func TestParseKind(t *testing.T) {
	if k, err := query.ParseKind(" Video "); err != nil || k != query.KindVideo {
		t.Fatalf("ParseKind = %v %v", k, err)
	}
	if _, err := query.ParseKind("audio"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
