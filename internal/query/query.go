package query

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Kind selects which external service a query is destined for.
type Kind string

const (
	KindMetadata Kind = "metadata"
	KindVideo    Kind = "video"
)

// Kinds lists every lookup kind in the order the pipeline reports them.
var Kinds = []Kind{KindMetadata, KindVideo}

// ParseKind validates a kind name.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindMetadata:
		return KindMetadata, nil
	case KindVideo:
		return KindVideo, nil
	default:
		return "", fmt.Errorf("unknown lookup kind %q (use metadata or video)", value)
	}
}

// NormalizedQuery is the canonical form of a lookup request.
type NormalizedQuery struct {
	CanonicalTitle string `json:"canonical_title"`
	Year           *int   `json:"year,omitempty"`
	Kind           Kind   `json:"kind"`
}

// YearString renders the year or "-" when absent.
func (q NormalizedQuery) YearString() string {
	if q.Year == nil {
		return "-"
	}
	return strconv.Itoa(*q.Year)
}

// Key returns the stable cache identity kind|title|year.
func (q NormalizedQuery) Key() string {
	return string(q.Kind) + "|" + q.CanonicalTitle + "|" + q.YearString()
}

// Hash returns the hex SHA-256 of Key, safe for use as a file name.
func (q NormalizedQuery) Hash() string {
	sum := sha256.Sum256([]byte(q.Key()))
	return hex.EncodeToString(sum[:])
}

// Equal reports whether two queries share the same identity.
func (q NormalizedQuery) Equal(other NormalizedQuery) bool {
	return q.Key() == other.Key()
}

// String implements fmt.Stringer for log output.
func (q NormalizedQuery) String() string {
	return q.Key()
}
