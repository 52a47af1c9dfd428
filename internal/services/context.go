package services

import "context"

type contextKey string

const (
	runIDKey contextKey = "run_id"
	filmKey  contextKey = "film"
	kindKey  contextKey = "kind"
	indexKey contextKey = "film_index"
)

// WithRunID annotates context with the enrichment run correlation identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithFilm annotates context with the film slug being enriched.
func WithFilm(ctx context.Context, slug string) context.Context {
	if slug == "" {
		return ctx
	}
	return context.WithValue(ctx, filmKey, slug)
}

// FilmFromContext returns the film slug if present.
func FilmFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(filmKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithKind annotates context with the lookup kind (metadata or video).
func WithKind(ctx context.Context, kind string) context.Context {
	if kind == "" {
		return ctx
	}
	return context.WithValue(ctx, kindKey, kind)
}

// KindFromContext returns the lookup kind if present.
func KindFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(kindKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithFilmIndex annotates context with the film's 0-based position in the input.
func WithFilmIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, indexKey, index)
}

// FilmIndexFromContext extracts the film position if present.
func FilmIndexFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(indexKey).(int)
	return v, ok
}
