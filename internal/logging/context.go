package logging

import (
	"context"
	"log/slog"

	"marquee/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldCorrelationID carries the enrichment run identifier.
	FieldCorrelationID = "correlation_id"
	// FieldFilm is the slug of the film being enriched.
	FieldFilm = "film"
	// FieldFilmIndex is the 0-based position of the film in the input batch.
	FieldFilmIndex = "film_index"
	// FieldKind is the lookup kind (metadata or video).
	FieldKind = "kind"
	// FieldEventType names the event a log line describes.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType groups decision logs (match, eligibility, cache).
	FieldDecisionType   = "decision_type"
	FieldDecisionResult = "decision_result"
	FieldDecisionReason = "decision_reason"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if rid, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	if film, ok := services.FilmFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldFilm, film))
	}
	if idx, ok := services.FilmIndexFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldFilmIndex, idx))
	}
	if kind, ok := services.KindFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldKind, kind))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
