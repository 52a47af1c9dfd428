package services_test

import (
	"context"
	"testing"

	"marquee/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithFilm(ctx, "the-great-escape")
	ctx = services.WithKind(ctx, "metadata")
	ctx = services.WithFilmIndex(ctx, 4)

	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
	if film, ok := services.FilmFromContext(ctx); !ok || film != "the-great-escape" {
		t.Fatalf("unexpected film: %v %v", film, ok)
	}
	if kind, ok := services.KindFromContext(ctx); !ok || kind != "metadata" {
		t.Fatalf("unexpected kind: %v %v", kind, ok)
	}
	if idx, ok := services.FilmIndexFromContext(ctx); !ok || idx != 4 {
		t.Fatalf("unexpected index: %v %v", idx, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithFilm(ctx, "")
	ctx = services.WithKind(ctx, "")
	if _, ok := services.FilmFromContext(ctx); ok {
		t.Fatal("expected no film value")
	}
	if _, ok := services.KindFromContext(ctx); ok {
		t.Fatal("expected no kind value")
	}
	if _, ok := services.FilmIndexFromContext(ctx); ok {
		t.Fatal("expected no index value")
	}
}
