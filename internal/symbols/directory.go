// Package symbols resolves ticker candidates against an external symbol
// directory, with an optional Redis cache in front.
package symbols

import (
	"context"

	"chatwatch/internal/domain"
)

// Directory resolves uppercase ticker candidates to known symbols.
// Implementations return only the candidates they recognize; an empty
// result with nil error means nothing matched.
type Directory interface {
	Lookup(ctx context.Context, candidates []string) ([]domain.SymbolMatch, error)
}
