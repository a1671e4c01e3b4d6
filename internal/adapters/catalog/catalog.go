// Package catalog supplies the product catalog the recommendation engine
// reads. The remote NeoLife catalog is fetched on demand, cached as an
// immutable snapshot and replaced by the built-in catalog when unavailable.
package catalog

import (
	"context"
	"errors"

	"github.com/startupforworld/coach/internal/domain/recommend"
)

// Sentinel kinds for catalog errors.
var (
	ErrEmptyCatalog = errors.New("catalog has no products")
	ErrLogin        = errors.New("catalog login failed")
	ErrStatus       = errors.New("unexpected catalog status")
	ErrUnauthorized = errors.New("catalog session rejected")
)

// Source fetches a complete catalog.
type Source interface {
	Fetch(ctx context.Context) (recommend.Catalog, error)
}

// Static is a Source that always returns the same catalog.
type Static recommend.Catalog

// Fetch returns a copy of the static catalog.
func (s Static) Fetch(context.Context) (recommend.Catalog, error) {
	if len(s) == 0 {
		return nil, ErrEmptyCatalog
	}
	out := make(recommend.Catalog, len(s))
	copy(out, s)
	return out, nil
}
