package fetcher

import (
	"context"

	"price-tracker/internal/model"
)

// Source retrieves current observations for one asset class.
type Source interface {
	Kind() model.AssetKind
	Fetch(ctx context.Context) ([]model.Observation, error)
}
