package catalog

import "context"

// Source provides the rows of one catalog.
// Identity is stable for the lifetime of the source and keys the cache;
// Version must change whenever the underlying rows do.
type Source interface {
	Identity() string
	Version(ctx context.Context) (string, error)
	Load(ctx context.Context) ([]FoodRecord, error)
}
