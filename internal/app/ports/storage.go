package ports

import "context"

// PointsStorePort persists the points ledger. changed lists the keys touched by the mutation
// that produced snapshot.
type PointsStorePort interface {
	Load(ctx context.Context) (map[string]int, error)
	Save(ctx context.Context, snapshot map[string]int, changed []string) error
}
