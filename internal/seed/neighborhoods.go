package seed

import (
	"context"
	"fmt"

	"eco/pkg/types"
)

type NeighborhoodRepository interface {
	UpsertNeighborhood(ctx context.Context, n *types.Neighborhood) error
	UpsertDropPoint(ctx context.Context, dp *types.DropPoint) error
}

type Result struct {
	Neighborhoods int
	DropPoints    int
}

// Neighborhoods is the source of truth for the served neighborhoods. IDs are fixed so
// re-running the seed updates rows in place.
//
// To generate new IDs: `go run ./cmd/eco nanoid`
func Neighborhoods() []types.Neighborhood {
	return []types.Neighborhood{
		{ID: "Q3vYd1m9kXo2TfB7sLrPzW4hN8cJ6aEu", Name: "Centro", Slug: "centro"},
		{ID: "p8RkZ2wLx5Vn1GdT9yHq3MbJ7cFs4AeU", Name: "Vila Nova", Slug: "vila-nova"},
		{ID: "H6tNa2Qe9LzR4xWc1VbK8mYj3PsD7gFo", Name: "Jardim das Flores", Slug: "jardim-das-flores"},
	}
}

// DropPoints lists the partner drop points. Inactive points stay in the list so the
// upsert turns them off instead of leaving stale rows behind.
func DropPoints() []types.DropPoint {
	return []types.DropPoint{
		{ID: "b2Gk7Tq1Rz9Lw4Xn6Vc3Ps8My5Hd0JfA", NeighborhoodID: "Q3vYd1m9kXo2TfB7sLrPzW4hN8cJ6aEu", Name: "Padaria Estrela", Address: "Rua XV de Novembro, 120", IsActive: true},
		{ID: "Z9wX4cV7bN2mL5kJ8hG1fD3sA6qP0oIu", NeighborhoodID: "Q3vYd1m9kXo2TfB7sLrPzW4hN8cJ6aEu", Name: "Escola Municipal Centro", Address: "Praça da Matriz, 45", IsActive: true},
		{ID: "r5Tn8Yb2Wq6Ec1Vx9Mz3Lk7Hj4Gf0DsA", NeighborhoodID: "p8RkZ2wLx5Vn1GdT9yHq3MbJ7cFs4AeU", Name: "Mercado Bom Preço", Address: "Av. Brasil, 980", IsActive: true},
		{ID: "k1Jh4Gf7Ds0Az3Xc6Vb9Nm2Lq5Wp8EoR", NeighborhoodID: "p8RkZ2wLx5Vn1GdT9yHq3MbJ7cFs4AeU", Name: "Associação de Moradores", Address: "Rua das Acácias, 12", IsActive: false},
		{ID: "m3Nb6Vc9Xz2Lk5Jh8Gf1Ds4Aq7Wp0EoT", NeighborhoodID: "H6tNa2Qe9LzR4xWc1VbK8mYj3PsD7gFo", Name: "Farmácia Flores", Address: "Rua dos Ipês, 300", IsActive: true},
	}
}

// SeedNeighborhoods upserts every neighborhood before its drop points.
func SeedNeighborhoods(ctx context.Context, repo NeighborhoodRepository) (*Result, error) {
	result := new(Result)

	for _, n := range Neighborhoods() {
		if err := repo.UpsertNeighborhood(ctx, &n); err != nil {
			return nil, fmt.Errorf("failed to upsert neighborhood %s: %w", n.Slug, err)
		}
		result.Neighborhoods++
	}

	for _, dp := range DropPoints() {
		if err := repo.UpsertDropPoint(ctx, &dp); err != nil {
			return nil, fmt.Errorf("failed to upsert drop point %s: %w", dp.Name, err)
		}
		result.DropPoints++
	}

	return result, nil
}
