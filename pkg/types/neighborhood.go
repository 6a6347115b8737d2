package types

import "time"

type Neighborhood struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Slug      string    `db:"slug"`
	CreatedAt time.Time `db:"created_at"`
}

type DropPoint struct {
	ID             string    `db:"id"`
	NeighborhoodID string    `db:"neighborhood_id"`
	Name           string    `db:"name"`
	Address        string    `db:"address"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
}
