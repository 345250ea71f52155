// Package database is a thin pgx-backed query layer. Handlers consume
// it through narrow interfaces so tests can swap in fakes.
package database

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Queries struct {
	pool *pgxpool.Pool
}

// New returns a new instance of Queries.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
