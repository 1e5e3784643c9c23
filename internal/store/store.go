package store

import (
	"namibialove.app/messaging/core/db/sqlc"
)

// Stores hands out stores bound to one set of queries, which run either on
// the pool or inside an open transaction.
type Stores struct {
	queries *sqlc.Queries
}

func NewStores(queries *sqlc.Queries) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) Messages() MessageStore {
	return newMessageStore(s.queries)
}
