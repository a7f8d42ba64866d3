//go:build cgo

package store

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	driverName = "sqlite3"

	// distanceFn is provided by the sqlite-vec extension, loaded under the
	// sqlite_vec build tag. Without it vector search reports
	// ErrVectorUnavailable and retrieval degrades to the keyword channels.
	distanceFn = "vec_distance_cosine"
)
