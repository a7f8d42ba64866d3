//go:build !cgo

package store

import (
	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"

	// distanceFn is registered in vecfn_purego.go on the modernc driver.
	distanceFn = "vector_distance_cos"
)
