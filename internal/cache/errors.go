package cache

import "errors"

// ErrMiss is returned by Lookup when no valid row matches the domain.
var ErrMiss = errors.New("cache: miss")

// ErrIntegrity marks a stored row that violates its column-set invariant
// (e.g. an A-type row with a null address) or otherwise cannot be converted
// into a Record. Callers treat this the same as a miss and log it.
var ErrIntegrity = errors.New("cache: row violates column-set invariant")
