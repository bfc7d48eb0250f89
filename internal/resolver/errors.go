package resolver

import "errors"

// ErrUpstream marks a failed or non-progressing external lookup.
var ErrUpstream = errors.New("resolver: upstream failure")

// ErrTooManyHops marks a query that exceeded the iteration safety bound
// without reaching a terminal answer, NXDOMAIN, or empty delegation.
var ErrTooManyHops = errors.New("resolver: exceeded max hops")
