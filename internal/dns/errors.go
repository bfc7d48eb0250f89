package dns

import "errors"

// ErrDNSError is a general sentinel for DNS codec failures. The errors this
// package returns do not wrap it: they wrap ErrMalformed or the wire
// package's ErrOutOfRange/ErrName.
var ErrDNSError = errors.New("dns wire error")

// ErrMalformed indicates a DNS message, or a value being encoded into one,
// that is not well-formed, independent of any wire.ErrOutOfRange cause.
var ErrMalformed = errors.New("dns: malformed message")
