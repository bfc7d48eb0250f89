package resolver

import (
	"context"
	"fmt"
	"net"

	"github.com/domainwalk/recudns/internal/dns"
)

// fixedQueryID is the transaction id every upstream query carries. Using a
// constant id rather than a random one is a known weakness carried from the
// source this resolver is modeled on (see SPEC_FULL.md §9): it makes responses
// vulnerable to off-path spoofing or collision between concurrent in-flight
// queries to the same upstream. Not addressed here deliberately.
const fixedQueryID uint16 = 999

// recvBufferSize is sized for the 512-byte DNS-over-UDP limit this resolver
// operates under (no EDNS(0), no TCP fallback).
const recvBufferSize = 512

// Lookup sends a single UDP query for (qname, qtype) to server and returns
// the parsed response. It opens an ephemeral socket, performs exactly one
// send/recv exchange, and returns: no retry, no lookup-local timeout. A
// deadline on ctx is the caller's responsibility (see DESIGN.md on the
// per-query timeout applied at the query handler boundary).
func Lookup(ctx context.Context, qname string, qtype dns.RecordType, server string) (*dns.Packet, error) {
	req := &dns.Packet{
		Header: dns.Header{
			ID:               fixedQueryID,
			RecursionDesired: true,
			QDCount:          1,
		},
		Questions: []dns.Question{{Name: qname, Type: qtype, Class: dns.ClassIN}},
	}
	reqBytes, err := req.Marshal()
	if err != nil {
		return nil, fmt.Errorf("resolver: lookup %q: marshal query: %w", qname, err)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "udp", server)
	if err != nil {
		return nil, fmt.Errorf("resolver: lookup %q: dial %s: %w: %v", qname, server, ErrUpstream, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(reqBytes); err != nil {
		return nil, fmt.Errorf("resolver: lookup %q: send to %s: %w: %v", qname, server, ErrUpstream, err)
	}

	buf := make([]byte, recvBufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("resolver: lookup %q: recv from %s: %w: %v", qname, server, ErrUpstream, err)
	}

	resp, err := dns.ParsePacket(buf[:n])
	if err != nil {
		return nil, fmt.Errorf("resolver: lookup %q: parse response from %s: %w: %v", qname, server, ErrUpstream, err)
	}
	return resp, nil
}
