// Package server implements the per-datagram DNS query coordinator and the
// UDP listener loop that feeds it.
//
// Goroutine model: one goroutine per inbound datagram. The listener spawns
// a goroutine as soon as it reads a packet and immediately returns to recv;
// there is no worker pool and no per-client affinity.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/domainwalk/recudns/internal/admin"
	"github.com/domainwalk/recudns/internal/cache"
	"github.com/domainwalk/recudns/internal/dns"
	"github.com/domainwalk/recudns/internal/resolver"
)

// DefaultQueryTimeout bounds how long a recursive resolution may run before
// the handler gives up and answers SERVFAIL, per the SHOULD recommendation
// that upstream lookups carry a deadline of roughly 2-10 seconds.
const DefaultQueryTimeout = 4 * time.Second

// QueryHandler is the per-datagram coordinator: it parses the inbound
// packet, dispatches to the iterative resolver (recursive mode) or the
// cache-only fast path (non-recursive mode), and serializes the response.
type QueryHandler struct {
	Logger   *slog.Logger
	Resolver *resolver.Resolver
	Cache    *cache.Store
	Timeout  time.Duration

	// Stats and Metrics are optional; when nil, no counters are recorded.
	Stats   *admin.QueryStats
	Metrics *admin.Metrics
}

// Handle processes one inbound datagram's bytes and returns the serialized
// response to send, or nil if no response should be sent at all (the
// request's QR bit was set).
func (h *QueryHandler) Handle(ctx context.Context, src string, reqBytes []byte) []byte {
	req, err := dns.ParsePacket(reqBytes)
	if err != nil {
		h.logger().Info("unparseable request, answering FORMERR", "src", src, "err", err)
		return mustMarshal(dns.BuildErrorResponse(0, dns.RCodeFormErr))
	}

	if req.Header.Response {
		h.logger().Info("dropping response-flagged inbound packet", "src", src, "id", req.Header.ID)
		return nil
	}

	qname, qtype := "<no-question>", dns.RecordType(0)
	if len(req.Questions) > 0 {
		qname, qtype = req.Questions[0].Name, req.Questions[0].Type
	}

	h.incQuery()

	var resp *dns.Packet
	if !req.Header.RecursionDesired {
		resp = h.handleCacheOnly(ctx, req, qname)
	} else {
		resp = h.handleRecursive(ctx, req, qname, qtype)
	}

	h.recordOutcome(resp.Header.RCode)

	out, err := resp.Marshal()
	if err != nil {
		h.logger().Error("failed to marshal response, falling back to SERVFAIL", "qname", qname, "err", err)
		out = mustMarshal(dns.BuildErrorResponse(req.Header.ID, dns.RCodeServFail))
	}

	h.logger().Info("handled query",
		"src", src, "id", req.Header.ID, "qname", qname, "qtype", qtype.String(),
		"rd", req.Header.RecursionDesired, "rcode", resp.Header.RCode,
	)
	return out
}

// handleCacheOnly answers entirely from the persistent cache: the first
// valid entry found wins; if every entry is expired, missing, or
// malformed, the response is SERVFAIL. No external resolution is ever
// triggered here.
func (h *QueryHandler) handleCacheOnly(ctx context.Context, req *dns.Packet, qname string) *dns.Packet {
	base := dns.Header{
		ID:                 req.Header.ID,
		Response:           true,
		RecursionAvailable: true,
		RecursionDesired:   false,
	}

	entries, err := h.Cache.LookupAll(ctx, qname)
	if err != nil {
		h.logger().Error("cache lookup_all failed", "qname", qname, "err", err)
		base.RCode = dns.RCodeServFail
		return &dns.Packet{Header: base}
	}

	now := time.Now()
	for _, entry := range entries {
		if !entry.Valid(now) {
			if delErr := h.Cache.Delete(ctx, entry.ID); delErr != nil {
				h.logger().Error("failed to evict expired row", "id", entry.ID, "qname", qname, "err", delErr)
			}
			continue
		}
		rec, convErr := entry.ToRecord()
		if convErr != nil {
			h.logger().Error("cache row integrity violation", "id", entry.ID, "qname", qname, "err", convErr)
			continue
		}
		base.RCode = dns.RCodeNoError
		if h.Stats != nil {
			h.Stats.IncCacheHit()
		}
		if h.Metrics != nil {
			h.Metrics.CacheHitsTotal.Inc()
		}
		return &dns.Packet{Header: base, Answers: []dns.Record{rec}}
	}

	if h.Stats != nil {
		h.Stats.IncCacheMiss()
	}
	if h.Metrics != nil {
		h.Metrics.CacheMissTotal.Inc()
	}
	base.RCode = dns.RCodeServFail
	return &dns.Packet{Header: base}
}

// handleRecursive invokes the iterative resolver under a bounded deadline
// and mirrors its outcome into the client-facing response header.
func (h *QueryHandler) handleRecursive(ctx context.Context, req *dns.Packet, qname string, qtype dns.RecordType) *dns.Packet {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	base := dns.Header{
		ID:                 req.Header.ID,
		Response:           true,
		RecursionAvailable: true,
		RecursionDesired:   true,
	}

	result, err := h.Resolver.Resolve(rctx, qname, qtype)
	if err != nil {
		h.logger().Error("resolution failed", "qname", qname, "err", err)
		base.RCode = dns.RCodeServFail
		return &dns.Packet{Header: base}
	}

	base.RCode = result.Header.RCode
	return &dns.Packet{
		Header:      base,
		Answers:     result.Answers,
		Authorities: result.Authorities,
		Additionals: result.Additionals,
	}
}

func (h *QueryHandler) incQuery() {
	if h.Stats != nil {
		h.Stats.IncQuery()
	}
	if h.Metrics != nil {
		h.Metrics.QueriesTotal.Inc()
	}
}

func (h *QueryHandler) recordOutcome(rcode dns.RCode) {
	switch rcode {
	case dns.RCodeNXDomain:
		if h.Stats != nil {
			h.Stats.IncNXDomain()
		}
		if h.Metrics != nil {
			h.Metrics.NXDomainTotal.Inc()
		}
	case dns.RCodeServFail, dns.RCodeFormErr, dns.RCodeNotImp, dns.RCodeRefused:
		if h.Stats != nil {
			h.Stats.IncError()
		}
		if h.Metrics != nil {
			h.Metrics.ErrorTotal.Inc()
		}
	}
}

func (h *QueryHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func mustMarshal(p *dns.Packet, err error) []byte {
	if err != nil {
		return nil
	}
	b, merr := p.Marshal()
	if merr != nil {
		return nil
	}
	return b
}
