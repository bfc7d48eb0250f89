// Package resolver implements the iterative, root-walking DNS resolution
// state machine and the single-shot external lookup it drives.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/domainwalk/recudns/internal/admin"
	"github.com/domainwalk/recudns/internal/cache"
	"github.com/domainwalk/recudns/internal/dns"
)

// ExternalLookup performs one upstream query exchange. Lookup in this
// package satisfies this signature; tests substitute a fake.
type ExternalLookup func(ctx context.Context, qname string, qtype dns.RecordType, server string) (*dns.Packet, error)

// phase distinguishes "searching for the original qname" from "searching
// for the address of an intermediate nameserver".
type phase int

const (
	searchingQName phase = iota
	searchingNS
)

// Resolver drives the iterative resolution loop: consult the cache, query
// upstream, follow delegations, and write newly learned A-records back to
// the cache.
type Resolver struct {
	Cache      *cache.Store
	Lookup     ExternalLookup
	RootServer string // "host:53"
	MaxHops    int
	Logger     *slog.Logger

	// Stats and Metrics are optional; when nil, upstream lookups are not
	// counted. Set by the bootstrap so /stats and /metrics reflect live
	// external-lookup volume, not just per-query outcomes.
	Stats   *admin.QueryStats
	Metrics *admin.Metrics
}

// New builds a Resolver with sane defaults (MaxHops=16, Lookup=resolver.Lookup).
func New(store *cache.Store, rootServer string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		Cache:      store,
		Lookup:     Lookup,
		RootServer: rootServer,
		MaxHops:    16,
		Logger:     logger,
	}
}

// Resolve walks the DNS tree from the root for (qname, qtype) and returns a
// packet carrying the answer/authority/additional sections for the client
// response. The caller is responsible for applying a deadline via ctx; this
// function carries no native timeout.
func (r *Resolver) Resolve(ctx context.Context, qname string, qtype dns.RecordType) (*dns.Packet, error) {
	maxHops := r.MaxHops
	if maxHops <= 0 {
		maxHops = 16
	}

	currentNS := r.RootServer
	currentlyQuerying := qname
	currentType := qtype
	ph := searchingQName

	for hop := 0; hop < maxHops; hop++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("resolver: resolve %q: %w", qname, ctx.Err())
		}

		// 1. Cache consult.
		if entry, err := r.Cache.Lookup(ctx, currentlyQuerying); err == nil {
			rec, convErr := entry.ToRecord()
			if convErr != nil {
				r.Logger.Error("resolver: cache integrity violation", "domain", currentlyQuerying, "err", convErr)
			} else if ip, ok := rec.(*dns.IPRecord); ok {
				if ph == searchingNS {
					currentNS = fmt.Sprintf("%s:53", ip.Addr.String())
					currentlyQuerying = qname
					currentType = qtype
					ph = searchingQName
					continue
				}
				return singleAnswerPacket(rec), nil
			} else if ph == searchingQName {
				return singleAnswerPacket(rec), nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			r.Logger.Error("resolver: cache lookup error, treating as miss", "domain", currentlyQuerying, "err", err)
		}

		// 2. Upstream query.
		if r.Stats != nil {
			r.Stats.IncUpstreamLookup()
		}
		if r.Metrics != nil {
			r.Metrics.UpstreamLookups.Inc()
		}
		resp, err := r.Lookup(ctx, currentlyQuerying, currentType, currentNS)
		if err != nil {
			return nil, fmt.Errorf("resolver: resolve %q: %w", qname, err)
		}

		// 3. NS phase completion.
		if ph == searchingNS {
			if a := resp.AnyA(); a != nil {
				r.insertA(ctx, currentlyQuerying, a)
				currentNS = fmt.Sprintf("%s:53", a.Addr.String())
				currentlyQuerying = qname
				currentType = qtype
				ph = searchingQName
				continue
			}
		}

		// 4. Answer arrival.
		if len(resp.Answers) > 0 && resp.Header.RCode == dns.RCodeNoError {
			if a := resp.AnyA(); a != nil {
				r.insertA(ctx, currentlyQuerying, a)
			}
			return resp, nil
		}

		// 5. NXDOMAIN.
		if resp.Header.RCode == dns.RCodeNXDomain {
			return resp, nil
		}

		// 6. Follow glue.
		if glue := resp.ResolvedNS(currentlyQuerying); glue != nil {
			r.insertA(ctx, glue.Header().Name, glue)
			currentNS = fmt.Sprintf("%s:53", glue.Addr.String())
			continue
		}

		// 7. Unresolved NS.
		if unresolved := resp.UnresolvedNS(currentlyQuerying); unresolved != "" {
			ph = searchingNS
			currentlyQuerying = unresolved
			currentType = dns.TypeA
			currentNS = r.RootServer
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("resolver: resolve %q: %w", qname, ErrTooManyHops)
}

func (r *Resolver) insertA(ctx context.Context, domain string, a *dns.IPRecord) {
	if err := r.Cache.InsertA(ctx, domain, a.Addr, a.Header().TTL); err != nil {
		r.Logger.Error("resolver: failed to cache A record", "domain", domain, "err", err)
	}
}

func singleAnswerPacket(rec dns.Record) *dns.Packet {
	return &dns.Packet{
		Header:  dns.Header{RCode: dns.RCodeNoError},
		Answers: []dns.Record{rec},
	}
}
