package cache

import (
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/domainwalk/recudns/internal/dns"
)

// Entry is a persistent cache row: one resolved resource record with an
// absolute expiration timestamp. The non-null column set is fixed per
// RecordType (A/AAAA use Address; CNAME/NS use Host; MX uses Host+Priority),
// per the column-set invariant in the data model.
type Entry struct {
	ID             int64
	Address        sql.NullString
	Host           sql.NullString
	Priority       sql.NullInt64
	Domain         string
	ExpirationDate time.Time
	TTL            uint32
	RecordType     uint16
}

// Valid reports whether the entry has not yet expired as of now.
func (e Entry) Valid(now time.Time) bool {
	return !e.ExpirationDate.Before(now)
}

// ToRecord reconstructs a typed dns.Record from the stored columns,
// enforcing the column-set invariant. A row whose columns don't match its
// declared record_type is a data-integrity error.
func (e Entry) ToRecord() (dns.Record, error) {
	h := dns.NewRRHeader(e.Domain, dns.ClassIN, e.TTL)

	switch dns.RecordType(e.RecordType) {
	case dns.TypeA:
		if !e.Address.Valid {
			return nil, fmt.Errorf("cache: entry %d: A row missing address: %w", e.ID, ErrIntegrity)
		}
		ip := net.ParseIP(e.Address.String).To4()
		if ip == nil {
			return nil, fmt.Errorf("cache: entry %d: address %q is not a valid IPv4: %w", e.ID, e.Address.String, ErrIntegrity)
		}
		return dns.NewIPRecord(h, ip), nil

	case dns.TypeAAAA:
		if !e.Address.Valid {
			return nil, fmt.Errorf("cache: entry %d: AAAA row missing address: %w", e.ID, ErrIntegrity)
		}
		ip := net.ParseIP(e.Address.String).To16()
		if ip == nil {
			return nil, fmt.Errorf("cache: entry %d: address %q is not a valid IPv6: %w", e.ID, e.Address.String, ErrIntegrity)
		}
		return dns.NewIPRecord(h, ip), nil

	case dns.TypeNS, dns.TypeCNAME:
		if !e.Host.Valid {
			return nil, fmt.Errorf("cache: entry %d: %s row missing host: %w", e.ID, dns.RecordType(e.RecordType), ErrIntegrity)
		}
		return dns.NewNameRecord(h, dns.RecordType(e.RecordType), e.Host.String), nil

	case dns.TypeMX:
		if !e.Host.Valid || !e.Priority.Valid {
			return nil, fmt.Errorf("cache: entry %d: MX row missing host/priority: %w", e.ID, ErrIntegrity)
		}
		return dns.NewMXRecord(h, uint16(e.Priority.Int64), e.Host.String), nil

	default:
		return nil, fmt.Errorf("cache: entry %d: unsupported record_type %d: %w", e.ID, e.RecordType, ErrIntegrity)
	}
}
