package dns

import (
	"fmt"
	"net"

	"github.com/domainwalk/recudns/internal/helpers"
	"github.com/domainwalk/recudns/internal/wire"
)

// RRHeader carries the fields shared by every resource record: owner name,
// class, and TTL. The type-specific payload lives on the concrete Record
// implementation.
type RRHeader struct {
	Name  string
	Class uint16
	TTL   uint32
}

// NewRRHeader builds an RRHeader for a record owned by name with the given
// class and TTL in seconds.
func NewRRHeader(name string, class uint16, ttl uint32) RRHeader {
	return RRHeader{Name: name, Class: class, TTL: ttl}
}

// Record is a DNS resource record. The type is a discriminated union,
// modeled as an interface with one concrete implementation per RDATA shape
// rather than a single struct carrying every possible field.
type Record interface {
	Header() RRHeader
	Type() RecordType
	MarshalRData(b *wire.Buffer) error
}

// IPRecord is an A or AAAA record; its type follows from the address family.
type IPRecord struct {
	H    RRHeader
	Addr net.IP
}

// NewIPRecord builds an IPRecord from raw address bytes (4 for A, 16 for AAAA).
func NewIPRecord(h RRHeader, addr []byte) *IPRecord {
	return &IPRecord{H: h, Addr: net.IP(addr)}
}

func (r *IPRecord) Header() RRHeader { return r.H }

func (r *IPRecord) Type() RecordType {
	if len(r.Addr) == 16 {
		return TypeAAAA
	}
	return TypeA
}

func (r *IPRecord) MarshalRData(b *wire.Buffer) error {
	switch r.Type() {
	case TypeA:
		v4 := r.Addr.To4()
		if v4 == nil {
			return fmt.Errorf("dns: marshal A rdata: not an IPv4 address: %w", ErrMalformed)
		}
		return b.WriteBytes(v4)
	case TypeAAAA:
		v6 := r.Addr.To16()
		if v6 == nil {
			return fmt.Errorf("dns: marshal AAAA rdata: not an IPv6 address: %w", ErrMalformed)
		}
		return b.WriteBytes(v6)
	default:
		return fmt.Errorf("dns: marshal ip record: unreachable type: %w", ErrMalformed)
	}
}

// NameRecord is an NS or CNAME record: a single target hostname.
type NameRecord struct {
	H      RRHeader
	T      RecordType
	Target string
}

// NewNameRecord builds a NameRecord of the given type (NS or CNAME).
func NewNameRecord(h RRHeader, t RecordType, target string) *NameRecord {
	return &NameRecord{H: h, T: t, Target: target}
}

func (r *NameRecord) Header() RRHeader    { return r.H }
func (r *NameRecord) Type() RecordType    { return r.T }
func (r *NameRecord) MarshalRData(b *wire.Buffer) error {
	if err := b.WriteQName(r.Target); err != nil {
		return fmt.Errorf("dns: marshal %s rdata: %w", r.T, err)
	}
	return nil
}

// MXRecord is a mail-exchange record: a priority and a target hostname.
type MXRecord struct {
	H        RRHeader
	Priority uint16
	Target   string
}

// NewMXRecord builds an MXRecord.
func NewMXRecord(h RRHeader, priority uint16, target string) *MXRecord {
	return &MXRecord{H: h, Priority: priority, Target: target}
}

func (r *MXRecord) Header() RRHeader { return r.H }
func (r *MXRecord) Type() RecordType { return TypeMX }

func (r *MXRecord) MarshalRData(b *wire.Buffer) error {
	if err := b.WriteU16(r.Priority); err != nil {
		return fmt.Errorf("dns: marshal MX priority: %w", err)
	}
	if err := b.WriteQName(r.Target); err != nil {
		return fmt.Errorf("dns: marshal MX target: %w", err)
	}
	return nil
}

// OpaqueRecord is any record type this resolver does not decode. Its RDATA
// is skipped during parse and is never re-emitted during marshal.
type OpaqueRecord struct {
	H       RRHeader
	T       RecordType
	DataLen uint16
}

// NewOpaqueRecord builds an OpaqueRecord carrying only its original type
// and RDATA length.
func NewOpaqueRecord(h RRHeader, t RecordType, dataLen uint16) *OpaqueRecord {
	return &OpaqueRecord{H: h, T: t, DataLen: dataLen}
}

func (r *OpaqueRecord) Header() RRHeader { return r.H }
func (r *OpaqueRecord) Type() RecordType { return r.T }

// MarshalRData is a no-op: UNKNOWN records are skipped silently during
// serialization (the caller must also skip writing their header/RDLENGTH).
func (r *OpaqueRecord) MarshalRData(b *wire.Buffer) error {
	return nil
}

// ParseRecord reads one resource record from the buffer's current cursor,
// dispatching the RDATA interpretation on the record's wire type.
func ParseRecord(b *wire.Buffer) (Record, error) {
	name, err := b.ReadQName()
	if err != nil {
		return nil, fmt.Errorf("dns: parse record name: %w", err)
	}
	rtype, err := b.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("dns: parse record type: %w", err)
	}
	class, err := b.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("dns: parse record class: %w", err)
	}
	ttl, err := b.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("dns: parse record ttl: %w", err)
	}
	rdlength, err := b.ReadU16()
	if err != nil {
		return nil, fmt.Errorf("dns: parse record rdlength: %w", err)
	}

	h := RRHeader{Name: name, Class: class, TTL: ttl}

	switch RecordType(rtype) {
	case TypeA:
		addr, err := b.Range(b.Pos(), 4)
		if err != nil {
			return nil, fmt.Errorf("dns: parse A rdata: %w", err)
		}
		ipCopy := append([]byte(nil), addr...)
		if err := b.Step(4); err != nil {
			return nil, err
		}
		return NewIPRecord(h, ipCopy), nil

	case TypeAAAA:
		addr, err := b.Range(b.Pos(), 16)
		if err != nil {
			return nil, fmt.Errorf("dns: parse AAAA rdata: %w", err)
		}
		ipCopy := append([]byte(nil), addr...)
		if err := b.Step(16); err != nil {
			return nil, err
		}
		return NewIPRecord(h, ipCopy), nil

	case TypeNS, TypeCNAME:
		target, err := b.ReadQName()
		if err != nil {
			return nil, fmt.Errorf("dns: parse %s rdata: %w", RecordType(rtype), err)
		}
		return NewNameRecord(h, RecordType(rtype), target), nil

	case TypeMX:
		priority, err := b.ReadU16()
		if err != nil {
			return nil, fmt.Errorf("dns: parse MX priority: %w", err)
		}
		target, err := b.ReadQName()
		if err != nil {
			return nil, fmt.Errorf("dns: parse MX target: %w", err)
		}
		return NewMXRecord(h, priority, target), nil

	default:
		if err := b.Step(int(rdlength)); err != nil {
			return nil, fmt.Errorf("dns: skip unknown rdata: %w", err)
		}
		return NewOpaqueRecord(h, RecordType(rtype), rdlength), nil
	}
}

// MarshalRecord writes a full resource record (owner, type, class, ttl,
// RDLENGTH, RDATA) at the buffer's current cursor. UNKNOWN-type records are
// skipped entirely, matching the serializer's documented behavior. Returns
// the number of bytes written.
func MarshalRecord(b *wire.Buffer, r Record) (int, error) {
	if _, ok := r.(*OpaqueRecord); ok {
		return 0, nil
	}

	start := b.Pos()
	h := r.Header()

	if err := b.WriteQName(h.Name); err != nil {
		return 0, fmt.Errorf("dns: marshal record name: %w", err)
	}
	if err := b.WriteU16(uint16(r.Type())); err != nil {
		return 0, fmt.Errorf("dns: marshal record type: %w", err)
	}
	if err := b.WriteU16(ClassIN); err != nil {
		return 0, fmt.Errorf("dns: marshal record class: %w", err)
	}
	if err := b.WriteU32(h.TTL); err != nil {
		return 0, fmt.Errorf("dns: marshal record ttl: %w", err)
	}

	rdlenPos := b.Pos()
	if err := b.WriteU16(0); err != nil {
		return 0, fmt.Errorf("dns: marshal record rdlength placeholder: %w", err)
	}

	rdataStart := b.Pos()
	if err := r.MarshalRData(b); err != nil {
		return 0, err
	}
	rdataLen := b.Pos() - rdataStart

	if err := b.PatchU16(rdlenPos, helpers.ClampIntToUint16(rdataLen)); err != nil {
		return 0, fmt.Errorf("dns: patch record rdlength: %w", err)
	}

	return b.Pos() - start, nil
}
