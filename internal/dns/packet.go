package dns

import (
	"fmt"
	"strings"

	"github.com/domainwalk/recudns/internal/helpers"
	"github.com/domainwalk/recudns/internal/wire"
)

// Packet is a full DNS message: header plus the four ordered record
// sections, in canonical DNS wire order.
type Packet struct {
	Header      Header
	Questions   []Question
	Answers     []Record
	Authorities []Record
	Additionals []Record
}

// Marshal serializes the packet into a fresh 512-byte wire buffer, after
// overwriting the header's section counts from the actual slice lengths.
// UNKNOWN-type records are skipped silently by MarshalRecord, so they are
// excluded from both the written bytes and the count used for their section
// -- a section's header count always matches the records it actually wrote.
func (p *Packet) Marshal() ([]byte, error) {
	answers := withoutOpaque(p.Answers)
	authorities := withoutOpaque(p.Authorities)
	additionals := withoutOpaque(p.Additionals)

	p.Header.QDCount = helpers.ClampIntToUint16(len(p.Questions))
	p.Header.ANCount = helpers.ClampIntToUint16(len(answers))
	p.Header.NSCount = helpers.ClampIntToUint16(len(authorities))
	p.Header.ARCount = helpers.ClampIntToUint16(len(additionals))

	b := wire.New()
	if err := p.Header.Marshal(b); err != nil {
		return nil, fmt.Errorf("dns: marshal packet header: %w", err)
	}
	for _, q := range p.Questions {
		if err := q.Marshal(b); err != nil {
			return nil, fmt.Errorf("dns: marshal packet question: %w", err)
		}
	}
	for _, sec := range [][]Record{answers, authorities, additionals} {
		for _, r := range sec {
			if _, err := MarshalRecord(b, r); err != nil {
				return nil, fmt.Errorf("dns: marshal packet record: %w", err)
			}
		}
	}
	return append([]byte(nil), b.Bytes(b.Pos())...), nil
}

func withoutOpaque(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if _, ok := r.(*OpaqueRecord); ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ParsePacket decodes a full DNS message from raw datagram bytes. Input
// shorter than a header or longer than the 512-byte datagram limit is
// rejected as malformed.
func ParsePacket(msg []byte) (*Packet, error) {
	if len(msg) < HeaderSize || len(msg) > wire.Size {
		return nil, fmt.Errorf("dns: parse packet: datagram of %d bytes: %w", len(msg), ErrMalformed)
	}
	b := wire.NewFromBytes(msg)

	h, err := ParseHeader(b)
	if err != nil {
		return nil, fmt.Errorf("dns: parse packet header: %w", err)
	}

	p := &Packet{Header: h}

	for i := 0; i < int(h.QDCount); i++ {
		q, err := ParseQuestion(b)
		if err != nil {
			return nil, fmt.Errorf("dns: parse packet question %d: %w", i, err)
		}
		p.Questions = append(p.Questions, q)
	}

	sections := []struct {
		count int
		dst   *[]Record
	}{
		{int(h.ANCount), &p.Answers},
		{int(h.NSCount), &p.Authorities},
		{int(h.ARCount), &p.Additionals},
	}
	for _, sec := range sections {
		for i := 0; i < sec.count; i++ {
			r, err := ParseRecord(b)
			if err != nil {
				return nil, fmt.Errorf("dns: parse packet record %d: %w", i, err)
			}
			*sec.dst = append(*sec.dst, r)
		}
	}

	return p, nil
}

// BuildErrorResponse constructs a response packet carrying the given id and
// rcode, with QR set. rcode must not be NOERROR — an error packet must carry
// an error.
func BuildErrorResponse(id uint16, rcode RCode) (*Packet, error) {
	if rcode == RCodeNoError {
		return nil, fmt.Errorf("dns: build error response: rcode must not be NOERROR: %w", ErrMalformed)
	}
	return &Packet{
		Header: Header{
			ID:       id,
			Response: true,
			RCode:    rcode,
		},
	}, nil
}

func isSuffix(owner, qname string) bool {
	owner = strings.ToLower(strings.TrimSuffix(owner, "."))
	qname = strings.ToLower(strings.TrimSuffix(qname, "."))
	if owner == qname {
		return true
	}
	return strings.HasSuffix(qname, "."+owner)
}

// NSTarget is one (owner, target-host) pair surfaced from the authority
// section by NsIter.
type NSTarget struct {
	Owner  string
	Target string
}

// NsIter yields the (owner, target-host) pairs from the authority section
// whose owner is a suffix of qname, in wire order.
func (p *Packet) NsIter(qname string) []NSTarget {
	var out []NSTarget
	for _, r := range p.Authorities {
		nr, ok := r.(*NameRecord)
		if !ok || nr.T != TypeNS {
			continue
		}
		if isSuffix(nr.Header().Name, qname) {
			out = append(out, NSTarget{Owner: nr.Header().Name, Target: nr.Target})
		}
	}
	return out
}

// ResolvedNS returns glue: taking the NS targets named by NsIter(qname) in
// wire order, it returns the first additional-section A-record owned by the
// first target that has one.
func (p *Packet) ResolvedNS(qname string) *IPRecord {
	targets := p.NsIter(qname)
	for _, t := range targets {
		for _, r := range p.Additionals {
			ip, ok := r.(*IPRecord)
			if !ok || ip.Type() != TypeA {
				continue
			}
			if strings.EqualFold(strings.TrimSuffix(ip.Header().Name, "."), strings.TrimSuffix(t.Target, ".")) {
				return ip
			}
		}
	}
	return nil
}

// UnresolvedNS returns the first NS target host named by NsIter(qname) that
// has no matching glue A-record in the additional section.
func (p *Packet) UnresolvedNS(qname string) string {
	targets := p.NsIter(qname)
	for _, t := range targets {
		found := false
		for _, r := range p.Additionals {
			ip, ok := r.(*IPRecord)
			if !ok || ip.Type() != TypeA {
				continue
			}
			if strings.EqualFold(strings.TrimSuffix(ip.Header().Name, "."), strings.TrimSuffix(t.Target, ".")) {
				found = true
				break
			}
		}
		if !found {
			return t.Target
		}
	}
	return ""
}

// AnyA returns the first A-record in the answer section, or nil if none.
func (p *Packet) AnyA() *IPRecord {
	for _, r := range p.Answers {
		if ip, ok := r.(*IPRecord); ok && ip.Type() == TypeA {
			return ip
		}
	}
	return nil
}
