package dns

import (
	"fmt"

	"github.com/domainwalk/recudns/internal/wire"
)

// HeaderSize is the fixed on-wire size of a DNS header in bytes.
const HeaderSize = 12

// Header is the 12-byte DNS message header, decomposed into its individual
// bit fields rather than kept as an opaque flags word.
type Header struct {
	ID uint16

	Response           bool
	Opcode             uint8
	AuthoritativeAnswer bool
	Truncated          bool
	RecursionDesired   bool
	RecursionAvailable bool
	Z                  bool
	AuthenticatedData  bool
	CheckingDisabled   bool
	RCode              RCode

	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// Marshal writes the header at the buffer's current cursor.
func (h Header) Marshal(b *wire.Buffer) error {
	if err := b.WriteU16(h.ID); err != nil {
		return fmt.Errorf("dns: marshal header id: %w", err)
	}

	var byte0 byte
	if h.RecursionDesired {
		byte0 |= 0x01
	}
	if h.Truncated {
		byte0 |= 0x02
	}
	if h.AuthoritativeAnswer {
		byte0 |= 0x04
	}
	byte0 |= (h.Opcode & 0x0F) << 3
	if h.Response {
		byte0 |= 0x80
	}
	if err := b.WriteU8(byte0); err != nil {
		return fmt.Errorf("dns: marshal header flags0: %w", err)
	}

	var byte1 byte
	byte1 |= byte(h.RCode) & 0x0F
	if h.CheckingDisabled {
		byte1 |= 0x10
	}
	if h.AuthenticatedData {
		byte1 |= 0x20
	}
	if h.Z {
		byte1 |= 0x40
	}
	if h.RecursionAvailable {
		byte1 |= 0x80
	}
	if err := b.WriteU8(byte1); err != nil {
		return fmt.Errorf("dns: marshal header flags1: %w", err)
	}

	for _, v := range []uint16{h.QDCount, h.ANCount, h.NSCount, h.ARCount} {
		if err := b.WriteU16(v); err != nil {
			return fmt.Errorf("dns: marshal header counts: %w", err)
		}
	}
	return nil
}

// ParseHeader reads a Header from the buffer's current cursor.
func ParseHeader(b *wire.Buffer) (Header, error) {
	var h Header

	id, err := b.ReadU16()
	if err != nil {
		return Header{}, fmt.Errorf("dns: parse header id: %w", err)
	}
	h.ID = id

	byte0, err := b.ReadU8()
	if err != nil {
		return Header{}, fmt.Errorf("dns: parse header flags0: %w", err)
	}
	h.RecursionDesired = byte0&0x01 != 0
	h.Truncated = byte0&0x02 != 0
	h.AuthoritativeAnswer = byte0&0x04 != 0
	h.Opcode = (byte0 >> 3) & 0x0F
	h.Response = byte0&0x80 != 0

	byte1, err := b.ReadU8()
	if err != nil {
		return Header{}, fmt.Errorf("dns: parse header flags1: %w", err)
	}
	h.RCode = RCodeFromNum(byte1 & 0x0F)
	h.CheckingDisabled = byte1&0x10 != 0
	h.AuthenticatedData = byte1&0x20 != 0
	h.Z = byte1&0x40 != 0
	h.RecursionAvailable = byte1&0x80 != 0

	counts := make([]*uint16, 0, 4)
	counts = append(counts, &h.QDCount, &h.ANCount, &h.NSCount, &h.ARCount)
	for _, c := range counts {
		v, err := b.ReadU16()
		if err != nil {
			return Header{}, fmt.Errorf("dns: parse header counts: %w", err)
		}
		*c = v
	}
	return h, nil
}
