// Package wire implements the fixed-size DNS datagram buffer: a 512-byte
// array with a read/write cursor and the typed primitives the packet codec
// builds on, including label-compression jump handling.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/domainwalk/recudns/internal/helpers"
)

// Size is the fixed length of a DNS UDP datagram buffer.
const Size = 512

// maxJumps bounds the number of compression pointers followed while decoding
// a single domain name. A sixth jump fails the read.
const maxJumps = 5

// maxLabelLen is the maximum length in octets of a single domain label.
const maxLabelLen = 63

// ErrOutOfRange is returned when a read, write, or seek would cross the
// buffer's 512-byte bound.
var ErrOutOfRange = errors.New("wire: out of range")

// ErrName is returned for malformed domain-name encodings: labels over 63
// octets, too many compression jumps, or reserved pointer bits.
var ErrName = errors.New("wire: malformed name")

// Buffer is a fixed 512-byte datagram with a cursor in [0, Size].
type Buffer struct {
	buf [Size]byte
	pos int
}

// New returns an empty Buffer positioned at offset 0.
func New() *Buffer {
	return &Buffer{}
}

// NewFromBytes copies b into a new Buffer, positioned at offset 0. If b is
// longer than Size, only the first Size bytes are copied; callers that need
// to reject oversized datagrams should check len(b) themselves.
func NewFromBytes(b []byte) *Buffer {
	buf := &Buffer{}
	copy(buf.buf[:], b)
	return buf
}

// Pos returns the current cursor position.
func (b *Buffer) Pos() int {
	return b.pos
}

// Bytes returns the portion of the underlying array written so far, i.e.
// buf[:n], for a caller-supplied length n.
func (b *Buffer) Bytes(n int) []byte {
	return b.buf[:n]
}

// Seek repositions the cursor to an absolute offset.
func (b *Buffer) Seek(pos int) error {
	if pos < 0 || pos > Size {
		return fmt.Errorf("wire: seek to %d: %w", pos, ErrOutOfRange)
	}
	b.pos = pos
	return nil
}

// Step advances the cursor by n bytes.
func (b *Buffer) Step(n int) error {
	return b.Seek(b.pos + n)
}

// Peek reads the byte at pos without moving the cursor.
func (b *Buffer) Peek(pos int) (byte, error) {
	if pos < 0 || pos >= Size {
		return 0, fmt.Errorf("wire: peek at %d: %w", pos, ErrOutOfRange)
	}
	return b.buf[pos], nil
}

// Range borrows the byte slice [start, start+len). The bound check is
// deliberately >= rather than > Size, an off-by-one carried from the source
// this codec is modeled on: a request reaching exactly the last byte of the
// buffer is rejected. See DESIGN.md for why this is preserved.
func (b *Buffer) Range(start, length int) ([]byte, error) {
	if start < 0 || length < 0 || start+length >= Size {
		return nil, fmt.Errorf("wire: range [%d:%d+%d]: %w", start, start, length, ErrOutOfRange)
	}
	return b.buf[start : start+length], nil
}

// ReadU8 reads one byte and advances the cursor.
func (b *Buffer) ReadU8() (byte, error) {
	if b.pos >= Size {
		return 0, fmt.Errorf("wire: read u8 at %d: %w", b.pos, ErrOutOfRange)
	}
	v := b.buf[b.pos]
	b.pos++
	return v, nil
}

// ReadU16 reads a big-endian uint16 and advances the cursor.
func (b *Buffer) ReadU16() (uint16, error) {
	if b.pos+2 > Size {
		return 0, fmt.Errorf("wire: read u16 at %d: %w", b.pos, ErrOutOfRange)
	}
	v := binary.BigEndian.Uint16(b.buf[b.pos : b.pos+2])
	b.pos += 2
	return v, nil
}

// ReadU32 reads a big-endian uint32 and advances the cursor.
func (b *Buffer) ReadU32() (uint32, error) {
	if b.pos+4 > Size {
		return 0, fmt.Errorf("wire: read u32 at %d: %w", b.pos, ErrOutOfRange)
	}
	v := binary.BigEndian.Uint32(b.buf[b.pos : b.pos+4])
	b.pos += 4
	return v, nil
}

// WriteU8 writes one byte and advances the cursor.
func (b *Buffer) WriteU8(v byte) error {
	if b.pos >= Size {
		return fmt.Errorf("wire: write u8 at %d: %w", b.pos, ErrOutOfRange)
	}
	b.buf[b.pos] = v
	b.pos++
	return nil
}

// WriteU16 writes a big-endian uint16 and advances the cursor.
func (b *Buffer) WriteU16(v uint16) error {
	if b.pos+2 > Size {
		return fmt.Errorf("wire: write u16 at %d: %w", b.pos, ErrOutOfRange)
	}
	binary.BigEndian.PutUint16(b.buf[b.pos:b.pos+2], v)
	b.pos += 2
	return nil
}

// WriteU32 writes a big-endian uint32 and advances the cursor.
func (b *Buffer) WriteU32(v uint32) error {
	if b.pos+4 > Size {
		return fmt.Errorf("wire: write u32 at %d: %w", b.pos, ErrOutOfRange)
	}
	binary.BigEndian.PutUint32(b.buf[b.pos:b.pos+4], v)
	b.pos += 4
	return nil
}

// WriteBytes writes raw bytes and advances the cursor.
func (b *Buffer) WriteBytes(data []byte) error {
	if b.pos+len(data) > Size {
		return fmt.Errorf("wire: write %d bytes at %d: %w", len(data), b.pos, ErrOutOfRange)
	}
	copy(b.buf[b.pos:], data)
	b.pos += len(data)
	return nil
}

// PatchU16 writes v at pos without moving the cursor. Used to back-patch
// RDLENGTH fields after variable-length RDATA has been emitted.
func (b *Buffer) PatchU16(pos int, v uint16) error {
	if pos < 0 || pos+2 > Size {
		return fmt.Errorf("wire: patch u16 at %d: %w", pos, ErrOutOfRange)
	}
	binary.BigEndian.PutUint16(b.buf[pos:pos+2], v)
	return nil
}

// ReadQName decodes a (possibly compressed) domain name starting at the
// cursor and returns it as a lowercased, dot-joined string. The cursor
// finishes positioned just past the encoding as it appeared at the call
// site: past the terminating zero for an uncompressed name, or past the
// two-byte pointer if a jump was taken at the top level.
func (b *Buffer) ReadQName() (string, error) {
	pos := b.pos
	jumped := false
	jumps := 0
	var labels []string

	for {
		lenByte, err := b.Peek(pos)
		if err != nil {
			return "", fmt.Errorf("wire: read qname: %w", err)
		}

		if lenByte&0xC0 == 0xC0 {
			if jumps >= maxJumps {
				return "", fmt.Errorf("wire: read qname: too many jumps: %w", ErrName)
			}
			hi, err := b.Peek(pos)
			if err != nil {
				return "", err
			}
			lo, err := b.Peek(pos + 1)
			if err != nil {
				return "", fmt.Errorf("wire: read qname: %w", err)
			}
			if !jumped {
				if err := b.Seek(pos + 2); err != nil {
					return "", err
				}
				jumped = true
			}
			pos = int(uint16(hi&0x3F)<<8 | uint16(lo))
			jumps++
			continue
		}

		if lenByte&0xC0 != 0 {
			return "", fmt.Errorf("wire: read qname: reserved length bits set: %w", ErrName)
		}

		pos++
		if lenByte == 0 {
			if !jumped {
				if err := b.Seek(pos); err != nil {
					return "", err
				}
			}
			break
		}

		label, err := b.Range(pos, int(lenByte))
		if err != nil {
			return "", fmt.Errorf("wire: read qname: %w", err)
		}
		labels = append(labels, strings.ToLower(string(label)))
		pos += int(lenByte)

		if !jumped {
			if err := b.Seek(pos); err != nil {
				return "", err
			}
		}
	}

	return strings.Join(labels, "."), nil
}

// WriteQName encodes a dot-separated domain name as length-prefixed labels
// terminated by a zero byte. It never emits compression pointers. Each label
// must be 1-63 octets of non-dot bytes; the empty name ("" or ".") encodes
// as a bare terminator.
func (b *Buffer) WriteQName(name string) error {
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return b.WriteU8(0)
	}
	for _, label := range strings.Split(name, ".") {
		if len(label) == 0 {
			return fmt.Errorf("wire: write qname %q: empty label: %w", name, ErrName)
		}
		if len(label) > maxLabelLen {
			return fmt.Errorf("wire: write qname %q: label %q exceeds %d octets: %w", name, label, maxLabelLen, ErrName)
		}
		if err := b.WriteU8(helpers.ClampUint32ToUint8(uint32(len(label)))); err != nil {
			return err
		}
		if err := b.WriteBytes([]byte(label)); err != nil {
			return err
		}
	}
	return b.WriteU8(0)
}
