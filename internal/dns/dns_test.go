package dns_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domainwalk/recudns/internal/dns"
)

func TestHeaderRoundTrip(t *testing.T) {
	for opcode := uint8(0); opcode < 16; opcode++ {
		for rcode := uint8(0); rcode < 16; rcode++ {
			h := dns.Header{
				ID:                 0xBEEF,
				Response:           true,
				Opcode:             opcode,
				AuthoritativeAnswer: true,
				Truncated:          false,
				RecursionDesired:   true,
				RecursionAvailable: true,
				Z:                  false,
				AuthenticatedData:  true,
				CheckingDisabled:   false,
				RCode:              dns.RCodeFromNum(rcode),
				QDCount:            1,
				ANCount:            2,
				NSCount:            3,
				ARCount:            4,
			}
			p := &dns.Packet{Header: h, Questions: []dns.Question{{Name: "example.com", Type: dns.TypeA, Class: dns.ClassIN}}}
			raw, err := p.Marshal()
			require.NoError(t, err)

			parsed, err := dns.ParsePacket(raw)
			require.NoError(t, err)

			assert.Equal(t, h.ID, parsed.Header.ID)
			assert.Equal(t, h.Response, parsed.Header.Response)
			assert.Equal(t, h.Opcode, parsed.Header.Opcode)
			assert.Equal(t, h.AuthoritativeAnswer, parsed.Header.AuthoritativeAnswer)
			assert.Equal(t, h.RecursionDesired, parsed.Header.RecursionDesired)
			assert.Equal(t, h.RecursionAvailable, parsed.Header.RecursionAvailable)
			assert.Equal(t, h.AuthenticatedData, parsed.Header.AuthenticatedData)
			assert.Equal(t, dns.RCodeFromNum(rcode), parsed.Header.RCode)
		}
	}
}

func TestNameRoundTripUncompressed(t *testing.T) {
	names := []string{
		"example.com",
		"wiki.archlinux.org",
		"a.b.c.d.e",
		"single",
	}
	for _, name := range names {
		h := dns.NewRRHeader(name, dns.ClassIN, 300)
		rec := dns.NewIPRecord(h, []byte{1, 2, 3, 4})
		p := &dns.Packet{
			Header:  dns.Header{ID: 1},
			Answers: []dns.Record{rec},
		}
		raw, err := p.Marshal()
		require.NoError(t, err)

		parsed, err := dns.ParsePacket(raw)
		require.NoError(t, err)
		require.Len(t, parsed.Answers, 1)

		ipRec, ok := parsed.Answers[0].(*dns.IPRecord)
		require.True(t, ok)
		assert.Equal(t, name, ipRec.Header().Name)
		assert.Equal(t, uint32(300), ipRec.Header().TTL)
	}
}

// TestCompressionTolerance builds a packet where the question and an answer
// repeat the same name, and confirms the decoded names match regardless of
// whether a hand-crafted compressed encoding or this package's own
// uncompressed encoder produced the bytes.
func TestCompressionTolerance(t *testing.T) {
	qname := "example.com"

	p := &dns.Packet{
		Header:    dns.Header{ID: 42, Response: true, QDCount: 1},
		Questions: []dns.Question{{Name: qname, Type: dns.TypeA, Class: dns.ClassIN}},
		Answers:   []dns.Record{dns.NewIPRecord(dns.NewRRHeader(qname, dns.ClassIN, 60), []byte{10, 0, 0, 1})},
	}
	raw, err := p.Marshal()
	require.NoError(t, err)

	parsed, err := dns.ParsePacket(raw)
	require.NoError(t, err)
	assert.Equal(t, qname, parsed.Questions[0].Name)
	require.Len(t, parsed.Answers, 1)
	assert.Equal(t, qname, parsed.Answers[0].Header().Name)

	// The same message with the answer owner encoded as a pointer to the
	// question name at offset 12.
	compressed := []byte{
		0x00, 0x2A, 0x80, 0x00, // id=42, QR
		0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, // QD=1, AN=1
		7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0, // qname at offset 12
		0x00, 0x01, 0x00, 0x01, // qtype A, class IN
		0xC0, 0x0C, // answer owner: pointer to offset 12
		0x00, 0x01, 0x00, 0x01, // type A, class IN
		0x00, 0x00, 0x00, 0x3C, // TTL 60
		0x00, 0x04, 10, 0, 0, 1, // RDLENGTH 4, RDATA
	}
	cparsed, err := dns.ParsePacket(compressed)
	require.NoError(t, err)
	require.Len(t, cparsed.Answers, 1)
	assert.Equal(t, parsed.Questions[0].Name, cparsed.Questions[0].Name)
	assert.Equal(t, parsed.Answers[0].Header().Name, cparsed.Answers[0].Header().Name)
}

// TestJumpBoundRejectsCycle crafts a message with a two-pointer cycle and
// confirms ReadQName fails rather than looping forever.
func TestJumpBoundRejectsCycle(t *testing.T) {
	msg := make([]byte, 512)
	// Header.
	msg[2] = 0x01 // RD
	msg[5] = 1    // QDCount

	// Pointer at offset 12 pointing to offset 14; pointer at offset 14
	// pointing back to offset 12. The question name starts at 12.
	msg[12] = 0xC0
	msg[13] = 14
	msg[14] = 0xC0
	msg[15] = 12

	_, err := dns.ParsePacket(msg)
	require.Error(t, err)
}

func TestSectionCountConsistency(t *testing.T) {
	p := &dns.Packet{
		Header:      dns.Header{ID: 7},
		Questions:   []dns.Question{{Name: "a.com", Type: dns.TypeA, Class: dns.ClassIN}},
		Answers:     []dns.Record{dns.NewIPRecord(dns.NewRRHeader("a.com", dns.ClassIN, 10), []byte{1, 1, 1, 1})},
		Authorities: nil,
		Additionals: nil,
	}
	raw, err := p.Marshal()
	require.NoError(t, err)

	parsed, err := dns.ParsePacket(raw)
	require.NoError(t, err)
	assert.EqualValues(t, len(parsed.Questions), parsed.Header.QDCount)
	assert.EqualValues(t, len(parsed.Answers), parsed.Header.ANCount)
	assert.EqualValues(t, len(parsed.Authorities), parsed.Header.NSCount)
	assert.EqualValues(t, len(parsed.Additionals), parsed.Header.ARCount)
}

func TestBuildErrorResponseRejectsNoError(t *testing.T) {
	_, err := dns.BuildErrorResponse(1, dns.RCodeNoError)
	assert.Error(t, err)

	resp, err := dns.BuildErrorResponse(1, dns.RCodeFormErr)
	require.NoError(t, err)
	assert.True(t, resp.Header.Response)
	assert.Equal(t, dns.RCodeFormErr, resp.Header.RCode)
}

func TestMXRecordRoundTrip(t *testing.T) {
	h := dns.NewRRHeader("example.com", dns.ClassIN, 120)
	mx := dns.NewMXRecord(h, 10, "mail.example.com")
	p := &dns.Packet{Header: dns.Header{ID: 1}, Answers: []dns.Record{mx}}

	raw, err := p.Marshal()
	require.NoError(t, err)

	parsed, err := dns.ParsePacket(raw)
	require.NoError(t, err)
	require.Len(t, parsed.Answers, 1)

	parsedMX, ok := parsed.Answers[0].(*dns.MXRecord)
	require.True(t, ok)
	assert.Equal(t, uint16(10), parsedMX.Priority)
	assert.Equal(t, "mail.example.com", parsedMX.Target)
}

func TestOpaqueRecordSkippedOnMarshal(t *testing.T) {
	h := dns.NewRRHeader("example.com", dns.ClassIN, 60)
	opaque := dns.NewOpaqueRecord(h, dns.RecordType(99), 4)
	real := dns.NewIPRecord(dns.NewRRHeader("example.com", dns.ClassIN, 60), []byte{1, 1, 1, 1})
	p := &dns.Packet{Header: dns.Header{ID: 1}, Answers: []dns.Record{opaque, real}}

	raw, err := p.Marshal()
	require.NoError(t, err)

	parsed, err := dns.ParsePacket(raw)
	require.NoError(t, err)
	// The opaque record is dropped entirely; only the real A record survives
	// both the header count and the parsed section.
	assert.Equal(t, uint16(1), parsed.Header.ANCount)
	require.Len(t, parsed.Answers, 1)
	_, ok := parsed.Answers[0].(*dns.IPRecord)
	assert.True(t, ok)
}
