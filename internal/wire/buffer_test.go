package wire_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domainwalk/recudns/internal/wire"
)

func TestReadWriteIntegers(t *testing.T) {
	b := wire.New()
	require.NoError(t, b.WriteU8(0xAB))
	require.NoError(t, b.WriteU16(0x1234))
	require.NoError(t, b.WriteU32(0xDEADBEEF))

	require.NoError(t, b.Seek(0))
	v8, err := b.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), v8)

	v16, err := b.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v16)

	v32, err := b.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), v32)
}

func TestWriteOverflowFails(t *testing.T) {
	b := wire.New()
	require.NoError(t, b.Seek(511))
	assert.Error(t, b.WriteU16(1))
}

func TestPatchU16DoesNotMoveCursor(t *testing.T) {
	b := wire.New()
	require.NoError(t, b.WriteU16(0))
	require.NoError(t, b.WriteU16(0xFFFF))
	posBefore := b.Pos()

	require.NoError(t, b.PatchU16(0, 0x1234))
	assert.Equal(t, posBefore, b.Pos())

	require.NoError(t, b.Seek(0))
	v, err := b.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v)
}

func TestRangeOffByOneBoundary(t *testing.T) {
	b := wire.New()
	// start+len == 512 is rejected; this is the documented, preserved
	// off-by-one.
	_, err := b.Range(500, 12)
	assert.Error(t, err)
	// start+len == 511 succeeds.
	_, err = b.Range(500, 11)
	assert.NoError(t, err)
}

func TestWriteQNameRejectsOverlongLabel(t *testing.T) {
	b := wire.New()
	longLabel := strings.Repeat("a", 64)
	err := b.WriteQName(longLabel + ".com")
	assert.Error(t, err)
}

func TestWriteQNameAcceptsMaxLabel(t *testing.T) {
	b := wire.New()
	label63 := strings.Repeat("a", 63)
	err := b.WriteQName(label63 + ".com")
	assert.NoError(t, err)
}

func TestQNameRoundTrip(t *testing.T) {
	names := []string{"example.com", "wiki.archlinux.org", "a.b.c"}
	for _, name := range names {
		b := wire.New()
		require.NoError(t, b.WriteQName(name))
		require.NoError(t, b.Seek(0))
		got, err := b.ReadQName()
		require.NoError(t, err)
		assert.Equal(t, name, got)
	}
}

func TestQNameCompressionPointer(t *testing.T) {
	b := wire.New()
	require.NoError(t, b.WriteQName("example.com"))
	pointerAt := b.Pos()
	require.NoError(t, b.WriteU16(0xC000))

	require.NoError(t, b.Seek(pointerAt))
	name, err := b.ReadQName()
	require.NoError(t, err)
	assert.Equal(t, "example.com", name)
	// cursor advances past the two-byte pointer, not into the jumped region.
	assert.Equal(t, pointerAt+2, b.Pos())
}

func TestQNameJumpCycleRejected(t *testing.T) {
	b := wire.New()
	require.NoError(t, b.Seek(0))
	require.NoError(t, b.WriteU16(0xC000|2))
	require.NoError(t, b.WriteU16(0xC000|0))

	require.NoError(t, b.Seek(0))
	_, err := b.ReadQName()
	assert.Error(t, err)
}
