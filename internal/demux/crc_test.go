package demux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRCCheckValue(t *testing.T) {
	var crc uint32
	for _, b := range []byte("123456789") {
		crc = crcUpdate(crc, b)
	}
	assert.Equal(t, uint32(0x89A1897F), crc)
}

func TestPageCRCIgnoresChecksumField(t *testing.T) {
	page := buildPage(t, testPage{flags: FlagFirstPage, serial: 7, segments: []byte{3}, body: []byte{1, 2, 3}})
	want := pageCRC(page)

	page[22], page[23], page[24], page[25] = 0xDE, 0xAD, 0xBE, 0xEF
	assert.Equal(t, want, pageCRC(page))

	page[len(page)-1] ^= 0xFF
	assert.NotEqual(t, want, pageCRC(page))
}
