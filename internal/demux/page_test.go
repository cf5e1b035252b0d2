package demux

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartPage_ParsesHeader(t *testing.T) {
	page := buildPage(t, testPage{
		flags:    FlagFirstPage,
		granule:  48000,
		serial:   testSerial,
		seq:      3,
		segments: []byte{255, 45, 10},
		body:     make([]byte, 310),
	})
	d, src := newFileDecoder(t, page)

	require.NoError(t, d.StartPage())

	assert.Equal(t, uint32(3), d.PageSequence())
	assert.Equal(t, byte(FlagFirstPage), d.PageFlags())
	assert.Equal(t, []byte{255, 45, 10}, d.Segments())
	assert.Equal(t, 2, d.KnownGranuleSegment())
	assert.Equal(t, 1, d.PagesRead())
	assert.Equal(t, int64(pageHeaderSize+3), src.Position(), "body is not consumed by StartPage")

	probe, ok := d.FirstProbedPage()
	require.True(t, ok)
	assert.Equal(t, int64(0), probe.PageStart)
	assert.Equal(t, int64(len(page)), probe.PageEnd)
	assert.Equal(t, uint64(48000), probe.LastDecodedSample)
	assert.True(t, probe.GranuleKnown)
}

func TestStartPage_MissingCapturePattern(t *testing.T) {
	page := buildPage(t, testPage{serial: testSerial, segments: []byte{1}, body: []byte{9}})

	for pos := range 4 {
		t.Run(string(capturePattern[pos]), func(t *testing.T) {
			bad := bytes.Clone(page)
			bad[pos] = 'x'
			d, _ := newFileDecoder(t, bad)

			err := d.StartPage()
			require.ErrorIs(t, err, ErrMissingCapturePattern)
			assert.Equal(t, ErrMissingCapturePattern, d.LastError())
			assert.Equal(t, 0, d.PagesRead())
			assert.False(t, d.EndOfInput())
		})
	}
}

func TestStartPage_RetryFromCorrectedPosition(t *testing.T) {
	page := buildPage(t, testPage{serial: testSerial, seq: 9, segments: []byte{1}, body: []byte{9}})
	data := append([]byte("junk"), page...)
	d, src := newFileDecoder(t, data)

	require.ErrorIs(t, d.StartPage(), ErrMissingCapturePattern)

	require.NoError(t, src.Seek(4))
	require.NoError(t, d.StartPage())
	assert.Equal(t, uint32(9), d.PageSequence())
}

func TestStartPage_InvalidVersion(t *testing.T) {
	page := buildPage(t, testPage{serial: testSerial, segments: []byte{1}, body: []byte{9}})
	page[4] = 1
	d, _ := newFileDecoder(t, page)

	assert.ErrorIs(t, d.StartPage(), ErrInvalidStreamStructureVersion)
	assert.Equal(t, ErrInvalidStreamStructureVersion, d.LastError())
}

func TestStartPage_Truncated(t *testing.T) {
	page := buildPage(t, testPage{serial: testSerial, segments: []byte{1, 2, 3}, body: make([]byte, 6)})

	tests := []struct {
		name string
		cut  int
	}{
		{"inside capture pattern", 2},
		{"inside header", 15},
		{"before segment count", 26},
		{"inside lacing table", pageHeaderSize + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newFileDecoder(t, page[:tt.cut])
			assert.ErrorIs(t, d.StartPage(), ErrUnexpectedEndOfInput)
			assert.True(t, d.EndOfInput())
			assert.Equal(t, 0, d.PagesRead())
		})
	}
}

func TestStartPage_GranuleTracking(t *testing.T) {
	tests := []struct {
		name     string
		granule  uint64
		segments []byte
		want     int
	}{
		{"sentinel granule", ^uint64(0), []byte{10}, -2},
		{"sentinel granule with many packets", ^uint64(0), []byte{10, 20, 30}, -2},
		{"last packet ends mid page", 1234, []byte{255, 10, 255}, 1},
		{"last segment ends packet", 1234, []byte{20, 255, 3}, 2},
		{"no packet ends", 1234, []byte{255, 255}, -2},
		{"only high half all ones", 0xFFFFFFFF00000000, []byte{7}, 0},
		{"only low half all ones", 0x00000000FFFFFFFF, []byte{7}, 0},
		{"empty page", 99, []byte{}, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var size int
			for _, s := range tt.segments {
				size += int(s)
			}
			page := buildPage(t, testPage{
				granule:  tt.granule,
				serial:   testSerial,
				segments: tt.segments,
				body:     make([]byte, size),
			})
			d, _ := newFileDecoder(t, page)
			require.NoError(t, d.StartPage())
			assert.Equal(t, tt.want, d.KnownGranuleSegment())
		})
	}
}

func TestStartPage_SerialMismatch(t *testing.T) {
	var data []byte
	data = append(data, buildPage(t, testPage{serial: 1, segments: []byte{1}, body: []byte{0}})...)
	data = append(data, buildPage(t, testPage{serial: 2, seq: 1, segments: []byte{1}, body: []byte{0}})...)

	t.Run("checked", func(t *testing.T) {
		d, src := newFileDecoder(t, data)
		require.NoError(t, d.StartPage())
		require.NoError(t, src.Skip(1))
		assert.ErrorIs(t, d.StartPage(), ErrIncorrectStreamSerialNumber)
		assert.Equal(t, 1, d.PagesRead())
	})

	t.Run("unchecked", func(t *testing.T) {
		d, src := newFileDecoder(t, data, WithSerialCheck(false))
		require.NoError(t, d.StartPage())
		require.NoError(t, src.Skip(1))
		assert.NoError(t, d.StartPage())
		assert.Equal(t, 2, d.PagesRead())
	})
}
