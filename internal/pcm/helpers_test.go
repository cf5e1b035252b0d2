package pcm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/llehouerou/vorbisdemux/internal/bytesource"
	"github.com/llehouerou/vorbisdemux/internal/demux"
)

var errBadPacket = errors.New("bad packet")

// fakeCodec decodes each packet byte b into one frame whose channel c
// holds b + c/2. A packet starting with 0xEE fails to decode.
type fakeCodec struct {
	channels int
	rate     int
	headers  [][]byte
	resets   int
}

func newFakeCodec(ident []byte) (Codec, error) {
	return &fakeCodec{
		channels: int(ident[11]),
		rate:     int(binary.LittleEndian.Uint32(ident[12:16])),
	}, nil
}

func (c *fakeCodec) SampleRate() int { return c.rate }
func (c *fakeCodec) Channels() int   { return c.channels }

func (c *fakeCodec) AddHeaderPacket(packet []byte) (bool, error) {
	c.headers = append(c.headers, packet)
	return len(c.headers) >= 2, nil
}

func (c *fakeCodec) Decode(packet []byte, pcm []float32) (int, error) {
	if len(packet) > 0 && packet[0] == 0xEE {
		return 0, errBadPacket
	}
	for i, b := range packet {
		for ch := range c.channels {
			pcm[i*c.channels+ch] = float32(b) + float32(ch)/2
		}
	}
	return len(packet), nil
}

func (c *fakeCodec) Reset() error {
	c.resets++
	return nil
}

type result struct {
	packet []byte
	err    error
}

// fakeSource replays results, then io.EOF.
type fakeSource struct {
	results []result
}

func (f *fakeSource) NextAudioPacket() ([]byte, error) {
	if len(f.results) == 0 {
		return nil, io.EOF
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.packet, r.err
}

// resyncingSource is a fakeSource that can recover.
type resyncingSource struct {
	fakeSource
	resyncErr error
	calls     int
}

func (r *resyncingSource) Resync() (int64, uint64, error) {
	r.calls++
	return 100, 4096, r.resyncErr
}

var crcTable = func() [256]uint32 {
	var t [256]uint32
	for i := range t {
		r := uint32(i) << 24
		for range 8 {
			if r&0x80000000 != 0 {
				r = r<<1 ^ 0x04C11DB7
			} else {
				r <<= 1
			}
		}
		t[i] = r
	}
	return t
}()

// buildPage serializes a page holding whole packets, each under 255 bytes.
func buildPage(flags byte, granule uint64, seq uint32, packets ...[]byte) []byte {
	var segs, body []byte
	for _, p := range packets {
		segs = append(segs, byte(len(p)))
		body = append(body, p...)
	}
	page := make([]byte, 27, 27+len(segs)+len(body))
	copy(page, "OggS")
	page[5] = flags
	binary.LittleEndian.PutUint64(page[6:14], granule)
	binary.LittleEndian.PutUint32(page[14:18], 0xCAFE)
	binary.LittleEndian.PutUint32(page[18:22], seq)
	page[26] = byte(len(segs))
	page = append(page, segs...)
	page = append(page, body...)

	var crc uint32
	for _, b := range page {
		crc = crc<<8 ^ crcTable[byte(crc>>24)^b]
	}
	binary.LittleEndian.PutUint32(page[22:26], crc)
	return page
}

func identHeader(channels byte, rate uint32) []byte {
	p := make([]byte, 30)
	p[0] = demux.PacketIdentification
	copy(p[1:7], "vorbis")
	p[11] = channels
	binary.LittleEndian.PutUint32(p[12:16], rate)
	p[28] = 0xB8
	p[29] = 1
	return p
}

var (
	testComment = []byte{demux.PacketComment, 'v', 'o', 'r', 'b', 'i', 's', 2, 0, 0, 0, 'h', 'i', 0, 0, 0, 0, 1}
	testSetup   = []byte{demux.PacketSetup, 'v', 'o', 'r', 'b', 'i', 's', 0}
)

// testStream builds a three-page stream whose last page carries granule.
func testStream(channels byte, granule uint64, audio ...[]byte) []byte {
	var out bytes.Buffer
	out.Write(buildPage(demux.FlagFirstPage, 0, 0, identHeader(channels, 44100)))
	out.Write(buildPage(0, 0, 1, testComment, testSetup))
	out.Write(buildPage(demux.FlagLastPage, granule, 2, audio...))
	return out.Bytes()
}

func newTestDecoder(t *testing.T, data []byte, opts ...demux.Option) *demux.Decoder {
	t.Helper()
	src, err := bytesource.NewFile(bytes.NewReader(data))
	require.NoError(t, err)
	return demux.New(src, opts...)
}
