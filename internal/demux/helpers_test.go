package demux

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/llehouerou/vorbisdemux/internal/bytesource"
)

const testSerial = 0x1234

// testPage describes one page to serialize.
type testPage struct {
	flags    byte
	granule  uint64
	serial   uint32
	seq      uint32
	segments []byte
	body     []byte
}

// buildPage serializes p with a valid CRC.
func buildPage(t *testing.T, p testPage) []byte {
	t.Helper()

	var bodySize int
	for _, s := range p.segments {
		bodySize += int(s)
	}
	require.Equal(t, bodySize, len(p.body), "body size must match segment table")

	page := make([]byte, pageHeaderSize+len(p.segments)+len(p.body))
	copy(page[0:4], "OggS")
	page[5] = p.flags
	binary.LittleEndian.PutUint64(page[6:14], p.granule)
	binary.LittleEndian.PutUint32(page[14:18], p.serial)
	binary.LittleEndian.PutUint32(page[18:22], p.seq)
	page[26] = byte(len(p.segments))
	copy(page[pageHeaderSize:], p.segments)
	copy(page[pageHeaderSize+len(p.segments):], p.body)
	binary.LittleEndian.PutUint32(page[22:26], pageCRC(page))
	return page
}

// lace returns the lacing values for a packet of n bytes.
func lace(n int) []byte {
	segs := make([]byte, 0, n/255+1)
	for n >= 255 {
		segs = append(segs, 255)
		n -= 255
	}
	return append(segs, byte(n))
}

// paginate lays packets out over pages of at most maxSegs segments,
// flagging pages that continue a packet. The first page gets firstFlags,
// the final page is flagged as last. Every page carries granule.
func paginate(t *testing.T, seq uint32, firstFlags byte, granule uint64, maxSegs int, packets ...[]byte) []byte {
	t.Helper()

	var segs []byte
	var body []byte
	for _, p := range packets {
		segs = append(segs, lace(len(p))...)
		body = append(body, p...)
	}

	var out bytes.Buffer
	flags := firstFlags
	for len(segs) > 0 {
		n := min(maxSegs, len(segs))
		size := 0
		for _, s := range segs[:n] {
			size += int(s)
		}
		last := n == len(segs)
		pageFlags := flags
		if last {
			pageFlags |= FlagLastPage
		}
		out.Write(buildPage(t, testPage{
			flags:    pageFlags,
			granule:  granule,
			serial:   testSerial,
			seq:      seq,
			segments: segs[:n],
			body:     body[:size],
		}))
		// a page ending on a 255 lacing value leaves its packet open
		flags = 0
		if segs[n-1] == 255 {
			flags = FlagContinuedPacket
		}
		segs = segs[n:]
		body = body[size:]
		seq++
	}
	return out.Bytes()
}

// identPacket builds a 30-byte identification header.
func identPacket(channels byte, rate uint32, blockSizes byte) []byte {
	p := make([]byte, identHeaderSize)
	p[0] = PacketIdentification
	copy(p[1:7], "vorbis")
	p[11] = channels
	binary.LittleEndian.PutUint32(p[12:16], rate)
	binary.LittleEndian.PutUint32(p[20:24], 128000) // nominal bitrate
	p[28] = blockSizes
	p[29] = 1
	return p
}

// commentPacket builds a comment header with the given vendor string.
func commentPacket(vendor string) []byte {
	p := []byte{PacketComment, 'v', 'o', 'r', 'b', 'i', 's'}
	p = binary.LittleEndian.AppendUint32(p, uint32(len(vendor)))
	p = append(p, vendor...)
	p = binary.LittleEndian.AppendUint32(p, 0)
	return append(p, 1)
}

// setupPacket builds an opaque setup header of n bytes.
func setupPacket(n int) []byte {
	p := make([]byte, n)
	p[0] = PacketSetup
	copy(p[1:7], "vorbis")
	for i := 7; i < n; i++ {
		p[i] = byte(i * 7)
	}
	return p
}

// audioPacket builds an audio packet of n bytes whose type bit is clear.
func audioPacket(n int, fill byte) []byte {
	p := bytes.Repeat([]byte{fill}, n)
	if n > 0 {
		p[0] = fill &^ 1
	}
	return p
}

// vorbisStream builds identification, header and audio pages. The setup
// packet ends its own page, so audio starts on the third page at the
// returned offset.
func vorbisStream(t *testing.T, ident, comment, setup []byte, audio ...[]byte) (data []byte, audioOffset int64) {
	t.Helper()

	var out bytes.Buffer
	out.Write(buildPage(t, testPage{
		flags:    FlagFirstPage,
		serial:   testSerial,
		segments: lace(len(ident)),
		body:     ident,
	}))
	headers := paginateNoLast(t, 1, comment, setup)
	out.Write(headers)
	audioOffset = int64(out.Len())
	if len(audio) > 0 {
		out.Write(paginate(t, 1+pageCount(t, headers), 0, 4096, 4, audio...))
	}
	return out.Bytes(), audioOffset
}

// paginateNoLast is paginate without the last-page flag, used for headers.
func paginateNoLast(t *testing.T, seq uint32, packets ...[]byte) []byte {
	t.Helper()
	data := paginate(t, seq, 0, 0, 255, packets...)
	// clear the last-page flag of the final page and refresh its CRC
	offsets := pageOffsets(t, data)
	lastOff := offsets[len(offsets)-1]
	data[lastOff+5] &^= FlagLastPage
	binary.LittleEndian.PutUint32(data[lastOff+22:lastOff+26], pageCRC(data[lastOff:]))
	return data
}

// pageOffsets returns the start offset of every page in data.
func pageOffsets(t *testing.T, data []byte) []int {
	t.Helper()
	var offsets []int
	for off := 0; off < len(data); {
		require.Equal(t, "OggS", string(data[off:off+4]), "page at %d", off)
		offsets = append(offsets, off)
		count := int(data[off+26])
		size := pageHeaderSize + count
		for _, s := range data[off+pageHeaderSize : off+pageHeaderSize+count] {
			size += int(s)
		}
		off += size
	}
	return offsets
}

func pageCount(t *testing.T, data []byte) uint32 {
	t.Helper()
	return uint32(len(pageOffsets(t, data)))
}

// newFileDecoder returns a decoder over an in-memory random-access source.
func newFileDecoder(t *testing.T, data []byte, opts ...Option) (*Decoder, *bytesource.File) {
	t.Helper()
	src, err := bytesource.NewFile(bytes.NewReader(data))
	require.NoError(t, err)
	return New(src, opts...), src
}

// defaultStream is a stereo 44.1kHz stream with three audio packets.
func defaultStream(t *testing.T) ([]byte, [][]byte) {
	t.Helper()
	audio := [][]byte{audioPacket(300, 0x40), audioPacket(0, 0), audioPacket(510, 0x22)}
	data, _ := vorbisStream(t, identPacket(2, 44100, 0xB8), commentPacket("test vendor"), setupPacket(700), audio...)
	return data, audio
}
