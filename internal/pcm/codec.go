package pcm

import (
	"encoding/binary"
	"errors"

	"github.com/jfreymuth/vorbis"

	"github.com/llehouerou/vorbisdemux/internal/demux"
)

var (
	errInvalidVorbisHeader         = errors.New("vorbis: invalid identification header")
	errVorbisDecoderNotInitialized = errors.New("vorbis: decoder not initialized (headers incomplete)")
	errVorbisBufferTooSmall        = errors.New("vorbis: output buffer too small")
)

// Codec turns the packets of one logical stream into PCM.
type Codec interface {
	// SampleRate returns the audio sample rate.
	SampleRate() int

	// Channels returns the number of audio channels.
	Channels() int

	// AddHeaderPacket adds a header packet after the identification header.
	// Returns true once every header has been received.
	AddHeaderPacket(packet []byte) (complete bool, err error)

	// Decode decodes a packet into interleaved PCM samples.
	// Returns the number of samples per channel decoded.
	Decode(packet []byte, pcm []float32) (samplesPerChannel int, err error)

	// Reset drops decoder state that depends on earlier packets, after a gap.
	Reset() error
}

// codecFactory builds a codec from an identification header.
type codecFactory func(ident []byte) (Codec, error)

// vorbisCodec implements Codec on top of jfreymuth/vorbis.
type vorbisCodec struct {
	decoder       *vorbis.Decoder
	channels      int
	sampleRate    int
	headerPackets [][]byte // collected until the setup header arrives
}

func newVorbisCodec(ident []byte) (Codec, error) {
	// [0] type, [1:7] "vorbis", [7:11] version, [11] channels, [12:16] rate
	if len(ident) < 16 || ident[0] != demux.PacketIdentification {
		return nil, errInvalidVorbisHeader
	}
	if binary.LittleEndian.Uint32(ident[7:11]) != 0 {
		return nil, errInvalidVorbisHeader
	}

	hdr := make([]byte, len(ident))
	copy(hdr, ident)

	return &vorbisCodec{
		channels:      int(ident[11]),
		sampleRate:    int(binary.LittleEndian.Uint32(ident[12:16])),
		headerPackets: [][]byte{hdr},
	}, nil
}

func (c *vorbisCodec) SampleRate() int { return c.sampleRate }

func (c *vorbisCodec) Channels() int { return c.channels }

// AddHeaderPacket collects the comment and setup headers. The jfreymuth
// decoder is only built once all three are present.
func (c *vorbisCodec) AddHeaderPacket(packet []byte) (bool, error) {
	if c.decoder != nil {
		return true, nil
	}

	hdr := make([]byte, len(packet))
	copy(hdr, packet)
	c.headerPackets = append(c.headerPackets, hdr)

	if len(c.headerPackets) < 3 {
		return false, nil
	}
	decoder := &vorbis.Decoder{}
	for _, h := range c.headerPackets {
		if err := decoder.ReadHeader(h); err != nil {
			return false, err
		}
	}
	c.decoder = decoder
	c.headerPackets = nil
	return true, nil
}

func (c *vorbisCodec) Decode(packet []byte, pcm []float32) (int, error) {
	if c.decoder == nil {
		return 0, errVorbisDecoderNotInitialized
	}
	samples, err := c.decoder.Decode(packet)
	if err != nil {
		return 0, err
	}
	if len(pcm) < len(samples) {
		return 0, errVorbisBufferTooSmall
	}
	n := copy(pcm, samples)
	return n / c.channels, nil
}

// Reset clears the overlap carried from the previous packet.
func (c *vorbisCodec) Reset() error {
	if c.decoder != nil {
		c.decoder.Clear()
	}
	return nil
}

// minimalCommentHeader is a comment header with an empty vendor and no
// comments, used when the demuxer skipped the real one.
func minimalCommentHeader() []byte {
	return []byte{
		demux.PacketComment,
		'v', 'o', 'r', 'b', 'i', 's',
		0, 0, 0, 0, // vendor length
		0, 0, 0, 0, // comment count
		1, // framing
	}
}
