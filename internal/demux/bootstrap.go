package demux

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// Vorbis header packet types.
const (
	PacketIdentification = 1
	PacketComment        = 3
	PacketSetup          = 5
)

const (
	identHeaderSize = 30
	minBlockLog     = 6
	maxBlockLog     = 13
)

var vorbisSignature = []byte("vorbis")

// Bootstrap validates the identification header on the first page, skips
// the comment header and leaves the cursor at the start of the setup
// header's payload, ready for ReadPacket.
func (d *Decoder) Bootstrap() error {
	return d.atomically(d.bootstrap)
}

func (d *Decoder) bootstrap() error {
	d.inHeaders = true

	if err := d.startPage(); err != nil {
		return err
	}
	if d.pageFlags != FlagFirstPage {
		return d.fail(ErrInvalidFirstPage)
	}
	if len(d.segments) != 1 || d.segments[0] != identHeaderSize {
		return d.fail(ErrInvalidFirstPage)
	}

	hdr, err := d.readExact(identHeaderSize)
	if err != nil {
		return err
	}
	if err := d.parseIdentification(hdr); err != nil {
		return err
	}
	// the identification packet was consumed directly from the page
	d.next = segmentCursor{}
	d.lastSegOfPacket = true
	d.packetsStarted = 1

	if err := d.startPacket(); err != nil {
		return err
	}
	if err := d.consumeComments(); err != nil {
		return err
	}

	if err := d.startPacket(); err != nil {
		return err
	}
	d.bootstrapped = true

	small, large := d.BlockSizes()
	d.log.Debug().
		Uint8("channels", d.channels).
		Uint32("sample_rate", d.sampleRate).
		Int("block_small", small).
		Int("block_large", large).
		Msg("vorbis headers")
	return nil
}

// parseIdentification validates the 30-byte identification packet:
// type(1) "vorbis"(6) version(4) channels(1) rate(4) bitrates(12)
// blocksizes(1) framing(1).
func (d *Decoder) parseIdentification(hdr []byte) error {
	if hdr[0] != PacketIdentification {
		return d.fail(ErrInvalidFirstPage)
	}
	if !bytes.Equal(hdr[1:7], vorbisSignature) {
		return d.fail(ErrInvalidFirstPage)
	}
	if binary.LittleEndian.Uint32(hdr[7:11]) != 0 {
		return d.fail(ErrInvalidFirstPage)
	}
	channels := hdr[11]
	if channels == 0 {
		return d.fail(ErrInvalidFirstPage)
	}
	rate := binary.LittleEndian.Uint32(hdr[12:16])
	if rate == 0 {
		return d.fail(ErrInvalidFirstPage)
	}
	// hdr[16:28] holds the maximum, nominal and minimum bitrates.
	small, large, ok := blockSizeLogs(hdr[28])
	if !ok {
		return d.fail(ErrInvalidSetup)
	}
	if hdr[29]&1 == 0 {
		return d.fail(ErrInvalidFirstPage)
	}

	d.channels = channels
	d.sampleRate = rate
	d.blockSize = [2]int{1 << small, 1 << large}
	d.ident = hdr
	return nil
}

// blockSizeLogs splits the block size byte into its short (low nibble) and
// long (high nibble) exponents and validates them.
func blockSizeLogs(b byte) (small, large int, ok bool) {
	small = int(b & 0x0F)
	large = int(b >> 4)
	if small < minBlockLog || small > maxBlockLog {
		return 0, 0, false
	}
	if large < minBlockLog || large > maxBlockLog {
		return 0, 0, false
	}
	if small > large {
		return 0, 0, false
	}
	return small, large, true
}

// consumeComments checks the comment packet's type and signature and then
// skips or keeps the rest of it.
func (d *Decoder) consumeComments() error {
	var prefix [7]byte
	n, err := d.read(prefix[:])
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if n < len(prefix) || prefix[0] != PacketComment || !bytes.Equal(prefix[1:], vorbisSignature) {
		return d.fail(ErrInvalidSetup)
	}
	if !d.retainComments {
		return d.skipPacket()
	}
	rest, err := d.readPacket()
	if err != nil {
		return err
	}
	d.comments = append(prefix[:], rest...)
	return nil
}

// Vendor returns the vendor string of the retained comment header.
func (d *Decoder) Vendor() (string, bool) {
	c := d.comments
	if len(c) < 11 {
		return "", false
	}
	n := binary.LittleEndian.Uint32(c[7:11])
	if uint64(n) > uint64(len(c)-11) {
		return "", false
	}
	return string(c[11 : 11+n]), true
}
