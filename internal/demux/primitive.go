package demux

import (
	"errors"

	"github.com/llehouerou/vorbisdemux/internal/bytesource"
)

// markEOF records that the source ran dry and whether more bytes may come.
func (d *Decoder) markEOF(err error) {
	d.eof = true
	d.needMore = errors.Is(err, bytesource.ErrNeedMoreData)
}

// readByte returns the next byte, or 0 once the source is exhausted.
// Callers check d.eof after any sequence that must not be zero-padded.
func (d *Decoder) readByte() byte {
	if d.eof {
		return 0
	}
	b, err := d.src.ReadByte()
	if err != nil {
		d.markEOF(err)
		return 0
	}
	return b
}

// readU32 composes four readByte calls little-endian, so exhaustion midway
// leaves the high bytes zero.
func (d *Decoder) readU32() uint32 {
	x := uint32(d.readByte())
	x |= uint32(d.readByte()) << 8
	x |= uint32(d.readByte()) << 16
	x |= uint32(d.readByte()) << 24
	return x
}

// readExact returns exactly n bytes; a short read is a hard failure.
func (d *Decoder) readExact(n int) ([]byte, error) {
	if d.eof {
		return nil, d.fail(d.eofKind())
	}
	if n == 0 {
		return []byte{}, nil
	}
	buf, err := d.src.ReadExact(n)
	if err != nil {
		d.markEOF(err)
		return nil, d.fail(d.eofKind())
	}
	return buf, nil
}

// skip advances the source by n bytes.
func (d *Decoder) skip(n int) error {
	if n == 0 {
		return nil
	}
	if d.eof {
		return d.fail(d.eofKind())
	}
	if err := d.src.Skip(int64(n)); err != nil {
		d.markEOF(err)
		return d.fail(d.eofKind())
	}
	return nil
}

// seek moves the source and clears the end-of-input flag.
func (d *Decoder) seek(offset int64) error {
	if err := d.src.Seek(offset); err != nil {
		return d.fail(ErrSeekFailed)
	}
	d.eof = false
	d.needMore = false
	return nil
}
