package demux

import (
	"errors"
	"io"
)

// headerPacketCount is the number of Vorbis header packets before audio.
const headerPacketCount = 3

// StartPacket begins a new packet, loading pages until one has segments.
// A page flagged as continuing an earlier packet cannot start a new one.
func (d *Decoder) StartPacket() error {
	return d.atomically(d.startPacket)
}

func (d *Decoder) startPacket() error {
	for !d.next.loaded {
		if err := d.startPage(); err != nil {
			return err
		}
		if d.pageFlags&FlagContinuedPacket != 0 {
			return d.fail(ErrContinuedPacketFlagInvalid)
		}
	}
	d.lastSegOfPacket = false
	d.packetBytes = 0
	d.segBytesLeft = 0
	d.packetGranuleKnown = false
	d.packetsStarted++

	if d.inHeaders && d.packetsStarted > headerPacketCount {
		d.inHeaders = false
		if d.firstPage == nil {
			d.firstPage = d.probeCurrentPage()
		}
	}
	return nil
}

// MaybeStartPacket is StartPacket for callers that do not know whether the
// stream has more data. It returns false with a nil error when the source
// ends exactly on a page boundary.
func (d *Decoder) MaybeStartPacket() (bool, error) {
	var ok bool
	err := d.atomically(func() error {
		var err error
		ok, err = d.maybeStartPacket()
		return err
	})
	return ok, err
}

func (d *Decoder) maybeStartPacket() (bool, error) {
	if !d.next.loaded {
		start := d.src.Position()
		b := d.readByte()
		if d.eof {
			if d.needMore {
				return false, d.fail(ErrNeedMoreData)
			}
			return false, nil
		}
		if b != capturePattern[0] {
			return false, d.fail(ErrMissingCapturePattern)
		}
		for _, want := range capturePattern[1:] {
			if d.readByte() != want {
				if d.eof {
					return false, d.fail(d.eofKind())
				}
				return false, d.fail(ErrMissingCapturePattern)
			}
		}
		if err := d.parsePageBody(start); err != nil {
			return false, err
		}
		if d.pageFlags&FlagContinuedPacket != 0 {
			// Leave the cursor on the page so SkipPacket can read through
			// the orphaned continuation.
			d.lastSegOfPacket = false
			d.segBytesLeft = 0
			return false, d.fail(ErrContinuedPacketFlagInvalid)
		}
	}
	if err := d.startPacket(); err != nil {
		return false, err
	}
	return true, nil
}

// NextSegment returns the length of the next segment of the current packet,
// or 0 once the packet is complete. The previous segment's bytes must have
// been consumed with Read before calling it again.
func (d *Decoder) NextSegment() (int, error) {
	var n int
	err := d.atomically(func() error {
		var err error
		n, err = d.nextSegment()
		return err
	})
	return n, err
}

func (d *Decoder) nextSegment() (int, error) {
	if d.segBytesLeft != 0 {
		return 0, d.fail(ErrSegmentNotConsumed)
	}
	if d.lastSegOfPacket {
		return 0, nil
	}
	for !d.next.loaded {
		d.lastSeg = len(d.segments) - 1
		if err := d.startPage(); err != nil {
			if errors.Is(err, ErrNeedMoreData) {
				return 0, err
			}
			d.lastSegOfPacket = true
			return 0, nil
		}
		if d.pageFlags&FlagContinuedPacket == 0 {
			return 0, d.fail(ErrContinuedPacketFlagInvalid)
		}
	}
	idx := d.next.index
	n := int(d.segments[idx])
	if n < 255 {
		d.lastSegOfPacket = true
		d.lastSeg = idx
		if idx == d.endSegWithKnownGranule {
			d.packetGranule = d.knownGranule
			d.packetGranuleKnown = true
		}
	}
	idx++
	if idx >= len(d.segments) {
		d.next = segmentCursor{}
	} else {
		d.next.index = idx
	}
	d.segBytesLeft = n
	return n, nil
}

// packetOpen reports whether a started packet still has unread bytes.
func (d *Decoder) packetOpen() bool {
	return !d.lastSegOfPacket || d.segBytesLeft > 0
}

// Read reads from the current packet. It returns io.EOF at the end of the
// packet and never reads into the next one.
func (d *Decoder) Read(p []byte) (int, error) {
	var n int
	err := d.atomically(func() error {
		var err error
		n, err = d.read(p)
		return err
	})
	if errors.Is(err, ErrNeedMoreData) {
		n = 0
	}
	return n, err
}

func (d *Decoder) read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if d.segBytesLeft == 0 {
			if d.lastSegOfPacket {
				break
			}
			if _, err := d.nextSegment(); err != nil {
				return n, err
			}
			continue
		}
		chunk, err := d.readExact(min(len(p)-n, d.segBytesLeft))
		if err != nil {
			return n, err
		}
		copy(p[n:], chunk)
		n += len(chunk)
		d.segBytesLeft -= len(chunk)
		d.packetBytes += len(chunk)
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// ReadPacket returns the unread remainder of the current packet.
func (d *Decoder) ReadPacket() ([]byte, error) {
	var packet []byte
	err := d.atomically(func() error {
		var err error
		packet, err = d.readPacket()
		return err
	})
	return packet, err
}

func (d *Decoder) readPacket() ([]byte, error) {
	out := []byte{}
	for {
		if d.segBytesLeft == 0 {
			if d.lastSegOfPacket {
				return out, nil
			}
			if _, err := d.nextSegment(); err != nil {
				return nil, err
			}
			continue
		}
		chunk, err := d.readExact(d.segBytesLeft)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		d.packetBytes += len(chunk)
		d.segBytesLeft = 0
	}
}

// SkipPacket discards the unread remainder of the current packet.
func (d *Decoder) SkipPacket() error {
	return d.atomically(d.skipPacket)
}

func (d *Decoder) skipPacket() error {
	for {
		if d.segBytesLeft == 0 {
			if d.lastSegOfPacket {
				return nil
			}
			if _, err := d.nextSegment(); err != nil {
				return err
			}
			continue
		}
		if err := d.skip(d.segBytesLeft); err != nil {
			return err
		}
		d.packetBytes += d.segBytesLeft
		d.segBytesLeft = 0
	}
}

// NextPacket skips whatever is left of the current packet, starts the next
// one and returns it whole. It returns io.EOF when the stream ends cleanly
// on a page boundary.
func (d *Decoder) NextPacket() ([]byte, error) {
	var packet []byte
	err := d.atomically(func() error {
		var err error
		packet, err = d.nextPacket()
		return err
	})
	return packet, err
}

func (d *Decoder) nextPacket() ([]byte, error) {
	if d.packetOpen() {
		if err := d.skipPacket(); err != nil {
			return nil, err
		}
	}
	ok, err := d.maybeStartPacket()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, io.EOF
	}
	return d.readPacket()
}

// NextAudioPacket is NextPacket for the audio section: a packet whose type
// bit marks it as a header fails with ErrBadPacketType. Empty packets are
// returned as is.
func (d *Decoder) NextAudioPacket() ([]byte, error) {
	packet, err := d.NextPacket()
	if err != nil {
		return nil, err
	}
	if len(packet) > 0 && packet[0]&1 != 0 {
		return nil, d.fail(ErrBadPacketType)
	}
	return packet, nil
}

// PacketGranule returns the granule position of the packet just completed,
// when the page it ended on carries one for it.
func (d *Decoder) PacketGranule() (uint64, bool) {
	return d.packetGranule, d.packetGranuleKnown
}

// LastSegment returns the index, within the current page, of the segment
// that ended the most recent packet. It is meaningful once the packet is
// complete and can be compared with KnownGranuleSegment.
func (d *Decoder) LastSegment() int { return d.lastSeg }

// PacketBytes returns the number of bytes of the current packet consumed so far.
func (d *Decoder) PacketBytes() int { return d.packetBytes }
