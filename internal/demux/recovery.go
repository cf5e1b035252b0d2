package demux

import (
	"encoding/binary"
	"errors"

	"github.com/llehouerou/vorbisdemux/internal/bytesource"
)

// CrcScanSlot tracks one candidate page while resynchronizing.
type CrcScanSlot struct {
	GoalCRC        uint32
	BytesLeft      int
	RunningCRC     uint32
	BytesProcessed int
	SampleLocation uint64

	start         int64
	header        []byte
	body          bool
	serialChecked bool
}

func newScanSlot(start int64) *CrcScanSlot {
	s := &CrcScanSlot{
		start:  start,
		header: make([]byte, 0, pageHeaderSize+255),
	}
	for _, b := range capturePattern {
		s.feed(b)
	}
	return s
}

// scanResult is the outcome of feeding one byte to a slot.
type scanResult int

const (
	scanPending scanResult = iota
	scanMatch
	scanMismatch
)

// feed advances the slot by one byte of the stream.
func (s *CrcScanSlot) feed(b byte) scanResult {
	s.BytesProcessed++
	if s.body {
		s.RunningCRC = crcUpdate(s.RunningCRC, b)
		s.BytesLeft--
		return s.check()
	}

	s.header = append(s.header, b)
	n := len(s.header)
	if n > 22 && n <= 26 {
		s.RunningCRC = crcUpdate(s.RunningCRC, 0)
	} else {
		s.RunningCRC = crcUpdate(s.RunningCRC, b)
	}
	switch {
	case n == 5 && b != 0:
		return scanMismatch
	case n < pageHeaderSize:
		return scanPending
	case n == pageHeaderSize:
		s.GoalCRC = binary.LittleEndian.Uint32(s.header[22:26])
		s.SampleLocation = binary.LittleEndian.Uint64(s.header[6:14])
	}
	if n < pageHeaderSize+int(s.header[26]) {
		return scanPending
	}

	s.body = true
	s.BytesLeft = 0
	for _, l := range s.header[pageHeaderSize:] {
		s.BytesLeft += int(l)
	}
	return s.check()
}

func (s *CrcScanSlot) check() scanResult {
	if s.BytesLeft > 0 {
		return scanPending
	}
	if s.RunningCRC == s.GoalCRC {
		return scanMatch
	}
	return scanMismatch
}

func (s *CrcScanSlot) serial() uint32 {
	return binary.LittleEndian.Uint32(s.header[14:18])
}

// Resync scans forward for the next page whose CRC checks out and loads it.
// Leading segments that continue a packet from before the gap are skipped,
// so the next StartPacket begins on a packet boundary. It returns the
// offset of the page found and the sample location it carries.
//
// On a push source that runs dry, bytes that cannot begin a page are
// released before ErrNeedMoreData is returned, so a long gap is not kept
// in memory across retries.
func (d *Decoder) Resync() (offset int64, sample uint64, err error) {
	d.resyncResume = -1
	err = d.atomically(func() error {
		var err error
		offset, sample, err = d.resync()
		return err
	})
	if errors.Is(err, ErrNeedMoreData) && d.resyncResume > d.src.Position() {
		if serr := d.src.Seek(d.resyncResume); serr != nil {
			return 0, 0, d.fail(ErrSeekFailed)
		}
		if c, ok := d.src.(bytesource.Compactor); ok {
			c.Compact()
		}
	}
	return offset, sample, err
}

func (d *Decoder) resync() (int64, uint64, error) {
	from := d.src.Position()
	d.eof = false
	slots := make([]*CrcScanSlot, 0, d.overlapDepth)
	var window [4]byte
	seen := 0

	for {
		pos := d.src.Position()
		if len(slots) == 0 {
			// rescanning from here, with the last bytes refilling the
			// capture window, gives the same result
			d.resyncResume = max(from, pos-int64(len(window)-1))
		}
		b, err := d.src.ReadByte()
		if err != nil {
			d.markEOF(err)
			return 0, 0, d.fail(d.eofKind())
		}

		for i := 0; i < len(slots); {
			switch slots[i].feed(b) {
			case scanMatch:
				return d.commitSlot(slots[i], from)
			case scanMismatch:
				d.log.Debug().Int64("offset", slots[i].start).Msg("resync candidate rejected")
				slots = append(slots[:i], slots[i+1:]...)
				continue
			}
			if s := slots[i]; s.body && !s.serialChecked {
				s.serialChecked = true
				if d.serialKnown && d.checkSerial && s.serial() != d.serial {
					slots = append(slots[:i], slots[i+1:]...)
					continue
				}
			}
			i++
		}

		copy(window[:], window[1:])
		window[3] = b
		seen++
		if seen < len(window) || window != capturePattern {
			continue
		}
		start := pos - int64(len(window)-1)
		if len(slots) >= d.overlapDepth {
			d.log.Debug().Int64("offset", start).Msg("resync candidate ignored, all slots busy")
			continue
		}
		slots = append(slots, newScanSlot(start))
	}
}

// commitSlot loads the verified page and drops any continued-packet prefix.
func (d *Decoder) commitSlot(s *CrcScanSlot, from int64) (int64, uint64, error) {
	if err := d.seek(s.start); err != nil {
		return 0, 0, err
	}
	if err := d.startPage(); err != nil {
		return 0, 0, err
	}
	d.log.Warn().
		Int64("offset", s.start).
		Int64("skipped", s.start-from).
		Msg("resynchronized")

	d.segBytesLeft = 0
	d.packetGranuleKnown = false
	continued := d.pageFlags&FlagContinuedPacket != 0
	for continued {
		ended, err := d.dropContinuation()
		if err != nil {
			return 0, 0, err
		}
		if ended {
			break
		}
		if err := d.startPage(); err != nil {
			return 0, 0, err
		}
		continued = d.pageFlags&FlagContinuedPacket != 0
	}
	d.lastSegOfPacket = true
	return s.start, s.SampleLocation, nil
}

// dropContinuation skips segments of the current page up to and including
// the first one that ends a packet. It reports whether such a segment was
// found before the page ran out.
func (d *Decoder) dropContinuation() (bool, error) {
	for d.next.loaded {
		n := int(d.segments[d.next.index])
		if err := d.skip(n); err != nil {
			return false, err
		}
		d.next.index++
		if d.next.index >= len(d.segments) {
			d.next = segmentCursor{}
		}
		if n < 255 {
			return true, nil
		}
	}
	return false, nil
}
