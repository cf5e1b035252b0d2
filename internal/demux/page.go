package demux

// Page header flags.
const (
	FlagContinuedPacket = 0x01
	FlagFirstPage       = 0x02
	FlagLastPage        = 0x04
)

const (
	// pageHeaderSize is the fixed part of a page header, capture pattern included.
	pageHeaderSize = 27

	// unknownGranule is the per-page granule sentinel when no packet ends on the page.
	unknownGranule = 0xFFFFFFFF

	// noKnownGranule marks a page without a packet-ending segment.
	noKnownGranule = -2
)

var capturePattern = [4]byte{'O', 'g', 'g', 'S'}

// StartPage reads a capture pattern and the page header that follows it.
func (d *Decoder) StartPage() error {
	return d.atomically(d.startPage)
}

func (d *Decoder) startPage() error {
	start := d.src.Position()
	for _, want := range capturePattern {
		if d.readByte() != want {
			if d.eof {
				return d.fail(d.eofKind())
			}
			return d.fail(ErrMissingCapturePattern)
		}
	}
	return d.parsePageBody(start)
}

// parsePageBody reads the header after the capture pattern. start is the
// offset of the capture pattern. Page state is only committed once the whole
// header has been read.
func (d *Decoder) parsePageBody(start int64) error {
	version := d.readByte()
	if d.eof {
		return d.fail(d.eofKind())
	}
	if version != 0 {
		return d.fail(ErrInvalidStreamStructureVersion)
	}
	flags := d.readByte()
	lo := d.readU32()
	hi := d.readU32()
	serial := d.readU32()
	seq := d.readU32()
	_ = d.readU32() // checksum, verified only while resyncing
	count := int(d.readByte())
	if d.eof {
		return d.fail(d.eofKind())
	}
	lacing, err := d.readExact(count)
	if err != nil {
		return err
	}

	if d.serialKnown && d.checkSerial && serial != d.serial {
		return d.fail(ErrIncorrectStreamSerialNumber)
	}
	if d.pagesRead > 0 && seq != d.pageSeq+1 {
		d.log.Warn().
			Uint32("expected", d.pageSeq+1).
			Uint32("got", seq).
			Int64("offset", start).
			Msg("page sequence gap")
	}

	d.pageStart = start
	d.pageFlags = flags
	d.segments = lacing
	d.pageSeq = seq
	d.granule = uint64(hi)<<32 | uint64(lo)
	if !d.serialKnown {
		d.serial = serial
		d.serialKnown = true
	}
	d.pagesRead++

	d.endSegWithKnownGranule = noKnownGranule
	if lo != unknownGranule || hi != unknownGranule {
		for i := count - 1; i >= 0; i-- {
			if lacing[i] < 255 {
				d.endSegWithKnownGranule = i
				d.knownGranule = d.granule
				break
			}
		}
	}

	if d.firstPage == nil && !d.inHeaders {
		d.firstPage = d.probeCurrentPage()
	}

	d.next = segmentCursor{loaded: count > 0}

	d.log.Debug().
		Int64("offset", start).
		Uint32("sequence", seq).
		Int("segments", count).
		Uint8("flags", flags).
		Msg("page")
	return nil
}

// probeCurrentPage records the span of the loaded page.
func (d *Decoder) probeCurrentPage() *ProbedPage {
	length := int64(pageHeaderSize + len(d.segments))
	for _, s := range d.segments {
		length += int64(s)
	}
	return &ProbedPage{
		PageStart:         d.pageStart,
		PageEnd:           d.pageStart + length,
		LastDecodedSample: d.granule,
		GranuleKnown:      d.endSegWithKnownGranule >= 0,
	}
}

// KnownGranuleSegment returns the index of the last packet-ending segment
// on the current page, or -2 when the page carries no usable granule.
func (d *Decoder) KnownGranuleSegment() int { return d.endSegWithKnownGranule }
