package demux

import (
	"bytes"
	"encoding/binary"

	"github.com/llehouerou/vorbisdemux/internal/bytesource"
)

// probeWindow is how far back from the end each scan step looks.
const probeWindow = 64 * 1024

// pageInfo describes a page verified in place.
type pageInfo struct {
	start   int64
	end     int64
	flags   byte
	granule uint64
	serial  uint32
}

// FindLastPage locates the final valid page of a random-access stream and
// records it as the last probed page. The read position is restored.
func (d *Decoder) FindLastPage() (ProbedPage, error) {
	if d.src.Incremental() {
		return ProbedPage{}, d.fail(ErrSeekFailed)
	}
	sizer, ok := d.src.(bytesource.Sizer)
	if !ok {
		return ProbedPage{}, d.fail(ErrSeekFailed)
	}
	size, err := sizer.Size()
	if err != nil {
		return ProbedPage{}, d.fail(ErrSeekFailed)
	}

	origin := d.src.Position()
	savedEOF, savedNeedMore := d.eof, d.needMore

	page, found, err := d.scanBackward(size)

	if serr := d.seek(origin); serr != nil {
		return ProbedPage{}, serr
	}
	d.eof, d.needMore = savedEOF, savedNeedMore
	if err != nil {
		return ProbedPage{}, err
	}
	if !found {
		return ProbedPage{}, d.fail(ErrCantFindLastPage)
	}

	d.lastPage = &ProbedPage{
		PageStart:         page.start,
		PageEnd:           page.end,
		LastDecodedSample: page.granule,
		GranuleKnown:      page.granule != ^uint64(0),
	}
	d.log.Debug().
		Int64("offset", page.start).
		Uint64("granule", page.granule).
		Bool("last_flag", page.flags&FlagLastPage != 0).
		Msg("last page")
	return *d.lastPage, nil
}

// TotalSamples returns the granule position of the last page, probing for
// it if needed.
func (d *Decoder) TotalSamples() (uint64, error) {
	if d.lastPage == nil {
		if _, err := d.FindLastPage(); err != nil {
			return 0, err
		}
	}
	if !d.lastPage.GranuleKnown {
		return 0, d.fail(ErrCantFindLastPage)
	}
	return d.lastPage.LastDecodedSample, nil
}

// scanBackward walks windows from the end of the stream towards the start
// and returns the valid page starting furthest into the stream.
func (d *Decoder) scanBackward(size int64) (pageInfo, bool, error) {
	end := size
	for end > 0 {
		start := max(end-probeWindow, 0)
		if err := d.seek(start); err != nil {
			return pageInfo{}, false, err
		}
		// include the capture pattern tail that straddles the window edge
		n := min(end+int64(len(capturePattern)-1), size) - start
		window, err := d.src.ReadExact(int(n))
		if err != nil {
			return pageInfo{}, false, d.fail(ErrSeekFailed)
		}

		for i := bytes.LastIndex(window, capturePattern[:]); i >= 0; i = bytes.LastIndex(window[:i], capturePattern[:]) {
			if start+int64(i) >= end {
				continue
			}
			page, ok := d.verifyPageAt(start + int64(i))
			if !ok {
				continue
			}
			if d.serialKnown && d.checkSerial && page.serial != d.serial {
				continue
			}
			return page, true, nil
		}
		end = start
	}
	return pageInfo{}, false, nil
}

// verifyPageAt reads the page at offset and checks its CRC.
func (d *Decoder) verifyPageAt(offset int64) (pageInfo, bool) {
	if err := d.seek(offset); err != nil {
		return pageInfo{}, false
	}
	hdr, err := d.src.ReadExact(pageHeaderSize)
	if err != nil || !bytes.Equal(hdr[:4], capturePattern[:]) || hdr[4] != 0 {
		return pageInfo{}, false
	}
	lacing, err := d.src.ReadExact(int(hdr[26]))
	if err != nil {
		return pageInfo{}, false
	}
	bodyLen := 0
	for _, l := range lacing {
		bodyLen += int(l)
	}
	body, err := d.src.ReadExact(bodyLen)
	if err != nil {
		return pageInfo{}, false
	}

	page := make([]byte, 0, len(hdr)+len(lacing)+len(body))
	page = append(page, hdr...)
	page = append(page, lacing...)
	page = append(page, body...)
	if pageCRC(page) != binary.LittleEndian.Uint32(hdr[22:26]) {
		return pageInfo{}, false
	}
	return pageInfo{
		start:   offset,
		end:     offset + int64(len(page)),
		flags:   hdr[5],
		granule: binary.LittleEndian.Uint64(hdr[6:14]),
		serial:  binary.LittleEndian.Uint32(hdr[14:18]),
	}, true
}
