package bytesource

import "io"

// Push is an incremental source fed with Append. Bytes stay available for
// rewinding until Compact drops everything behind the read position.
// A Push is not safe for concurrent use; the feeder and the decoder run on
// the same goroutine.
type Push struct {
	buf    []byte
	base   int64 // absolute offset of buf[0]
	off    int   // read offset within buf
	closed bool
}

// NewPush returns an empty push source.
func NewPush() *Push {
	return &Push{}
}

// Append adds bytes to the end of the stream.
func (p *Push) Append(data []byte) {
	p.buf = append(p.buf, data...)
}

// Close marks the end of the stream. Exhaustion after Close is io.EOF
// instead of ErrNeedMoreData.
func (p *Push) Close() {
	p.closed = true
}

// Closed reports whether Close was called.
func (p *Push) Closed() bool {
	return p.closed
}

// Buffered returns the number of unread bytes.
func (p *Push) Buffered() int {
	return len(p.buf) - p.off
}

// Retained returns the number of bytes kept for rewinding, read or not.
func (p *Push) Retained() int {
	return len(p.buf)
}

func (p *Push) exhausted() error {
	if p.closed {
		return io.EOF
	}
	return ErrNeedMoreData
}

// ReadByte reads one byte.
func (p *Push) ReadByte() (byte, error) {
	if p.off >= len(p.buf) {
		return 0, p.exhausted()
	}
	b := p.buf[p.off]
	p.off++
	return b, nil
}

// ReadExact reads exactly n bytes. Nothing is consumed when fewer than n
// bytes are available.
func (p *Push) ReadExact(n int) ([]byte, error) {
	if len(p.buf)-p.off < n {
		if p.closed {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, ErrNeedMoreData
	}
	out := make([]byte, n)
	copy(out, p.buf[p.off:])
	p.off += n
	return out, nil
}

// Skip discards n bytes. If fewer are available the position moves to the
// end of the data and an error is returned.
func (p *Push) Skip(n int64) error {
	if n < 0 {
		return errNegativeSkip
	}
	avail := int64(len(p.buf) - p.off)
	if n > avail {
		p.off = len(p.buf)
		if p.closed {
			return io.ErrUnexpectedEOF
		}
		return ErrNeedMoreData
	}
	p.off += int(n)
	return nil
}

// Seek moves to an absolute offset inside the retained window.
func (p *Push) Seek(offset int64) error {
	rel := offset - p.base
	if rel < 0 || rel > int64(len(p.buf)) {
		return ErrOutsideWindow
	}
	p.off = int(rel)
	return nil
}

// Position returns the absolute offset of the next byte.
func (p *Push) Position() int64 {
	return p.base + int64(p.off)
}

// Incremental returns true.
func (p *Push) Incremental() bool { return true }

// Compact releases the bytes before the read position.
func (p *Push) Compact() {
	if p.off == 0 {
		return
	}
	n := copy(p.buf, p.buf[p.off:])
	p.buf = p.buf[:n]
	p.base += int64(p.off)
	p.off = 0
}

// FillFrom reads up to n bytes from r and appends them. The source is
// closed when r is exhausted. It returns the number of bytes appended.
func (p *Push) FillFrom(r io.Reader, n int) (int, error) {
	buf := make([]byte, n)
	got, err := io.ReadFull(r, buf)
	if got > 0 {
		p.Append(buf[:got])
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		p.Close()
		return got, nil
	}
	return got, err
}
