package bytesource

import (
	"bufio"
	"io"
)

const fileBufferSize = 32 * 1024

// File is a random-access source over an io.ReadSeeker.
type File struct {
	rs  io.ReadSeeker
	br  *bufio.Reader
	pos int64
}

// NewFile wraps rs, starting at its current offset.
func NewFile(rs io.ReadSeeker) (*File, error) {
	pos, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	return &File{
		rs:  rs,
		br:  bufio.NewReaderSize(rs, fileBufferSize),
		pos: pos,
	}, nil
}

// ReadByte reads one byte.
func (f *File) ReadByte() (byte, error) {
	b, err := f.br.ReadByte()
	if err != nil {
		return 0, err
	}
	f.pos++
	return b, nil
}

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	n, err := f.br.Read(p)
	f.pos += int64(n)
	return n, err
}

// ReadExact reads exactly n bytes.
func (f *File) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := io.ReadFull(f.br, buf)
	f.pos += int64(got)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return buf[:got], err
	}
	return buf, nil
}

// Skip advances by n bytes. Short skips within the buffer are served by
// discarding; longer ones seek the underlying reader and read the last
// skipped byte, since seeking past the end succeeds. A skip past the end
// leaves the position at the end and returns io.ErrUnexpectedEOF.
func (f *File) Skip(n int64) error {
	if n < 0 {
		return errNegativeSkip
	}
	if n == 0 {
		return nil
	}
	if n <= int64(f.br.Buffered()) {
		d, err := f.br.Discard(int(n))
		f.pos += int64(d)
		return err
	}
	if err := f.Seek(f.pos + n - 1); err != nil {
		return err
	}
	if _, err := f.ReadByte(); err != nil {
		if err != io.EOF {
			return err
		}
		end, serr := f.rs.Seek(0, io.SeekEnd)
		if serr != nil {
			return serr
		}
		f.pos = end
		f.br.Reset(f.rs)
		return io.ErrUnexpectedEOF
	}
	return nil
}

// Seek moves to an absolute offset and drops buffered data.
func (f *File) Seek(offset int64) error {
	pos, err := f.rs.Seek(offset, io.SeekStart)
	if err != nil {
		return err
	}
	f.pos = pos
	f.br.Reset(f.rs)
	return nil
}

// Position returns the absolute offset of the next byte.
func (f *File) Position() int64 { return f.pos }

// Incremental returns false.
func (f *File) Incremental() bool { return false }

// Size returns the total length of the underlying reader. The read
// position is left unchanged.
func (f *File) Size() (int64, error) {
	end, err := f.rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if err := f.Seek(f.pos); err != nil {
		return 0, err
	}
	return end, nil
}
