package filemagic

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// Source is the byte stream the detector reads from.
//
// Size reports the total length, or -1 when it is unknown. Position reports
// the current read offset. Seek is only called when CanSeek reports true;
// forward-only sources return ErrNotSupported from it.
//
// A Source is not safe for concurrent use. Callers must not share one
// Source between concurrent Detect calls.
type Source interface {
	io.Reader
	io.Seeker

	// Size returns the total length in bytes, or -1 if unknown.
	Size() (int64, error)

	// Position returns the current read offset.
	Position() (int64, error)

	// CanSeek reports whether Seek may be used to reposition the source.
	CanSeek() bool
}

// NewSource adapts r into a Source.
//
// An io.ReadSeeker whose Seek works (files, bytes.Reader, strings.Reader)
// becomes a seekable source; anything else, including pipes and sockets
// wrapped in *os.File, becomes a forward-only source assumed to be at its
// start. A value that already implements Source is returned unchanged.
func NewSource(r io.Reader) Source {
	if r == nil {
		return nil
	}
	if src, ok := r.(Source); ok {
		return src
	}
	if rs, ok := r.(io.ReadSeeker); ok {
		if _, err := rs.Seek(0, io.SeekCurrent); err == nil {
			return &seekSource{rs: rs}
		}
	}
	return NewStreamSource(r, -1)
}

// NewStreamSource returns a forward-only Source over r. size is the total
// length if known, otherwise -1. The stream is assumed to be positioned at
// its start; every Read advances the reported position.
func NewStreamSource(r io.Reader, size int64) Source {
	if size < 0 {
		size = -1
	}
	return &streamSource{r: r, size: size}
}

// BytesSource returns a seekable Source over data.
func BytesSource(data []byte) Source {
	return &seekSource{rs: bytes.NewReader(data)}
}

// FileSource is a Source backed by an open file. Close releases the file.
type FileSource struct {
	Source
	file *os.File
}

// OpenFileSource opens the named file for detection.
func OpenFileSource(name string) (*FileSource, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, opError("open", err)
	}
	return &FileSource{Source: NewSource(f), file: f}, nil
}

// Name returns the file name as passed to OpenFileSource
func (s *FileSource) Name() string {
	return s.file.Name()
}

// ReadAt reads from the file without moving its cursor
func (s *FileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.file.ReadAt(p, off)
}

// Close closes the underlying file
func (s *FileSource) Close() error {
	return s.file.Close()
}

// seekSource wraps a working io.ReadSeeker.
type seekSource struct {
	rs io.ReadSeeker
}

func (s *seekSource) Read(p []byte) (int, error) {
	return s.rs.Read(p)
}

func (s *seekSource) Seek(offset int64, whence int) (int64, error) {
	return s.rs.Seek(offset, whence)
}

func (s *seekSource) CanSeek() bool { return true }

func (s *seekSource) Position() (int64, error) {
	return s.rs.Seek(0, io.SeekCurrent)
}

func (s *seekSource) Size() (int64, error) {
	// bytes.Reader and strings.Reader report their full length directly
	if sized, ok := s.rs.(interface{ Size() int64 }); ok {
		return sized.Size(), nil
	}
	if f, ok := s.rs.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
			return info.Size(), nil
		}
	}

	cur, err := s.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := s.rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := s.rs.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}

// ReadAt uses the wrapped reader's ReadAt when it has one, which leaves
// the read cursor untouched.
func (s *seekSource) ReadAt(p []byte, off int64) (int, error) {
	if ra, ok := s.rs.(io.ReaderAt); ok {
		return ra.ReadAt(p, off)
	}
	return seekReadAt(s.rs, p, off)
}

// streamSource is a forward-only source that counts consumed bytes.
type streamSource struct {
	r    io.Reader
	pos  int64
	size int64
}

func (s *streamSource) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	s.pos += int64(n)
	return n, err
}

func (s *streamSource) Seek(int64, int) (int64, error) {
	return 0, fmt.Errorf("seek on forward-only source: %w", ErrNotSupported)
}

func (s *streamSource) CanSeek() bool { return false }

func (s *streamSource) Position() (int64, error) { return s.pos, nil }

func (s *streamSource) Size() (int64, error) { return s.size, nil }

// readerAt returns an io.ReaderAt view of a seekable source.
func readerAt(src Source) io.ReaderAt {
	if ra, ok := src.(io.ReaderAt); ok {
		return ra
	}
	return &seekReaderAt{src: src}
}

// seekReaderAt emulates ReadAt with Seek and Read. It moves the cursor of
// the underlying source.
type seekReaderAt struct {
	src io.ReadSeeker
}

func (s *seekReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return seekReadAt(s.src, p, off)
}

func seekReadAt(rs io.ReadSeeker, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if _, err := rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := io.ReadFull(rs, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n, err
}
