package filemagic

import (
	"errors"
	"io"

	"github.com/rs/zerolog"
)

// Detector identifies file types from content.
//
// A Detector is immutable once built and may be used from multiple
// goroutines, provided each call gets its own Source.
type Detector struct {
	registry      *Registry
	openContainer ContainerOpener
	bufferSize    int
	reread        bool
	logger        zerolog.Logger
}

// NewDetector creates a detector over the built-in registry.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		registry:      DefaultRegistry(),
		openContainer: OpenZipContainer,
		bufferSize:    DefaultBufferSize,
		reread:        true,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the signature table the detector matches against
func (d *Detector) Registry() *Registry {
	return d.registry
}

// Detect reads the leading bytes of src and returns the best matching file
// type. A nil result with a nil error means no signature matched, which is
// also the answer for empty input.
//
// Detect fails with ErrInvalidArgument for a nil source and with
// ErrInvalidState for a forward-only source that is not at offset 0. Read,
// seek and container errors are returned wrapped in a *DetectError.
//
// For zip content on a seekable source the archive is inspected, which
// moves the source's cursor; forward-only zip sources are reported as
// generic zip.
func (d *Detector) Detect(src Source) (*FileType, error) {
	if src == nil {
		return nil, ErrInvalidArgument
	}

	if !src.CanSeek() {
		pos, err := src.Position()
		if err != nil {
			return nil, opError("position", err)
		}
		if pos != 0 {
			return nil, ErrInvalidState
		}
	}

	size, err := src.Size()
	if err != nil {
		return nil, opError("size", err)
	}
	if size == 0 {
		d.logger.Debug().Msg("empty source")
		return nil, nil
	}

	buf, err := d.readPrefix(src)
	if err != nil {
		return nil, err
	}

	for _, ft := range d.registry.primary {
		// An empty magic would match everything; it cannot gate a type.
		if len(ft.Magic) == 0 || !ft.matches(buf) {
			continue
		}

		d.logger.Debug().
			Str("type", ft.Name).
			Str("refinement", ft.Refinement.String()).
			Int("scanned", len(buf)).
			Msg("signature matched")

		return d.refine(src, ft, buf, size)
	}

	d.logger.Debug().Int("scanned", len(buf)).Msg("no signature matched")
	return nil, nil
}

// DetectReader adapts r with NewSource and detects its type.
func (d *Detector) DetectReader(r io.Reader) (*FileType, error) {
	if r == nil {
		return nil, ErrInvalidArgument
	}
	return d.Detect(NewSource(r))
}

// DetectBytes detects the type of an in-memory payload.
func (d *Detector) DetectBytes(data []byte) (*FileType, error) {
	return d.Detect(BytesSource(data))
}

// DetectFile opens the named file and detects its type.
func (d *Detector) DetectFile(name string) (*FileType, error) {
	src, err := OpenFileSource(name)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return d.Detect(src)
}

// readPrefix reads up to bufferSize bytes from the current position.
// Short input is not an error.
func (d *Detector) readPrefix(src Source) ([]byte, error) {
	buf := make([]byte, d.bufferSize)
	n, err := io.ReadFull(src, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, opError("read", err)
	}
	return buf[:n], nil
}

func (d *Detector) refine(src Source, ft FileType, buf []byte, size int64) (*FileType, error) {
	switch ft.Refinement {
	case RefinePNG:
		// acTL sits after IHDR and any ancillary chunks, so its offset varies
		if apng := d.registry.apng; apng.containsExtra(buf) {
			d.logger.Debug().Str("type", apng.Name).Msg("animation control chunk found")
			return found(apng), nil
		}
		return found(ft), nil

	case RefineJPEG:
		for _, sub := range d.registry.jpeg {
			if sub.matches(buf) {
				d.logger.Debug().Str("type", sub.Name).Msg("jpeg subtype matched")
				return found(sub), nil
			}
		}
		return found(ft), nil

	case RefineZip:
		return d.refineZip(src, ft, buf, size)

	default:
		return found(ft), nil
	}
}

func (d *Detector) refineZip(src Source, ft FileType, buf []byte, size int64) (*FileType, error) {
	if !src.CanSeek() {
		d.logger.Debug().Msg("forward-only source, skipping container inspection")
		return found(ft), nil
	}

	if d.reread {
		if _, err := src.Seek(0, io.SeekStart); err != nil {
			return nil, opError("seek", err)
		}
		var err error
		if buf, err = d.readPrefix(src); err != nil {
			return nil, err
		}
	}

	for _, od := range d.registry.openDocument {
		if od.containsExtra(buf) {
			d.logger.Debug().Str("type", od.Name).Msg("opendocument mimetype found")
			return found(od), nil
		}
	}

	if len(d.registry.office) == 0 {
		return found(ft), nil
	}

	if size < 0 {
		end, err := src.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, opError("seek", err)
		}
		size = end
	}

	container, err := d.openContainer(readerAt(src), size)
	if err != nil {
		return nil, opError("container", err)
	}

	for _, office := range d.registry.office {
		if office.SearchPath != "" && container.Has(office.SearchPath) {
			d.logger.Debug().
				Str("type", office.Name).
				Str("entry", office.SearchPath).
				Msg("container entry found")
			return found(office), nil
		}
	}

	return found(ft), nil
}

// found returns a private copy of ft for the caller.
func found(ft FileType) *FileType {
	c := ft.clone()
	return &c
}
