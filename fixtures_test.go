package filemagic

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// archiveEntry is one file written into a test archive.
type archiveEntry struct {
	name   string
	data   string
	stored bool
}

// buildZip writes entries in order into an in-memory zip archive.
func buildZip(t testing.TB, entries ...archiveEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		if e.stored {
			hdr.Method = zip.Store
		}
		fw, err := w.CreateHeader(hdr)
		require.NoError(t, err)
		_, err = io.WriteString(fw, e.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// buildOpenDocument writes an OpenDocument style archive: an uncompressed
// "mimetype" entry first, then the remaining entries.
func buildOpenDocument(t testing.TB, mime string, entries ...archiveEntry) []byte {
	t.Helper()
	all := append([]archiveEntry{{name: "mimetype", data: mime, stored: true}}, entries...)
	return buildZip(t, all...)
}

func officeArchive(t testing.TB, marker string) []byte {
	t.Helper()
	return buildZip(t,
		archiveEntry{name: "[Content_Types].xml", data: `<?xml version="1.0"?><Types/>`},
		archiveEntry{name: "_rels/.rels", data: `<?xml version="1.0"?><Relationships/>`},
		archiveEntry{name: marker, data: `<?xml version="1.0"?><root/>`},
	)
}

// withFiller returns prefix followed by filler bytes up to size.
func withFiller(prefix []byte, size int) []byte {
	out := make([]byte, size)
	copy(out, prefix)
	for i := len(prefix); i < size; i++ {
		out[i] = byte('a' + i%26)
	}
	return out
}

// spySource records Seek calls made on a seekable source.
type spySource struct {
	Source
	seeks []int64
}

func (s *spySource) Seek(offset int64, whence int) (int64, error) {
	s.seeks = append(s.seeks, offset)
	return s.Source.Seek(offset, whence)
}

// failingSource is a Source whose operations fail on demand.
type failingSource struct {
	Source
	sizeErr error
	readErr error
}

func (s *failingSource) Size() (int64, error) {
	if s.sizeErr != nil {
		return 0, s.sizeErr
	}
	return s.Source.Size()
}

func (s *failingSource) Read(p []byte) (int, error) {
	if s.readErr != nil {
		return 0, s.readErr
	}
	return s.Source.Read(p)
}

var errBoom = errors.New("boom")

// fakeContainer reports a fixed set of entries.
type fakeContainer map[string]bool

func (c fakeContainer) Has(name string) bool { return c[name] }
