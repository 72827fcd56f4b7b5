package filemagic

import (
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Container is a read-only view of an archive's entry listing.
type Container interface {
	// Has reports whether an entry exists at name.
	Has(name string) bool
}

// ContainerOpener builds a Container over a seekable source of the given
// size. It must not load entry contents into memory.
type ContainerOpener func(r io.ReaderAt, size int64) (Container, error)

// ZipContainer indexes the central directory of a zip archive.
type ZipContainer struct {
	entries map[string]struct{}
}

// OpenZipContainer reads the central directory of the zip archive in r.
// Only entry headers are read; entry data is left untouched. A corrupt
// archive yields the zip reader's error (zip.ErrFormat and friends).
func OpenZipContainer(r io.ReaderAt, size int64) (Container, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}

	c := &ZipContainer{entries: make(map[string]struct{}, len(zr.File))}
	for _, f := range zr.File {
		c.entries[normalizeEntry(f.Name)] = struct{}{}
	}
	return c, nil
}

// Has reports whether the archive contains an entry at name.
func (c *ZipContainer) Has(name string) bool {
	_, ok := c.entries[normalizeEntry(name)]
	return ok
}

// Len returns the number of entries in the archive
func (c *ZipContainer) Len() int {
	return len(c.entries)
}

// normalizeEntry maps archive entry names to a canonical slash form so
// "./word/document.xml" and "word\document.xml" resolve like the plain path.
func normalizeEntry(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Clean("/" + name)
	return strings.TrimPrefix(name, "/")
}
