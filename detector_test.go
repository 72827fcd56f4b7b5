package filemagic

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detectName(t *testing.T, d *Detector, src Source) string {
	t.Helper()
	ft, err := d.Detect(src)
	require.NoError(t, err)
	if ft == nil {
		return ""
	}
	return ft.Name
}

func TestDetect_PrimarySignatures(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{name: "BMP", data: withFiller([]byte("BM"), 64), expected: NameBMP},
		{name: "GIF87a", data: withFiller([]byte("GIF87a"), 64), expected: NameGIF},
		{name: "GIF89a", data: withFiller([]byte("GIF89a"), 64), expected: NameGIF},
		{name: "PNG", data: withFiller(pngMagic, 64), expected: NamePNG},
		{name: "TIFF big endian", data: withFiller([]byte{'M', 'M', 0x00, 0x2A}, 64), expected: NameTIFFBigEndian},
		{name: "TIFF little endian", data: withFiller([]byte{'I', 'I', 0x2A, 0x00}, 64), expected: NameTIFFLittleEndian},
		{name: "JPEG exact magic", data: []byte{0xFF, 0xD8}, expected: NameJPEG},
		{name: "PNG exact magic", data: pngMagic, expected: NamePNG},
		{name: "plain text", data: []byte("hello, world"), expected: ""},
		{name: "PDF is not registered", data: []byte("%PDF-1.7\n"), expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, detectName(t, d, BytesSource(tt.data)))
		})
	}
}

func TestDetect_EveryPrimaryMagicMatchesItselfOrRefinement(t *testing.T) {
	d := NewDetector()
	reg := d.Registry()

	valid := map[string][]string{
		NamePNG:  {NamePNG, NameAPNG},
		NameJPEG: {NameJPEG, NameJFIF, NameJPEGWithEXIF, NameSPIFF},
		NameZip:  {NameZip},
	}

	for _, primary := range reg.Primary() {
		t.Run(primary.Name, func(t *testing.T) {
			data := withFiller(primary.Magic, 128)
			// Forward-only keeps garbage after the zip magic from reaching the
			// container reader.
			ft, err := d.Detect(NewStreamSource(bytes.NewReader(data), int64(len(data))))
			require.NoError(t, err)
			require.NotNil(t, ft)

			allowed, ok := valid[primary.Name]
			if !ok {
				allowed = []string{primary.Name}
			}
			assert.Contains(t, allowed, ft.Name)
		})
	}
}

func TestDetect_EmptyInput(t *testing.T) {
	d := NewDetector()

	t.Run("empty bytes", func(t *testing.T) {
		ft, err := d.DetectBytes(nil)
		require.NoError(t, err)
		assert.Nil(t, ft)
	})

	t.Run("stream with known zero size", func(t *testing.T) {
		ft, err := d.Detect(NewStreamSource(strings.NewReader(""), 0))
		require.NoError(t, err)
		assert.Nil(t, ft)
	})

	t.Run("stream with unknown size", func(t *testing.T) {
		ft, err := d.Detect(NewStreamSource(strings.NewReader(""), -1))
		require.NoError(t, err)
		assert.Nil(t, ft)
	})

	t.Run("custom registry with empty magic", func(t *testing.T) {
		reg := NewRegistry(RegistryConfig{
			Primary: []FileType{{Name: "anything", Type: "application", Subtype: "octet-stream"}},
		})
		d := NewDetector(WithRegistry(reg))
		ft, err := d.DetectBytes(nil)
		require.NoError(t, err)
		assert.Nil(t, ft)
	})
}

func TestDetect_ShortBufferNeverMatches(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "one byte of BMP", data: []byte("B")},
		{name: "three bytes of GIF", data: []byte("GIF")},
		{name: "truncated PNG", data: pngMagic[:7]},
		{name: "truncated TIFF", data: []byte{'I', 'I', 0x2A}},
		{name: "truncated zip", data: zipMagic[:3]},
		{name: "one byte of JPEG", data: []byte{0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, detectName(t, d, BytesSource(tt.data)))
		})
	}
}

func TestDetect_PNGRefinement(t *testing.T) {
	d := NewDetector()

	insertAt := func(offset, size int) []byte {
		data := withFiller(pngMagic, size)
		copy(data[offset:], apngMagic)
		return data
	}

	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{name: "plain PNG", data: withFiller(pngMagic, 1024), expected: NamePNG},
		{name: "acTL right after signature", data: insertAt(8, 256), expected: NameAPNG},
		{name: "acTL after IHDR", data: insertAt(33, 256), expected: NameAPNG},
		{name: "acTL ending at last scanned byte", data: insertAt(1016, 2048), expected: NameAPNG},
		{name: "acTL straddling the window", data: insertAt(1020, 2048), expected: NamePNG},
		{name: "acTL beyond the window", data: insertAt(1500, 2048), expected: NamePNG},
		{name: "partial acTL marker", data: append(withFiller(pngMagic, 64), apngMagic[:7]...), expected: NamePNG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, detectName(t, d, BytesSource(tt.data)))
		})
	}

	t.Run("larger buffer sees a later chunk", func(t *testing.T) {
		big := NewDetector(WithBufferSize(4096))
		assert.Equal(t, NameAPNG, detectName(t, big, BytesSource(insertAt(1500, 2048))))
	})

	t.Run("APNG keeps the PNG signature", func(t *testing.T) {
		ft, err := d.DetectBytes(insertAt(40, 128))
		require.NoError(t, err)
		require.NotNil(t, ft)
		assert.Equal(t, "image/apng", ft.MIME())
		assert.Equal(t, "apng", ft.Extension)
		assert.Equal(t, pngMagic, ft.Magic)
	})
}

func TestDetect_JPEGRefinement(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name      string
		data      []byte
		expected  string
		mime      string
		extension string
	}{
		{name: "JFIF", data: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}, expected: NameJFIF, mime: "image/jfif", extension: "jfif"},
		{name: "EXIF", data: []byte{0xFF, 0xD8, 0xFF, 0xE1, 0x00, 0x10, 'E', 'x', 'i', 'f'}, expected: NameJPEGWithEXIF, mime: "image/jpeg", extension: "jpg"},
		{name: "SPIFF", data: []byte{0xFF, 0xD8, 0xFF, 0xE8, 0x00, 0x10, 'S', 'P', 'I', 'F'}, expected: NameSPIFF, mime: "image/spiff", extension: "spf"},
		{name: "unknown APPn", data: []byte{0xFF, 0xD8, 0xFF, 0xFF, 0x00, 0x10}, expected: NameJPEG, mime: "image/jpeg", extension: "jpg"},
		{name: "quantization table first", data: []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x00, 0x43}, expected: NameJPEG, mime: "image/jpeg", extension: "jpg"},
		{name: "SOI only", data: []byte{0xFF, 0xD8, 0xFF}, expected: NameJPEG, mime: "image/jpeg", extension: "jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft, err := d.DetectBytes(tt.data)
			require.NoError(t, err)
			require.NotNil(t, ft)
			assert.Equal(t, tt.expected, ft.Name)
			assert.Equal(t, tt.mime, ft.MIME())
			assert.Equal(t, tt.extension, ft.Extension)
		})
	}
}

func TestDetect_ZipRefinement(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{name: "DOCX", data: officeArchive(t, "word/document.xml"), expected: NameDOCX},
		{name: "XLSX", data: officeArchive(t, "xl/workbook.xml"), expected: NameXLSX},
		{name: "PPTX", data: officeArchive(t, "ppt/presentation.xml"), expected: NamePPTX},
		{name: "VSDX", data: officeArchive(t, "visio/document.xml"), expected: NameVSDX},
		{name: "XPS", data: buildZip(t, archiveEntry{name: "FixedDocSeq.fdseq", data: "<FixedDocumentSequence/>"}), expected: NameXPS},
		{name: "single docx entry", data: buildZip(t, archiveEntry{name: "word/document.xml", data: "<w:document/>"}), expected: NameDOCX},
		{name: "generic zip", data: buildZip(t, archiveEntry{name: "hello.txt", data: "hello"}), expected: NameZip},
		{name: "content types only", data: buildZip(t, archiveEntry{name: "[Content_Types].xml", data: "<Types/>"}), expected: NameZip},
		{name: "marker directory without the entry", data: buildZip(t, archiveEntry{name: "word/styles.xml", data: "<w:styles/>"}), expected: NameZip},
		{
			name: "XLSX probed before DOCX",
			data: buildZip(t,
				archiveEntry{name: "word/document.xml", data: "<w:document/>"},
				archiveEntry{name: "xl/workbook.xml", data: "<workbook/>"},
			),
			expected: NameXLSX,
		},
		{
			name: "XPS probed before DOCX",
			data: buildZip(t,
				archiveEntry{name: "word/document.xml", data: "<w:document/>"},
				archiveEntry{name: "FixedDocSeq.fdseq", data: "<FixedDocumentSequence/>"},
			),
			expected: NameXPS,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, detectName(t, d, BytesSource(tt.data)))
		})
	}
}

func TestDetect_OpenDocument(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name     string
		mime     string
		expected string
	}{
		{name: "ODS", mime: "application/vnd.oasis.opendocument.spreadsheet", expected: NameODS},
		{name: "ODP", mime: "application/vnd.oasis.opendocument.presentation", expected: NameODP},
		{name: "ODT", mime: "application/vnd.oasis.opendocument.text", expected: NameODT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildOpenDocument(t, tt.mime, archiveEntry{name: "content.xml", data: "<office:document-content/>"})
			ft, err := d.DetectBytes(data)
			require.NoError(t, err)
			require.NotNil(t, ft)
			assert.Equal(t, tt.expected, ft.Name)
			assert.Equal(t, tt.mime, ft.MIME())
		})
	}

	t.Run("mimetype wins over office entry", func(t *testing.T) {
		data := buildOpenDocument(t, "application/vnd.oasis.opendocument.text",
			archiveEntry{name: "word/document.xml", data: "<w:document/>"},
		)
		assert.Equal(t, NameODT, detectName(t, d, BytesSource(data)))
	})

	t.Run("container is not opened for OpenDocument", func(t *testing.T) {
		opened := false
		d := NewDetector(WithContainerOpener(func(io.ReaderAt, int64) (Container, error) {
			opened = true
			return fakeContainer{}, nil
		}))
		data := buildOpenDocument(t, "application/vnd.oasis.opendocument.presentation")
		assert.Equal(t, NameODP, detectName(t, d, BytesSource(data)))
		assert.False(t, opened)
	})

	t.Run("compressed mimetype entry is not visible", func(t *testing.T) {
		data := buildZip(t, archiveEntry{
			name: "mimetype",
			data: strings.Repeat("application/vnd.oasis.opendocument.text", 4),
		})
		assert.Equal(t, NameZip, detectName(t, d, BytesSource(data)))
	})
}

func TestDetect_ForwardOnlySource(t *testing.T) {
	d := NewDetector()

	t.Run("zip at start is generic zip", func(t *testing.T) {
		data := officeArchive(t, "word/document.xml")
		ft, err := d.Detect(NewStreamSource(bytes.NewReader(data), -1))
		require.NoError(t, err)
		require.NotNil(t, ft)
		assert.Equal(t, NameZip, ft.Name)
	})

	t.Run("OpenDocument is generic zip", func(t *testing.T) {
		data := buildOpenDocument(t, "application/vnd.oasis.opendocument.text")
		assert.Equal(t, NameZip, detectName(t, d, NewStreamSource(bytes.NewReader(data), int64(len(data)))))
	})

	t.Run("images are still refined", func(t *testing.T) {
		data := withFiller(pngMagic, 128)
		copy(data[40:], apngMagic)
		assert.Equal(t, NameAPNG, detectName(t, d, NewStreamSource(bytes.NewReader(data), -1)))
	})

	t.Run("not at start is invalid state", func(t *testing.T) {
		data := withFiller(pngMagic, 64)
		src := NewStreamSource(bytes.NewReader(data), -1)
		_, err := io.ReadFull(src, make([]byte, 1))
		require.NoError(t, err)

		ft, err := d.Detect(src)
		assert.Nil(t, ft)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.True(t, IsInvalidState(err))
	})

	t.Run("not at start with empty remainder is invalid state", func(t *testing.T) {
		src := NewStreamSource(strings.NewReader("x"), 1)
		_, err := io.ReadAll(src)
		require.NoError(t, err)

		_, err = d.Detect(src)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestDetect_NilSource(t *testing.T) {
	d := NewDetector()

	ft, err := d.Detect(nil)
	assert.Nil(t, ft)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.True(t, IsInvalidArgument(err))

	_, err = d.DetectReader(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDetect_TableOrderTieBreak(t *testing.T) {
	first := FileType{Name: "first", Kind: KindDocument, Magic: []byte("AB"), Type: "application", Subtype: "x-first", Extension: "one"}
	second := FileType{Name: "second", Kind: KindDocument, Magic: []byte("AB"), Type: "application", Subtype: "x-second", Extension: "two"}
	longer := FileType{Name: "longer", Kind: KindDocument, Magic: []byte("ABC"), Type: "application", Subtype: "x-longer", Extension: "three"}

	t.Run("identical magic", func(t *testing.T) {
		d := NewDetector(WithRegistry(NewRegistry(RegistryConfig{Primary: []FileType{first, second}})))
		for i := 0; i < 10; i++ {
			assert.Equal(t, "first", detectName(t, d, BytesSource([]byte("ABCDEF"))))
		}
	})

	t.Run("reversed order", func(t *testing.T) {
		d := NewDetector(WithRegistry(NewRegistry(RegistryConfig{Primary: []FileType{second, first}})))
		assert.Equal(t, "second", detectName(t, d, BytesSource([]byte("ABCDEF"))))
	})

	t.Run("earlier shorter prefix beats later longer one", func(t *testing.T) {
		d := NewDetector(WithRegistry(NewRegistry(RegistryConfig{Primary: []FileType{first, longer}})))
		assert.Equal(t, "first", detectName(t, d, BytesSource([]byte("ABCDEF"))))
	})
}

func TestDetect_CorruptZipSurfacesError(t *testing.T) {
	d := NewDetector()

	data := withFiller(zipMagic, 300)
	ft, err := d.DetectBytes(data)
	assert.Nil(t, ft)
	require.Error(t, err)
	assert.ErrorIs(t, err, zip.ErrFormat)
	assert.Equal(t, "container", ErrorOp(err))

	t.Run("truncated archive", func(t *testing.T) {
		full := officeArchive(t, "word/document.xml")
		_, err := d.DetectBytes(full[:len(full)-30])
		require.Error(t, err)
		assert.Equal(t, "container", ErrorOp(err))
	})

	t.Run("opener error is returned unchanged", func(t *testing.T) {
		d := NewDetector(WithContainerOpener(func(io.ReaderAt, int64) (Container, error) {
			return nil, errBoom
		}))
		_, err := d.DetectBytes(buildZip(t, archiveEntry{name: "a.txt", data: "a"}))
		assert.ErrorIs(t, err, errBoom)
	})
}

func TestDetect_ContainerReread(t *testing.T) {
	fixtures := map[string][]byte{
		"docx":    officeArchive(t, "word/document.xml"),
		"xlsx":    officeArchive(t, "xl/workbook.xml"),
		"odt":     buildOpenDocument(t, "application/vnd.oasis.opendocument.text"),
		"ods":     buildOpenDocument(t, "application/vnd.oasis.opendocument.spreadsheet"),
		"zip":     buildZip(t, archiveEntry{name: "readme.md", data: "# readme"}),
		"png":     withFiller(pngMagic, 64),
		"unknown": []byte("just text"),
	}

	withReread := NewDetector(WithContainerReread(true))
	withoutReread := NewDetector(WithContainerReread(false))

	for name, data := range fixtures {
		t.Run(name, func(t *testing.T) {
			a, errA := withReread.DetectBytes(data)
			b, errB := withoutReread.DetectBytes(data)
			require.NoError(t, errA)
			require.NoError(t, errB)
			if a == nil || b == nil {
				assert.Nil(t, a)
				assert.Nil(t, b)
				return
			}
			assert.True(t, a.Equal(*b), "%s != %s", a.Name, b.Name)
		})
	}

	t.Run("rewinds to the start", func(t *testing.T) {
		spy := &spySource{Source: BytesSource(fixtures["odt"])}
		_, err := withReread.Detect(spy)
		require.NoError(t, err)
		assert.Equal(t, []int64{0}, spy.seeks)

		spy = &spySource{Source: BytesSource(fixtures["odt"])}
		_, err = withoutReread.Detect(spy)
		require.NoError(t, err)
		assert.Empty(t, spy.seeks)
	})
}

func TestDetect_IOErrors(t *testing.T) {
	d := NewDetector()

	t.Run("size failure", func(t *testing.T) {
		src := &failingSource{Source: BytesSource([]byte("BM")), sizeErr: errBoom}
		_, err := d.Detect(src)
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, "size", ErrorOp(err))
	})

	t.Run("read failure", func(t *testing.T) {
		src := &failingSource{Source: BytesSource([]byte("BM")), readErr: errBoom}
		_, err := d.Detect(src)
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, "read", ErrorOp(err))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := d.DetectFile(filepath.Join(t.TempDir(), "missing.bin"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Equal(t, "open", ErrorOp(err))
	})
}

func TestDetect_ReadsFromCurrentPosition(t *testing.T) {
	d := NewDetector()

	junk := []byte("junk header ")
	data := append(append([]byte{}, junk...), withFiller(pngMagic, 64)...)
	src := BytesSource(data)
	_, err := src.Seek(int64(len(junk)), io.SeekStart)
	require.NoError(t, err)

	assert.Equal(t, NamePNG, detectName(t, d, src))
}

func TestDetect_ResultIsACopy(t *testing.T) {
	d := NewDetector()
	data := withFiller(pngMagic, 64)

	ft, err := d.DetectBytes(data)
	require.NoError(t, err)
	require.NotNil(t, ft)
	ft.Magic[0] = 0x00
	ft.Subtype = "tampered"

	again, err := d.DetectBytes(data)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, "png", again.Subtype)
	assert.Equal(t, pngMagic, again.Magic)
}

func TestDetect_File(t *testing.T) {
	d := NewDetector()
	dir := t.TempDir()

	docx := filepath.Join(dir, "report.bin")
	require.NoError(t, os.WriteFile(docx, officeArchive(t, "word/document.xml"), 0o600))
	assert.Equal(t, NameDOCX, func() string {
		ft, err := d.DetectFile(docx)
		require.NoError(t, err)
		require.NotNil(t, ft)
		return ft.Name
	}())

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	ft, err := d.DetectFile(empty)
	require.NoError(t, err)
	assert.Nil(t, ft)
}

func TestDetect_ConcurrentIndependentSources(t *testing.T) {
	d := NewDetector()
	docx := officeArchive(t, "word/document.xml")
	png := withFiller(pngMagic, 64)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, want := docx, NameDOCX
			if i%2 == 0 {
				data, want = png, NamePNG
			}
			ft, err := d.DetectBytes(data)
			if err != nil {
				errs <- err
				return
			}
			if ft == nil || ft.Name != want {
				errs <- assert.AnError
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
