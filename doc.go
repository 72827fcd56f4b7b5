// Package filemagic identifies file types from their content rather than
// their names.
//
// The [Detector] reads a bounded prefix of a stream (1024 bytes by default),
// matches it against an ordered signature table and, for formats that share
// a signature, refines the generic match with more evidence. Upload
// pipelines, archivers and media tools can use it to trust bytes over
// user-supplied extensions.
//
// # Basic Usage
//
//	ft, err := filemagic.DetectFile("upload.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if ft == nil {
//	    // no signature matched
//	}
//	fmt.Println(ft.MIME(), ft.Extension)
//
// A nil result with a nil error means "no match"; empty input always yields
// no match.
//
// # Refinement
//
// The primary table is matched in order and the first hit wins. Three
// entries need more evidence before they are returned:
//
//   - PNG becomes APNG when an acTL chunk appears anywhere in the scanned
//     prefix.
//   - JPEG becomes JFIF, JPEG with EXIF or SPIFF depending on the APPn
//     marker that follows the SOI marker.
//   - Zip becomes ODS, ODP or ODT when the OpenDocument mimetype entry is
//     visible in the prefix, otherwise XLSX, XPS, DOCX, VSDX or PPTX when the
//     archive contains the format's marker entry.
//
// Zip inspection needs a seekable [Source]. Forward-only sources (pipes,
// network bodies) are reported as generic zip.
//
// # Sources
//
// [NewSource] adapts any io.Reader, probing whether it can seek:
//
//	f, _ := os.Open("report.docx")
//	ft, err := detector.Detect(filemagic.NewSource(f))
//
//	// Forward-only: refinement of zip content is skipped
//	ft, err = detector.Detect(filemagic.NewStreamSource(resp.Body, resp.ContentLength))
//
// A forward-only source must be at its start; otherwise Detect returns
// [ErrInvalidState].
//
// # Custom Registries
//
// [NewRegistry] builds a table from custom lists, falling back to the
// built-in ones for any list left nil:
//
//	reg := filemagic.NewRegistry(filemagic.RegistryConfig{
//	    Primary: []filemagic.FileType{myType, filemagic.MustLookup(filemagic.NameZip)},
//	})
//	d := filemagic.NewDetector(filemagic.WithRegistry(reg))
//
// # Caching
//
// [CachingDetector] memoises results by the xxhash digest of the content:
//
//	cached := filemagic.NewCachingDetector(filemagic.NewDetector(), filemagic.NewMemoryCache(),
//	    filemagic.WithCacheTTL(10*time.Minute),
//	)
//
// # Error Handling
//
//	_, err := detector.Detect(src)
//	if filemagic.IsInvalidState(err) {
//	    // forward-only source was already read from
//	}
//
//	var detectErr *filemagic.DetectError
//	if errors.As(err, &detectErr) {
//	    fmt.Printf("step: %s, cause: %v\n", detectErr.Op, detectErr.Err)
//	}
//
// A zip signature over a corrupt archive is an error, not a generic zip
// result; errors.Is(err, zip.ErrFormat) reports true.
//
// # Configuration
//
// Detectors can be configured from environment variables with the
// BEAVER_FILEMAGIC_ prefix, or programmatically via [Config]:
//
//	d, err := filemagic.New(&filemagic.Config{
//	    BufferSize:      4096,
//	    RereadContainer: true,
//	    LogLevel:        "debug",
//	})
package filemagic
