package filemagic

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Common MIME types produced by the built-in registry
const (
	MIMETypeImageBMP        = "image/bmp"
	MIMETypeImageGIF        = "image/gif"
	MIMETypeImageJPEG       = "image/jpeg"
	MIMETypeImagePNG        = "image/png"
	MIMETypeImageAPNG       = "image/apng"
	MIMETypeImageTIFF       = "image/tiff"
	MIMETypeApplicationZip  = "application/zip"
	MIMETypeApplicationDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMETypeApplicationXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMETypeApplicationPPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MIMETypeApplicationODT  = "application/vnd.oasis.opendocument.text"
	MIMETypeApplicationODS  = "application/vnd.oasis.opendocument.spreadsheet"
	MIMETypeApplicationODP  = "application/vnd.oasis.opendocument.presentation"
)

// IsImage returns true if the file type is an image
func (f FileType) IsImage() bool {
	return f.Kind == KindImage
}

// IsDocument returns true if the file type is an application document or archive
func (f FileType) IsDocument() bool {
	return f.Kind == KindDocument
}

// IsArchive returns true for any zip-based type, including office formats
func (f FileType) IsArchive() bool {
	return f.Kind == KindDocument && bytes.Equal(f.Magic, zipMagic)
}

// IsOfficeDocument returns true for Office Open XML style formats, which
// are recognised by an entry path inside the archive
func (f FileType) IsOfficeDocument() bool {
	return f.Kind == KindDocument && f.SearchPath != ""
}

// IsOpenDocument returns true for OpenDocument formats
func (f FileType) IsOpenDocument() bool {
	return f.Kind == KindDocument && strings.HasPrefix(f.Subtype, "vnd.oasis.opendocument.")
}

// ByExtension returns the built-in descriptors whose canonical extension
// matches ext. The leading dot and case are ignored. Several descriptors
// can share an extension ("jpg", "tif").
func ByExtension(ext string) []FileType {
	return defaultRegistry.ByExtension(ext)
}

// ByExtension returns the registry's descriptors for ext in registry order.
func (r *Registry) ByExtension(ext string) []FileType {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return nil
	}

	var out []FileType
	for _, ft := range r.All() {
		if ft.Extension == ext {
			out = append(out, ft)
		}
	}
	return out
}

// ByMIME returns the built-in descriptors with the given media type.
// Parameters such as "; charset=" are ignored.
func ByMIME(mime string) []FileType {
	if idx := strings.Index(mime, ";"); idx != -1 {
		mime = mime[:idx]
	}
	mime = strings.ToLower(strings.TrimSpace(mime))

	var out []FileType
	for _, ft := range defaultRegistry.All() {
		if ft.MIME() == mime {
			out = append(out, ft)
		}
	}
	return out
}

// MatchesExtension reports whether the name's extension agrees with the
// detected type. It is meant for upload checks where the content wins over
// the supplied name.
func (f FileType) MatchesExtension(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return false
	}
	if ext == f.Extension {
		return true
	}

	// Aliases seen in the wild for the canonical extensions
	switch f.Extension {
	case "jpg":
		return ext == "jpeg" || ext == "jpe"
	case "jfif":
		return ext == "jpg" || ext == "jpeg"
	case "tif":
		return ext == "tiff"
	case "apng":
		return ext == "png"
	}
	return false
}
