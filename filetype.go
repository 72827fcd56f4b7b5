package filemagic

import (
	"bytes"
	"fmt"
)

// Kind is the descriptor family. It selects the top-level MIME type.
type Kind int

const (
	// KindImage describes raster image formats ("image/...")
	KindImage Kind = iota
	// KindDocument describes documents and archives ("application/...")
	KindDocument
)

// String returns the MIME top-level type for the kind
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindDocument:
		return "application"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Refinement tells the detector what extra evidence, if any, a primary
// match needs before it can be returned.
type Refinement int

const (
	// RefineNone marks a terminal descriptor, returned as soon as it matches.
	RefineNone Refinement = iota
	// RefinePNG searches the scanned buffer for the APNG animation chunk.
	RefinePNG
	// RefineJPEG re-checks the buffer against the JPEG APPn subtypes.
	RefineJPEG
	// RefineZip inspects the container for OpenDocument and Office markers.
	RefineZip
)

func (r Refinement) String() string {
	switch r {
	case RefineNone:
		return "none"
	case RefinePNG:
		return "png"
	case RefineJPEG:
		return "jpeg"
	case RefineZip:
		return "zip"
	default:
		return fmt.Sprintf("refinement(%d)", int(r))
	}
}

// FileType describes a file format that can be recognised from content.
//
// A FileType is a value: it is never mutated after construction and two
// descriptors are the same type when Equal reports true. Slices returned by
// the registry are copies, so callers may not alter the built-in table.
type FileType struct {
	// Name is a short stable identifier such as "png" or "docx".
	Name string

	// Kind selects the MIME top-level type.
	Kind Kind

	// Magic is the exact byte prefix the content must start with.
	Magic []byte

	// ExtraMagic, when non-empty, must appear as a contiguous run anywhere
	// in the scanned buffer.
	ExtraMagic []byte

	// SearchPath, when non-empty, names an entry that must exist inside the
	// zip container.
	SearchPath string

	// Extension is the canonical file extension, without the leading dot.
	Extension string

	// Type is the MIME top-level type ("image" or "application").
	Type string

	// Subtype is the MIME subtype.
	Subtype string

	// Refinement is consulted by the detector after a primary match.
	Refinement Refinement
}

// MIME returns the full media type, e.g. "image/png"
func (f FileType) MIME() string {
	return f.Type + "/" + f.Subtype
}

// String implements fmt.Stringer
func (f FileType) String() string {
	return fmt.Sprintf("%s (.%s)", f.MIME(), f.Extension)
}

// Equal reports whether f and other describe the same type.
// Comparison is structural over every field.
func (f FileType) Equal(other FileType) bool {
	return f.Name == other.Name &&
		f.Kind == other.Kind &&
		bytes.Equal(f.Magic, other.Magic) &&
		bytes.Equal(f.ExtraMagic, other.ExtraMagic) &&
		f.SearchPath == other.SearchPath &&
		f.Extension == other.Extension &&
		f.Type == other.Type &&
		f.Subtype == other.Subtype &&
		f.Refinement == other.Refinement
}

// matches reports whether data starts with the descriptor's magic.
// Data shorter than the magic never matches.
func (f FileType) matches(data []byte) bool {
	if len(f.Magic) > len(data) {
		return false
	}
	return bytes.Equal(data[:len(f.Magic)], f.Magic)
}

// containsExtra reports whether the extra magic occurs anywhere in data.
func (f FileType) containsExtra(data []byte) bool {
	if len(f.ExtraMagic) == 0 {
		return false
	}
	return bytes.Contains(data, f.ExtraMagic)
}

// clone returns a deep copy so the caller cannot alias registry storage.
func (f FileType) clone() FileType {
	f.Magic = bytes.Clone(f.Magic)
	f.ExtraMagic = bytes.Clone(f.ExtraMagic)
	return f
}

func imageType(name string, magic, extra []byte, ext, subtype string, refine Refinement) FileType {
	return FileType{
		Name:       name,
		Kind:       KindImage,
		Magic:      magic,
		ExtraMagic: extra,
		Extension:  ext,
		Type:       KindImage.String(),
		Subtype:    subtype,
		Refinement: refine,
	}
}

func documentType(name string, magic, extra []byte, searchPath, ext, subtype string, refine Refinement) FileType {
	return FileType{
		Name:       name,
		Kind:       KindDocument,
		Magic:      magic,
		ExtraMagic: extra,
		SearchPath: searchPath,
		Extension:  ext,
		Type:       KindDocument.String(),
		Subtype:    subtype,
		Refinement: refine,
	}
}
