package filemagic

// Descriptor names. They are stable and safe to persist.
const (
	NameBMP              = "bmp"
	NameGIF              = "gif"
	NameJPEG             = "jpeg"
	NamePNG              = "png"
	NameAPNG             = "apng"
	NameTIFFBigEndian    = "tiff-be"
	NameTIFFLittleEndian = "tiff-le"
	NameJFIF             = "jfif"
	NameJPEGWithEXIF     = "jpeg-exif"
	NameSPIFF            = "spiff"
	NameZip              = "zip"
	NameDOCX             = "docx"
	NameXLSX             = "xlsx"
	NameVSDX             = "vsdx"
	NamePPTX             = "pptx"
	NameXPS              = "xps"
	NameODS              = "ods"
	NameODP              = "odp"
	NameODT              = "odt"
)

var (
	pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

	// acTL chunk header: big-endian length 8 followed by the chunk type
	apngMagic = []byte{0x00, 0x00, 0x00, 0x08, 0x61, 0x63, 0x54, 0x4C}
)

// OpenDocument archives store an uncompressed "mimetype" entry first, so
// its name and content appear back to back in the local file header.
func openDocumentMagic(mime string) []byte {
	return []byte("mimetype" + mime)
}

var (
	bmpType  = imageType(NameBMP, []byte{0x42, 0x4D}, nil, "bmp", "bmp", RefineNone)
	gifType  = imageType(NameGIF, []byte{0x47, 0x49, 0x46, 0x38}, nil, "gif", "gif", RefineNone)
	jpegType = imageType(NameJPEG, []byte{0xFF, 0xD8}, nil, "jpg", "jpeg", RefineJPEG)
	pngType  = imageType(NamePNG, pngMagic, nil, "png", "png", RefinePNG)
	apngType = imageType(NameAPNG, pngMagic, apngMagic, "apng", "apng", RefineNone)
	tiffBE   = imageType(NameTIFFBigEndian, []byte{'M', 'M', 0x00, 0x2A}, nil, "tif", "tiff", RefineNone)
	tiffLE   = imageType(NameTIFFLittleEndian, []byte{'I', 'I', 0x2A, 0x00}, nil, "tif", "tiff", RefineNone)

	jfifType     = imageType(NameJFIF, []byte{0xFF, 0xD8, 0xFF, 0xE0}, nil, "jfif", "jfif", RefineNone)
	jpegEXIFType = imageType(NameJPEGWithEXIF, []byte{0xFF, 0xD8, 0xFF, 0xE1}, nil, "jpg", "jpeg", RefineNone)
	spiffType    = imageType(NameSPIFF, []byte{0xFF, 0xD8, 0xFF, 0xE8}, nil, "spf", "spiff", RefineNone)

	zipType = documentType(NameZip, zipMagic, nil, "", "zip", "zip", RefineZip)

	docxType = documentType(NameDOCX, zipMagic, nil, "word/document.xml", "docx",
		"vnd.openxmlformats-officedocument.wordprocessingml.document", RefineNone)
	xlsxType = documentType(NameXLSX, zipMagic, nil, "xl/workbook.xml", "xlsx",
		"vnd.openxmlformats-officedocument.spreadsheetml.sheet", RefineNone)
	vsdxType = documentType(NameVSDX, zipMagic, nil, "visio/document.xml", "vsdx",
		"vnd.visio", RefineNone)
	pptxType = documentType(NamePPTX, zipMagic, nil, "ppt/presentation.xml", "pptx",
		"vnd.openxmlformats-officedocument.presentationml.presentation", RefineNone)
	xpsType = documentType(NameXPS, zipMagic, nil, "FixedDocSeq.fdseq", "xps",
		"vnd.ms-xpsdocument", RefineNone)

	odsType = documentType(NameODS, zipMagic,
		openDocumentMagic("application/vnd.oasis.opendocument.spreadsheet"), "", "ods",
		"vnd.oasis.opendocument.spreadsheet", RefineNone)
	odpType = documentType(NameODP, zipMagic,
		openDocumentMagic("application/vnd.oasis.opendocument.presentation"), "", "odp",
		"vnd.oasis.opendocument.presentation", RefineNone)
	odtType = documentType(NameODT, zipMagic,
		openDocumentMagic("application/vnd.oasis.opendocument.text"), "", "odt",
		"vnd.oasis.opendocument.text", RefineNone)
)

// Registry is an immutable, ordered signature table.
//
// The primary list is matched in order and its order is the tie-break: the
// first descriptor whose magic prefixes the content wins. The subtype lists
// are consulted only after their parent matched.
type Registry struct {
	primary      []FileType
	apng         FileType
	jpeg         []FileType
	office       []FileType
	openDocument []FileType
	byName       map[string]FileType
}

// RegistryConfig holds the lists used to build a custom Registry.
// A nil list (or nil APNG) falls back to the built-in one; an empty,
// non-nil list disables that stage.
type RegistryConfig struct {
	Primary      []FileType
	APNG         *FileType
	JPEG         []FileType
	Office       []FileType
	OpenDocument []FileType
}

func defaultConfig() RegistryConfig {
	apng := apngType
	return RegistryConfig{
		Primary:      []FileType{bmpType, gifType, jpegType, pngType, tiffBE, tiffLE, zipType},
		APNG:         &apng,
		JPEG:         []FileType{jfifType, jpegEXIFType, spiffType},
		Office:       []FileType{xlsxType, xpsType, docxType, vsdxType, pptxType},
		OpenDocument: []FileType{odsType, odpType, odtType},
	}
}

var defaultRegistry = buildRegistry(defaultConfig())

// DefaultRegistry returns the built-in signature table.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// NewRegistry builds a Registry from cfg. Every descriptor is copied, so
// later changes to cfg do not leak into the registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	def := defaultConfig()
	if cfg.Primary == nil {
		cfg.Primary = def.Primary
	}
	if cfg.APNG == nil {
		cfg.APNG = def.APNG
	}
	if cfg.JPEG == nil {
		cfg.JPEG = def.JPEG
	}
	if cfg.Office == nil {
		cfg.Office = def.Office
	}
	if cfg.OpenDocument == nil {
		cfg.OpenDocument = def.OpenDocument
	}
	return buildRegistry(cfg)
}

func buildRegistry(cfg RegistryConfig) *Registry {
	r := &Registry{
		primary:      cloneAll(cfg.Primary),
		jpeg:         cloneAll(cfg.JPEG),
		office:       cloneAll(cfg.Office),
		openDocument: cloneAll(cfg.OpenDocument),
		byName:       make(map[string]FileType),
	}
	if cfg.APNG != nil {
		r.apng = cfg.APNG.clone()
	}

	for _, list := range r.lists() {
		for _, ft := range list {
			if ft.Name == "" {
				continue
			}
			if _, exists := r.byName[ft.Name]; !exists {
				r.byName[ft.Name] = ft
			}
		}
	}

	return r
}

func (r *Registry) lists() [][]FileType {
	return [][]FileType{r.primary, {r.apng}, r.jpeg, r.office, r.openDocument}
}

// Primary returns the primary candidates in priority order.
func (r *Registry) Primary() []FileType { return cloneAll(r.primary) }

// APNG returns the descriptor a PNG match is refined into.
func (r *Registry) APNG() FileType { return r.apng.clone() }

// JPEGSubtypes returns the JPEG APPn variants in match order.
func (r *Registry) JPEGSubtypes() []FileType { return cloneAll(r.jpeg) }

// OfficeSubtypes returns the Office Open XML style variants in probe order.
func (r *Registry) OfficeSubtypes() []FileType { return cloneAll(r.office) }

// OpenDocumentSubtypes returns the OpenDocument variants in scan order.
func (r *Registry) OpenDocumentSubtypes() []FileType { return cloneAll(r.openDocument) }

// All returns every descriptor known to the registry, primary list first.
func (r *Registry) All() []FileType {
	all := make([]FileType, 0, len(r.byName))
	seen := make(map[string]bool, len(r.byName))
	for _, list := range r.lists() {
		for _, ft := range list {
			if ft.Name == "" || seen[ft.Name] {
				continue
			}
			seen[ft.Name] = true
			all = append(all, ft.clone())
		}
	}
	return all
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (FileType, bool) {
	ft, ok := r.byName[name]
	if !ok {
		return FileType{}, false
	}
	return ft.clone(), true
}

// Lookup returns the built-in descriptor registered under name.
func Lookup(name string) (FileType, bool) {
	return defaultRegistry.Lookup(name)
}

// MustLookup is like Lookup but panics if name is unknown.
// It is intended for tests and package-level variables.
func MustLookup(name string) FileType {
	ft, ok := Lookup(name)
	if !ok {
		panic("filemagic: unknown file type " + name)
	}
	return ft
}

func cloneAll(list []FileType) []FileType {
	if list == nil {
		return nil
	}
	out := make([]FileType, len(list))
	for i, ft := range list {
		out[i] = ft.clone()
	}
	return out
}
