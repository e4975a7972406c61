package reader

// RenderFormat is the kind of payload a map server returns, as the
// compositor understands it.
type RenderFormat int

const (
	FormatBitmap RenderFormat = iota
	FormatSVG
	FormatPDF
)

const (
	mimeSVG = "image/svg+xml"
	mimePDF = "application/x-pdf"
)

func (f RenderFormat) String() string {
	switch f {
	case FormatSVG:
		return "svg"
	case FormatPDF:
		return "pdf"
	default:
		return "bitmap"
	}
}

// ResolveFormat maps a configured MIME type onto a RenderFormat. Anything that
// is not SVG or PDF is fetched and composited as a bitmap.
func ResolveFormat(mime string) RenderFormat {
	switch mime {
	case mimeSVG:
		return FormatSVG
	case mimePDF:
		return FormatPDF
	default:
		return FormatBitmap
	}
}
