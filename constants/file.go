package constants

import "strings"

// FileFormat is the document container we know how to extract text from.
type FileFormat string

const (
	DOCX FileFormat = "DOCX"
	PDF  FileFormat = "PDF"
	TXT  FileFormat = "TXT"
)

// AllowedExtensions holds the default allowed file extensions for report ingestion.
var AllowedExtensions = map[string]struct{}{
	"docx": {},
	"pdf":  {},
	"txt":  {},
	"text": {},
	"md":   {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a (possibly dotted) extension to a FileFormat.
// Anything we do not recognize is treated as plain text downstream,
// so this returns TXT rather than an empty value.
func MapExtToFormat(ext string) FileFormat {
	switch NormalizeExt(ext) {
	case "docx":
		return DOCX
	case "pdf":
		return PDF
	default:
		return TXT
	}
}
