package constants

import "strings"

// AllowedMIMEType reports whether an uploaded file may enter the queue.
// Only PDFs and images are accepted; everything else is skipped with a
// visible message.
func AllowedMIMEType(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	return mime == "application/pdf" || strings.HasPrefix(mime, "image/")
}

// MIMEForExtension maps a filename extension to a MIME type for uploads that
// arrive without a Content-Type.
func MIMEForExtension(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
