package imagegen

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/hongyue0721/image-fill-site/internal/domain"
)

var (
	pngMagic  = []byte{0x89, 0x50, 0x4e, 0x47}
	jpegMagic = []byte{0xff, 0xd8, 0xff}
	riffMagic = []byte("RIFF")
	webpMagic = []byte("WEBP")
)

// SniffMIME classifies image bytes by their magic numbers. Buffers shorter
// than 12 bytes are never classified.
func SniffMIME(b []byte) string {
	if len(b) < 12 {
		return domain.MIMEUnknown
	}
	switch {
	case bytes.HasPrefix(b, pngMagic):
		return domain.MIMEPNG
	case bytes.HasPrefix(b, jpegMagic):
		return domain.MIMEJPEG
	case bytes.HasPrefix(b, riffMagic) && bytes.Equal(b[8:12], webpMagic):
		return domain.MIMEWebP
	default:
		return domain.MIMEUnknown
	}
}

// MIMEByExtension guesses an image MIME type from a file name.
func MIMEByExtension(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return domain.MIMEPNG
	case ".jpg", ".jpeg":
		return domain.MIMEJPEG
	case ".webp":
		return domain.MIMEWebP
	default:
		return domain.MIMEUnknown
	}
}

// ExtensionForMIME returns a file extension, with the dot, for an image MIME
// type.
func ExtensionForMIME(mime string) string {
	switch mime {
	case domain.MIMEPNG:
		return ".png"
	case domain.MIMEJPEG:
		return ".jpg"
	case domain.MIMEWebP:
		return ".webp"
	default:
		return ".bin"
	}
}
