package domain

import (
	"net/url"
	"path"
	"strings"
)

const DefaultImageMIMEType = "image/png"

var mimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

// MimeTypeFor guesses the content type of an input from its extension.
// Query strings are ignored so download URLs resolve like plain paths.
func MimeTypeFor(ref string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		p = u.Path
	}
	if t, ok := mimeTypes[strings.ToLower(path.Ext(p))]; ok {
		return t
	}
	return DefaultImageMIMEType
}
