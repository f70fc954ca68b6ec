package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// allowedImageExtensions is the accepted input set for stitching uploads.
var allowedImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tiff": true,
}

// AllowedImageFile reports whether the filename carries an accepted image
// extension.
func AllowedImageFile(filename string) bool {
	return allowedImageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// SanitizeFilename strips directory components and path-traversal characters
// from an uploaded filename. When nothing usable survives, the caller-provided
// index produces a deterministic placeholder.
func SanitizeFilename(filename string, index int) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.TrimSpace(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name = b.String()
	name = strings.Trim(name, "._")

	if name == "" || !strings.Contains(name, ".") {
		return fmt.Sprintf("image_%03d.jpg", index)
	}
	return name
}
