// Package utils provides filename sanitization and storage key derivation.
package utils

import (
	"path/filepath"
	"strings"
)

const maxFileNameLength = 255

// SanitizeFileName strips path components and characters that are unsafe in
// object keys, returning a name safe to embed in a storage key.
// Empty or fully-stripped names fall back to "upload.bin".
func SanitizeFileName(name string) string {
	// Drop any directory components, including Windows-style separators.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	if name == "." || name == ".." || name == "/" {
		return "upload.bin"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_', r == ' ', r == '(', r == ')':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	sanitized := strings.TrimSpace(b.String())
	sanitized = strings.Trim(sanitized, ".")
	if sanitized == "" {
		return "upload.bin"
	}

	if len(sanitized) > maxFileNameLength {
		ext := filepath.Ext(sanitized)
		if len(ext) > 32 {
			ext = ""
		}
		sanitized = sanitized[:maxFileNameLength-len(ext)] + ext
	}

	return sanitized
}
