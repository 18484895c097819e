// Package upload holds the file acceptance rules shared by the server
// (authoritative check) and the client SDK (fail-fast check before any
// network call).
package upload

import "fmt"

// MaxFileSizeBytes is the hard ceiling for a single receipt file (10 MiB).
const MaxFileSizeBytes int64 = 10 << 20

// allowedTypes maps accepted image content types to storage extensions.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
	"image/tiff": ".tif",
}

// ValidationError means the file itself is unacceptable. It is never worth
// retrying; the user has to pick a different file.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Allowed reports whether the content type is in the accepted image set.
func Allowed(contentType string) bool {
	_, ok := allowedTypes[contentType]
	return ok
}

// Ext returns the storage extension for an accepted content type.
func Ext(contentType string) string {
	return allowedTypes[contentType]
}

// ValidateFile checks content type and size against the acceptance rules.
func ValidateFile(contentType string, sizeBytes int64) error {
	if !Allowed(contentType) {
		return &ValidationError{
			Field:  "content_type",
			Reason: fmt.Sprintf("%q is not an accepted image type", contentType),
		}
	}
	if sizeBytes <= 0 {
		return &ValidationError{Field: "file_size", Reason: "file is empty"}
	}
	if sizeBytes > MaxFileSizeBytes {
		return &ValidationError{
			Field:  "file_size",
			Reason: fmt.Sprintf("%d bytes exceeds the %d byte maximum", sizeBytes, MaxFileSizeBytes),
		}
	}
	return nil
}
