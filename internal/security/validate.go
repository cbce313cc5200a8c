package security

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	ErrInvalidEmail   = errors.New("invalid email address format")
	ErrInvalidKey     = errors.New("invalid storage key")
	ErrUploadTooLarge = errors.New("upload exceeds size limit")
	ErrNotWorkbook    = errors.New("upload is not an xlsx workbook")
)

// zipMagic opens every .xlsx file, which is a zip container.
var zipMagic = []byte("PK\x03\x04")

// ValidateEmail checks if the provided email is a valid format to prevent header injection.
func ValidateEmail(email string) error {
	// \r and \n are used for header injection.
	if strings.ContainsAny(email, "\r\n") {
		return ErrInvalidEmail
	}

	atIdx := strings.Index(email, "@")
	dotIdx := strings.LastIndex(email, ".")
	if atIdx < 1 || dotIdx < atIdx+2 || dotIdx == len(email)-1 {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateUpload checks that data looks like an .xlsx document and does not
// exceed maxBytes. A maxBytes of zero or less disables the size check.
func ValidateUpload(data []byte, maxBytes int64) error {
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrUploadTooLarge, len(data), maxBytes)
	}
	if !bytes.HasPrefix(data, zipMagic) {
		return ErrNotWorkbook
	}
	return nil
}

// ValidateKey rejects storage keys that are empty, absolute, or escape the
// storage root.
func ValidateKey(key string) error {
	if key == "" || strings.ContainsAny(key, "\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: %q is absolute", ErrInvalidKey, key)
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
