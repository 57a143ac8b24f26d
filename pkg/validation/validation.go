package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// BvidRegex validates the public video identifier format.
	BvidRegex = regexp.MustCompile(`^BV[0-9A-Za-z]{10}$`)
)

// ValidateBvid validates the public video identifier.
func ValidateBvid(bvid string) error {
	bvid = strings.TrimSpace(bvid)
	if bvid == "" {
		return fmt.Errorf("bvid is required")
	}
	if !BvidRegex.MatchString(bvid) {
		return fmt.Errorf("invalid bvid format")
	}
	return nil
}

// ValidateCredentialBlob validates an opaque cookie string before it is
// verified upstream and cached.
func ValidateCredentialBlob(blob string) error {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return fmt.Errorf("cookies are required")
	}
	if len(blob) > 8192 {
		return fmt.Errorf("cookies are too long (max 8192 characters)")
	}
	for _, r := range blob {
		if r == '\n' || r == '\r' {
			return fmt.Errorf("cookies must not contain line breaks")
		}
	}
	return nil
}

// ValidateStreamType validates the requested stream type parameter.
func ValidateStreamType(streamType string) error {
	switch streamType {
	case "video", "audio", "raw":
		return nil
	}
	return fmt.Errorf("invalid type, use type=video, type=audio, or type=raw")
}
