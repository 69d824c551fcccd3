package validator

import (
	"regexp"
	"strings"
)

// blobSegmentRegexp defines a valid blob path segment: letters, digits and
// ". _ - ( ) space", 1-255 characters.
var blobSegmentRegexp = regexp.MustCompile(`^[A-Za-z0-9._\-() ]{1,255}$`)

// maxBlobKeyLength bounds the full key, segments joined by "/".
const maxBlobKeyLength = 1024

// ValidateBlobKey checks that key is a relative, slash separated blob name
// without empty, "." or ".." segments.
func ValidateBlobKey(key string) bool {
	if key == "" || len(key) > maxBlobKeyLength {
		return false
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "." || segment == ".." {
			return false
		}
		if !blobSegmentRegexp.MatchString(segment) {
			return false
		}
	}
	return true
}

// SanitizeFileName reduces a client supplied file name to a single valid
// blob segment. The second return is false when nothing usable remains.
func SanitizeFileName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-', r == '(', r == ')':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	cleaned := strings.Trim(b.String(), ".")
	if len(cleaned) > 255 {
		cleaned = cleaned[len(cleaned)-255:]
	}
	if cleaned == "" {
		return "", false
	}
	return cleaned, true
}

// containerNameRegexp follows blob container naming: 3-63 lowercase letters,
// digits and single hyphens, starting and ending with a letter or digit.
var containerNameRegexp = regexp.MustCompile(`^[a-z0-9]([a-z0-9]|-[a-z0-9]){2,62}$`)

// ValidateContainerName checks a physical container name.
func ValidateContainerName(name string) bool {
	return len(name) <= 63 && containerNameRegexp.MatchString(name)
}
