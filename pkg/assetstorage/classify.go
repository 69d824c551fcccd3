package assetstorage

import (
	"net/url"
	"strings"
)

// ContainerInfo describes where a storage URL points.
type ContainerInfo struct {
	ContainerType ContainerType
	ContainerName string
	HostName      string
	Private       bool
	// BlobName is empty when the URL names only the container; such URLs
	// cannot be used for blob-level token minting.
	BlobName string
}

// Classify resolves rawURL against cfg. It returns false for empty input,
// data URIs, unparseable or relative URLs, foreign hosts and unknown
// containers. Host and container are matched case-insensitively and the
// query string is ignored.
func Classify(rawURL string, cfg Config) (ContainerInfo, bool) {
	if rawURL == "" || hasPrefixFold(rawURL, "data:") {
		return ContainerInfo{}, false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ContainerInfo{}, false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || host != cfg.HostName {
		return ContainerInfo{}, false
	}

	segments := pathSegments(u.Path)
	if len(segments) == 0 {
		return ContainerInfo{}, false
	}
	container := strings.ToLower(segments[0])
	typ, ok := cfg.containerType(container)
	if !ok {
		return ContainerInfo{}, false
	}

	return ContainerInfo{
		ContainerType: typ,
		ContainerName: container,
		HostName:      cfg.HostName,
		Private:       cfg.Private,
		BlobName:      strings.Join(segments[1:], "/"),
	}, true
}

// IsFromContainer reports whether rawURL points into containerName.
func IsFromContainer(rawURL, containerName string, cfg Config) bool {
	if containerName == "" {
		return false
	}
	info, ok := Classify(rawURL, cfg)
	if !ok {
		return false
	}
	return info.ContainerName == normalizeName(containerName)
}

// BlobURL builds the canonical URL of a blob. It is the inverse of Classify.
func BlobURL(cfg Config, container, blob string) string {
	u := url.URL{
		Scheme: "https",
		Host:   cfg.HostName,
		Path:   "/" + normalizeName(container) + "/" + strings.TrimLeft(blob, "/"),
	}
	return u.String()
}

func pathSegments(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
