package assetstorage

import "strings"

// MergeToken appends token to the query string of rawURL. A leading "?" on
// the token is ignored. When the existing query already contains the token
// the URL is returned unchanged, so repeated enrichment is a no-op. Any
// fragment stays at the end of the URL.
func MergeToken(rawURL, token string) string {
	if rawURL == "" || token == "" {
		return rawURL
	}
	token = strings.TrimPrefix(token, "?")
	if token == "" {
		return rawURL
	}

	base, fragment := rawURL, ""
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		base, fragment = rawURL[:i], rawURL[i:]
	}

	i := strings.IndexByte(base, '?')
	if i < 0 {
		return base + "?" + token + fragment
	}
	query := base[i+1:]
	if strings.Contains(query, token) {
		return rawURL
	}
	if query == "" || strings.HasSuffix(query, "&") {
		return base + token + fragment
	}
	return base + "&" + token + fragment
}
