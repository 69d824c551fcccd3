package assetstorage

import (
	"regexp"
	"strings"
)

// storageURLPattern matches absolute https URLs on host. The host is quoted
// so it is matched literally. A match stops at a double quote, whitespace or
// the start of a query string.
func storageURLPattern(host string) *regexp.Regexp {
	return regexp.MustCompile(`https://` + regexp.QuoteMeta(host) + `/[^"\s?]+`)
}

// storageURLWithQueryPattern is storageURLPattern extended over an optional
// query string, used when rewriting text in place.
func storageURLWithQueryPattern(host string) *regexp.Regexp {
	return regexp.MustCompile(`https://` + regexp.QuoteMeta(host) + `/([^"\s?]+)(\?[^"\s]*)?`)
}

// ExtractStorageURLs scans serialized text (typically a JSON survey
// definition) for URLs on hostName and returns them de-duplicated in
// first-seen order. Query strings are not part of the returned URLs.
func ExtractStorageURLs(content, hostName string) []string {
	if content == "" || hostName == "" {
		return []string{}
	}
	matches := storageURLPattern(hostName).FindAllString(content, -1)
	return dedupe(matches)
}

// RewriteStorageURLs merges the token issued for every storage URL found in
// content. Lookups use the URL without its query string, the same form
// ExtractStorageURLs returns. URLs without a token are left untouched.
func RewriteStorageURLs(content, hostName string, tokens TokenMap) string {
	if content == "" || hostName == "" || len(tokens) == 0 {
		return content
	}
	re := storageURLWithQueryPattern(hostName)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		key := match
		if i := strings.IndexByte(match, '?'); i >= 0 {
			key = match[:i]
		}
		token, ok := tokens[key]
		if !ok {
			return match
		}
		return MergeToken(match, token)
	})
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
