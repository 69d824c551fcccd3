package assetstorage

// TokenMap maps an asset URL, exactly as it appears in the document, to its
// read token. A URL is present only when a token was minted for it.
type TokenMap map[string]string

// ApplyTokens rewrites, in place, every asset reference in doc that has an
// entry in tokens. References without a token are left as they are, and a
// reference that already carries its token is not changed again.
func ApplyTokens(doc Document, tokens TokenMap) {
	if doc == nil || len(tokens) == 0 {
		return
	}
	rw := func(s string) string {
		return MergeToken(s, tokens[s])
	}

	for _, field := range documentAssetFields {
		rewriteField(doc, field, rw)
	}
	walkElements(doc, func(el map[string]any) {
		if kind, ok := assetKinds[elementKind(el)]; ok {
			kind.rewrite(el, rw)
		}
	})
}
