package assetstorage

// GenerateManifest lists every asset URL referenced by doc: the document
// logo and background image, then the asset fields of each element in depth
// first order. Duplicates are dropped. doc is not modified.
func GenerateManifest(doc Document) []string {
	var urls []string
	seen := make(map[string]struct{})
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		urls = append(urls, s)
	}
	if doc == nil {
		return []string{}
	}

	for _, field := range documentAssetFields {
		if s, ok := stringField(doc, field); ok {
			add(s)
		}
	}
	walkElements(doc, func(el map[string]any) {
		if kind, ok := assetKinds[elementKind(el)]; ok {
			kind.collect(el, add)
		}
	})

	if urls == nil {
		return []string{}
	}
	return urls
}
