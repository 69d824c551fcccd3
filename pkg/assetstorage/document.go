package assetstorage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Document is a decoded survey definition. Its shape is owned by the survey
// authoring layer; this package only reads and rewrites asset fields.
type Document map[string]any

// ParseDocument decodes a JSON survey definition.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode survey document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// documentAssetFields are the top-level fields holding a single asset URL.
var documentAssetFields = []string{"logo", "backgroundImage"}

// childKeys hold nested element lists: pages, panels and dynamic panel templates.
var childKeys = []string{"pages", "elements", "templateElements"}

// assetKind knows which fields of one element kind carry asset URLs.
type assetKind struct {
	collect func(el map[string]any, add func(string))
	rewrite func(el map[string]any, rw func(string) string)
}

// assetKinds is the closed set of asset-bearing element kinds. Elements of
// any other kind are never inspected.
var assetKinds = map[string]assetKind{
	"file":          fileKind,
	"audiorecorder": fileKind,
	"signaturepad":  signaturePadKind,
	"image":         imageKind,
}

// fileKind: value is a list of {name, type, content} descriptors.
var fileKind = assetKind{
	collect: func(el map[string]any, add func(string)) {
		for _, f := range objects(el["value"]) {
			if s, ok := stringField(f, "content"); ok {
				add(s)
			}
		}
	},
	rewrite: func(el map[string]any, rw func(string) string) {
		for _, f := range objects(el["value"]) {
			rewriteField(f, "content", rw)
		}
	},
}

// signaturePadKind: value may be a data blob object instead of a URL, so
// only string values are treated as references.
var signaturePadKind = assetKind{
	collect: func(el map[string]any, add func(string)) {
		if s, ok := stringField(el, "backgroundImage"); ok {
			add(s)
		}
		if s, ok := stringField(el, "value"); ok {
			add(s)
		}
	},
	rewrite: func(el map[string]any, rw func(string) string) {
		rewriteField(el, "backgroundImage", rw)
		rewriteField(el, "value", rw)
	},
}

var imageKind = assetKind{
	collect: func(el map[string]any, add func(string)) {
		if s, ok := stringField(el, "imageLink"); ok {
			add(s)
		}
	},
	rewrite: func(el map[string]any, rw func(string) string) {
		rewriteField(el, "imageLink", rw)
	},
}

// elementKind reads the element's kind tag from "type", falling back to "kind".
func elementKind(el map[string]any) string {
	for _, key := range []string{"type", "kind"} {
		if s, ok := el[key].(string); ok && s != "" {
			return strings.ToLower(s)
		}
	}
	return ""
}

// walkElements calls fn for every element nested under node, depth first.
func walkElements(node map[string]any, fn func(el map[string]any)) {
	for _, key := range childKeys {
		for _, el := range objects(node[key]) {
			fn(el)
			walkElements(el, fn)
		}
	}
}

// objects returns the JSON objects held in v, skipping anything else.
func objects(v any) []map[string]any {
	switch list := v.(type) {
	case []any:
		out := make([]map[string]any, 0, len(list))
		for _, item := range list {
			if m := asObject(item); m != nil {
				out = append(out, m)
			}
		}
		return out
	case []map[string]any:
		return list
	case []Document:
		out := make([]map[string]any, 0, len(list))
		for _, d := range list {
			if d != nil {
				out = append(out, d)
			}
		}
		return out
	default:
		return nil
	}
}

func asObject(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case Document:
		return m
	default:
		return nil
	}
}

func stringField(m map[string]any, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	s, ok := m[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func rewriteField(m map[string]any, key string, rw func(string) string) {
	s, ok := stringField(m, key)
	if !ok {
		return
	}
	if next := rw(s); next != s {
		m[key] = next
	}
}
