package assetstorage

import (
	"reflect"
	"sort"
	"testing"
)

func sampleDocument(t *testing.T) Document {
	t.Helper()
	doc, err := ParseDocument([]byte(`{
		"title": "Site inspection",
		"logo": "https://h/content/logo.png",
		"backgroundImage": "https://h/content/bg.jpg",
		"pages": [
			{
				"name": "p1",
				"elements": [
					{"type": "image", "name": "hero", "imageLink": "https://h/content/hero.png"},
					{"type": "file", "name": "docs", "value": [
						{"name": "a.pdf", "type": "application/pdf", "content": "https://h/user-files/a.pdf"},
						{"name": "inline.txt", "type": "text/plain", "content": ""},
						"garbage",
						null
					]},
					{"type": "text", "name": "notes", "defaultValue": "https://h/content/not-an-asset.png"},
					{"type": "panel", "name": "outer", "elements": [
						{"type": "panel", "name": "inner", "elements": [
							{"type": "signaturepad", "name": "sig", "backgroundImage": "https://h/content/sig-bg.png", "value": "https://h/user-files/sig.png"},
							{"type": "image", "name": "hero-again", "imageLink": "https://h/content/hero.png"}
						]}
					]},
					{"type": "paneldynamic", "name": "rows", "templateElements": [
						{"type": "audiorecorder", "name": "voice", "value": [{"name": "v.webm", "content": "https://h/user-files/v.webm"}]}
					]}
				]
			},
			{
				"name": "p2",
				"elements": [
					{"type": "signaturepad", "name": "sig2", "value": {"strokes": [[1, 2], [3, 4]]}},
					{"type": "file", "name": "empty", "value": null},
					{"type": "file", "name": "scalar", "value": "https://h/user-files/scalar.pdf"},
					{"type": "IMAGE", "name": "shouting", "imageLink": "https://h/content/upper.png"}
				]
			}
		]
	}`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	return doc
}

func TestGenerateManifest(t *testing.T) {
	got := GenerateManifest(sampleDocument(t))
	want := []string{
		"https://h/content/logo.png",
		"https://h/content/bg.jpg",
		"https://h/content/hero.png",
		"https://h/user-files/a.pdf",
		"https://h/content/sig-bg.png",
		"https://h/user-files/sig.png",
		"https://h/user-files/v.webm",
		"https://h/content/upper.png",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("manifest mismatch\n got: %v\nwant: %v", got, want)
	}
}

func TestGenerateManifestDeduplicatesAcrossNesting(t *testing.T) {
	doc := Document{
		"logo": "L",
		"elements": []any{
			map[string]any{"kind": "image", "imageLink": "I"},
			map[string]any{"kind": "panel", "elements": []any{
				map[string]any{"kind": "image", "imageLink": "I"},
			}},
		},
	}
	got := GenerateManifest(doc)
	if !reflect.DeepEqual(got, []string{"L", "I"}) {
		t.Fatalf("got %v", got)
	}
}

func TestGenerateManifestDoesNotMutate(t *testing.T) {
	doc := sampleDocument(t)
	before := sampleDocument(t)
	_ = GenerateManifest(doc)
	if !reflect.DeepEqual(doc, before) {
		t.Fatalf("GenerateManifest modified the document")
	}
}

func TestGenerateManifestEmpty(t *testing.T) {
	for _, doc := range []Document{nil, {}, {"pages": "nope"}, {"elements": []any{nil, 3, "x"}}} {
		if got := GenerateManifest(doc); len(got) != 0 {
			t.Fatalf("expected empty manifest for %v, got %v", doc, got)
		}
	}
}

func TestGenerateManifestMatchesExtractor(t *testing.T) {
	raw := []byte(`{"logo":"https://h/content/l.png","elements":[{"type":"image","imageLink":"https://h/content/i.png"}]}`)
	doc, err := ParseDocument(raw)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	fromTree := GenerateManifest(doc)
	fromText := ExtractStorageURLs(string(raw), "h")
	sort.Strings(fromTree)
	sort.Strings(fromText)
	if !reflect.DeepEqual(fromTree, fromText) {
		t.Fatalf("tree %v, text %v", fromTree, fromText)
	}
}

func TestParseDocumentRejectsInvalidJSON(t *testing.T) {
	if _, err := ParseDocument([]byte(`{"pages":`)); err == nil {
		t.Fatalf("expected decode error")
	}
	doc, err := ParseDocument([]byte(`null`))
	if err != nil || doc == nil {
		t.Fatalf("expected empty document for null, got %v, %v", doc, err)
	}
}
