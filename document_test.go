package tidecrawl

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDocumentUnmarshalFoldsAlternateCasing verifies snake_case spellings of
// rawHtml and changeTracking land in the canonical fields.
func TestDocumentUnmarshalFoldsAlternateCasing(t *testing.T) {
	t.Parallel()

	var doc Document
	err := json.Unmarshal([]byte(`{
		"markdown": "# title",
		"raw_html": "<html></html>",
		"change_tracking": {"changeStatus": "changed"}
	}`), &doc)
	require.NoError(t, err)

	require.Equal(t, "# title", doc.Markdown)
	require.Equal(t, "<html></html>", doc.RawHTML)
	require.Equal(t, "changed", doc.ChangeTracking["changeStatus"])
}

// TestDocumentUnmarshalPrefersCamelCase checks the camelCase spelling wins
// when a response carries both casings.
func TestDocumentUnmarshalPrefersCamelCase(t *testing.T) {
	t.Parallel()

	var doc Document
	err := json.Unmarshal([]byte(`{"rawHtml":"<new/>","raw_html":"<old/>"}`), &doc)
	require.NoError(t, err)
	require.Equal(t, "<new/>", doc.RawHTML)
}

// TestDocumentMetadataNormalizesWireValues covers the metadata decode rules:
// both key casings, list flattening, numeric coercion, and preservation of
// unknown keys in Extra.
func TestDocumentMetadataNormalizesWireValues(t *testing.T) {
	t.Parallel()

	var meta DocumentMetadata
	err := json.Unmarshal([]byte(`{
		"title": "Example",
		"og_title": "Example OG",
		"keywords": ["go", "crawling"],
		"ogLocaleAlternate": ["en_GB", "de_DE"],
		"sourceURL": "https://example.com/page",
		"statusCode": "200",
		"numPages": 3,
		"customField": 7,
		"nested": {"a": 1}
	}`), &meta)
	require.NoError(t, err)

	require.Equal(t, "Example", meta.Title)
	require.Equal(t, "Example OG", meta.OGTitle)
	require.Equal(t, "go, crawling", meta.Keywords)
	require.Equal(t, []string{"en_GB", "de_DE"}, meta.OGLocaleAlternate)
	require.Equal(t, "https://example.com/page", meta.SourceURL)
	require.Equal(t, 200, meta.StatusCode)
	require.Equal(t, 3, meta.NumPages)
	require.Equal(t, float64(7), meta.Extra["customField"])
	require.Contains(t, meta.Extra, "nested")
	require.NotContains(t, meta.Extra, "title")
}

// TestDocumentMarshalEmitsCamelCase verifies encoding uses the service's
// camelCase keys regardless of how the document was decoded.
func TestDocumentMarshalEmitsCamelCase(t *testing.T) {
	t.Parallel()

	doc := Document{
		RawHTML:        "<html/>",
		ChangeTracking: map[string]any{"changeStatus": "new"},
		Metadata:       &DocumentMetadata{OGTitle: "t", StatusCode: 404},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	require.Contains(t, wire, "rawHtml")
	require.NotContains(t, wire, "raw_html")
	require.Contains(t, wire, "changeTracking")

	meta := wire["metadata"].(map[string]any)
	require.Equal(t, "t", meta["ogTitle"])
	require.Equal(t, float64(404), meta["statusCode"])
}

// TestDocumentRoundTrip checks a decoded document survives an encode-decode
// cycle unchanged.
func TestDocumentRoundTrip(t *testing.T) {
	t.Parallel()

	src := []byte(`{
		"markdown": "# page",
		"links": ["https://example.com/a"],
		"metadata": {
			"title": "Page",
			"sourceURL": "https://example.com",
			"statusCode": 200,
			"customField": "kept"
		}
	}`)
	var first Document
	require.NoError(t, json.Unmarshal(src, &first))

	encoded, err := json.Marshal(first)
	require.NoError(t, err)

	var second Document
	require.NoError(t, json.Unmarshal(encoded, &second))
	require.Equal(t, first, second)
}

// TestFlattenString exercises the scalar and list renderings of loosely
// typed metadata values.
func TestFlattenString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want string
	}{
		{`"plain"`, "plain"},
		{`["a","b"]`, "a, b"},
		{`[1,2]`, "1, 2"},
		{`42`, "42"},
		{`null`, ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, flattenString(json.RawMessage(tc.raw)), tc.raw)
	}
}

// TestCoerceInt exercises numeric coercion including string-encoded numbers.
func TestCoerceInt(t *testing.T) {
	t.Parallel()

	n, ok := coerceInt(json.RawMessage(`200`))
	require.True(t, ok)
	require.Equal(t, 200, n)

	n, ok = coerceInt(json.RawMessage(`" 404 "`))
	require.True(t, ok)
	require.Equal(t, 404, n)

	_, ok = coerceInt(json.RawMessage(`"not a number"`))
	require.False(t, ok)

	_, ok = coerceInt(json.RawMessage(`{"a":1}`))
	require.False(t, ok)
}
