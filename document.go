package tidecrawl

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Document is one scraped page's result. Field presence depends on which
// output formats were requested at submission; absent formats leave their
// fields zero. The service wire format uses camelCase keys (rawHtml,
// changeTracking); both casings are accepted on decode and the camelCase
// form is emitted on encode, so a decoded document re-encodes losslessly.
type Document struct {
	Markdown   string
	HTML       string
	RawHTML    string
	Summary    string
	JSON       json.RawMessage
	Links      []string
	Images     []string
	Screenshot string
	Actions    map[string]any
	Warning    string
	// ChangeTracking carries the diff payload produced by the changeTracking
	// format, opaque to the client.
	ChangeTracking map[string]any
	Metadata       *DocumentMetadata
}

type documentWire struct {
	Markdown          string            `json:"markdown,omitempty"`
	HTML              string            `json:"html,omitempty"`
	RawHTML           string            `json:"rawHtml,omitempty"`
	RawHTMLSnake      string            `json:"raw_html,omitempty"`
	Summary           string            `json:"summary,omitempty"`
	JSON              json.RawMessage   `json:"json,omitempty"`
	Links             []string          `json:"links,omitempty"`
	Images            []string          `json:"images,omitempty"`
	Screenshot        string            `json:"screenshot,omitempty"`
	Actions           map[string]any    `json:"actions,omitempty"`
	Warning           string            `json:"warning,omitempty"`
	ChangeTrack       map[string]any    `json:"changeTracking,omitempty"`
	ChangeTrackSnake  map[string]any    `json:"change_tracking,omitempty"`
	Metadata          *DocumentMetadata `json:"metadata,omitempty"`
}

// UnmarshalJSON decodes a wire document, folding the alternate snake_case
// spellings of rawHtml and changeTracking into the canonical fields.
func (d *Document) UnmarshalJSON(b []byte) error {
	var w documentWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if w.RawHTML == "" {
		w.RawHTML = w.RawHTMLSnake
	}
	if w.ChangeTrack == nil {
		w.ChangeTrack = w.ChangeTrackSnake
	}
	*d = Document{
		Markdown:       w.Markdown,
		HTML:           w.HTML,
		RawHTML:        w.RawHTML,
		Summary:        w.Summary,
		JSON:           w.JSON,
		Links:          w.Links,
		Images:         w.Images,
		Screenshot:     w.Screenshot,
		Actions:        w.Actions,
		Warning:        w.Warning,
		ChangeTracking: w.ChangeTrack,
		Metadata:       w.Metadata,
	}
	return nil
}

// MarshalJSON encodes the document in the service wire format.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentWire{
		Markdown:    d.Markdown,
		HTML:        d.HTML,
		RawHTML:     d.RawHTML,
		Summary:     d.Summary,
		JSON:        d.JSON,
		Links:       d.Links,
		Images:      d.Images,
		Screenshot:  d.Screenshot,
		Actions:     d.Actions,
		Warning:     d.Warning,
		ChangeTrack: d.ChangeTracking,
		Metadata:    d.Metadata,
	})
}

// DocumentMetadata holds the page-level metadata attached to a Document.
// Known wire keys are mapped onto typed fields, accepting both the camelCase
// casing the service emits and the snake_case casing older responses used.
// List-valued fields are joined with ", " except OGLocaleAlternate, and
// numeric fields tolerate string encodings. Wire keys with no typed field
// are preserved untouched in Extra.
type DocumentMetadata struct {
	Title       string
	Description string
	URL         string
	Language    string
	Keywords    string
	Robots      string

	OGTitle           string
	OGDescription     string
	OGURL             string
	OGImage           string
	OGAudio           string
	OGDeterminer      string
	OGLocale          string
	OGLocaleAlternate []string
	OGSiteName        string
	OGVideo           string

	Favicon         string
	DCTermsCreated  string
	DCDateCreated   string
	DCDate          string
	DCTermsType     string
	DCType          string
	DCTermsAudience string
	DCTermsSubject  string
	DCSubject       string
	DCDescription   string
	DCTermsKeywords string

	ModifiedTime   string
	PublishedTime  string
	ArticleTag     string
	ArticleSection string

	SourceURL   string
	StatusCode  int
	ScrapeID    string
	NumPages    int
	ContentType string
	ProxyUsed   string
	CacheState  string
	CachedAt    string
	CreditsUsed int

	Error string

	// Extra preserves wire fields that have no typed equivalent.
	Extra map[string]any
}

// UnmarshalJSON decodes wire metadata, normalizing key casing and coercing
// loosely typed values.
func (m *DocumentMetadata) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode document metadata: %w", err)
	}

	take := func(keys ...string) (json.RawMessage, bool) {
		for _, k := range keys {
			if v, ok := raw[k]; ok {
				delete(raw, k)
				return v, true
			}
		}
		return nil, false
	}
	str := func(dst *string, keys ...string) {
		if v, ok := take(keys...); ok {
			*dst = flattenString(v)
		}
	}
	num := func(dst *int, keys ...string) {
		if v, ok := take(keys...); ok {
			if n, ok := coerceInt(v); ok {
				*dst = n
			}
		}
	}

	out := DocumentMetadata{}
	str(&out.Title, "title")
	str(&out.Description, "description")
	str(&out.URL, "url")
	str(&out.Language, "language")
	str(&out.Keywords, "keywords")
	str(&out.Robots, "robots")

	str(&out.OGTitle, "ogTitle", "og_title")
	str(&out.OGDescription, "ogDescription", "og_description")
	str(&out.OGURL, "ogUrl", "og_url")
	str(&out.OGImage, "ogImage", "og_image")
	str(&out.OGAudio, "ogAudio", "og_audio")
	str(&out.OGDeterminer, "ogDeterminer", "og_determiner")
	str(&out.OGLocale, "ogLocale", "og_locale")
	str(&out.OGSiteName, "ogSiteName", "og_site_name")
	str(&out.OGVideo, "ogVideo", "og_video")
	if v, ok := take("ogLocaleAlternate", "og_locale_alternate"); ok {
		var alt []string
		if err := json.Unmarshal(v, &alt); err == nil {
			out.OGLocaleAlternate = alt
		}
	}

	str(&out.Favicon, "favicon")
	str(&out.DCTermsCreated, "dcTermsCreated", "dc_terms_created")
	str(&out.DCDateCreated, "dcDateCreated", "dc_date_created")
	str(&out.DCDate, "dcDate", "dc_date")
	str(&out.DCTermsType, "dcTermsType", "dc_terms_type")
	str(&out.DCType, "dcType", "dc_type")
	str(&out.DCTermsAudience, "dcTermsAudience", "dc_terms_audience")
	str(&out.DCTermsSubject, "dcTermsSubject", "dc_terms_subject")
	str(&out.DCSubject, "dcSubject", "dc_subject")
	str(&out.DCDescription, "dcDescription", "dc_description")
	str(&out.DCTermsKeywords, "dcTermsKeywords", "dc_terms_keywords")

	str(&out.ModifiedTime, "modifiedTime", "modified_time")
	str(&out.PublishedTime, "publishedTime", "published_time")
	str(&out.ArticleTag, "articleTag", "article_tag")
	str(&out.ArticleSection, "articleSection", "article_section")

	str(&out.SourceURL, "sourceURL", "source_url")
	num(&out.StatusCode, "statusCode", "status_code")
	str(&out.ScrapeID, "scrapeId", "scrape_id")
	num(&out.NumPages, "numPages", "num_pages")
	str(&out.ContentType, "contentType", "content_type")
	str(&out.ProxyUsed, "proxyUsed", "proxy_used")
	str(&out.CacheState, "cacheState", "cache_state")
	str(&out.CachedAt, "cachedAt", "cached_at")
	num(&out.CreditsUsed, "creditsUsed", "credits_used")

	str(&out.Error, "error")

	if len(raw) > 0 {
		out.Extra = make(map[string]any, len(raw))
		for k, v := range raw {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return fmt.Errorf("decode metadata field %q: %w", k, err)
			}
			out.Extra[k] = val
		}
	}

	*m = out
	return nil
}

// MarshalJSON encodes the metadata in the service wire format. Typed fields
// win over same-named Extra entries.
func (m DocumentMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	put := func(key, val string) {
		if val != "" {
			out[key] = val
		}
	}

	put("title", m.Title)
	put("description", m.Description)
	put("url", m.URL)
	put("language", m.Language)
	put("keywords", m.Keywords)
	put("robots", m.Robots)

	put("ogTitle", m.OGTitle)
	put("ogDescription", m.OGDescription)
	put("ogUrl", m.OGURL)
	put("ogImage", m.OGImage)
	put("ogAudio", m.OGAudio)
	put("ogDeterminer", m.OGDeterminer)
	put("ogLocale", m.OGLocale)
	put("ogSiteName", m.OGSiteName)
	put("ogVideo", m.OGVideo)
	if len(m.OGLocaleAlternate) > 0 {
		out["ogLocaleAlternate"] = m.OGLocaleAlternate
	}

	put("favicon", m.Favicon)
	put("dcTermsCreated", m.DCTermsCreated)
	put("dcDateCreated", m.DCDateCreated)
	put("dcDate", m.DCDate)
	put("dcTermsType", m.DCTermsType)
	put("dcType", m.DCType)
	put("dcTermsAudience", m.DCTermsAudience)
	put("dcTermsSubject", m.DCTermsSubject)
	put("dcSubject", m.DCSubject)
	put("dcDescription", m.DCDescription)
	put("dcTermsKeywords", m.DCTermsKeywords)

	put("modifiedTime", m.ModifiedTime)
	put("publishedTime", m.PublishedTime)
	put("articleTag", m.ArticleTag)
	put("articleSection", m.ArticleSection)

	put("sourceURL", m.SourceURL)
	if m.StatusCode != 0 {
		out["statusCode"] = m.StatusCode
	}
	put("scrapeId", m.ScrapeID)
	if m.NumPages != 0 {
		out["numPages"] = m.NumPages
	}
	put("contentType", m.ContentType)
	put("proxyUsed", m.ProxyUsed)
	put("cacheState", m.CacheState)
	put("cachedAt", m.CachedAt)
	if m.CreditsUsed != 0 {
		out["creditsUsed"] = m.CreditsUsed
	}

	put("error", m.Error)

	for k, v := range m.Extra {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// flattenString renders a wire value as a single string. List values are
// joined with ", ", matching how the service collapses multi-valued
// metadata; scalars are stringified.
func flattenString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	}
	var v any
	if err := json.Unmarshal(raw, &v); err == nil && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

// coerceInt reads a wire value as an int, accepting numeric strings.
func coerceInt(raw json.RawMessage) (int, bool) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, convErr := strconv.Atoi(strings.TrimSpace(s)); convErr == nil {
			return v, true
		}
	}
	return 0, false
}
