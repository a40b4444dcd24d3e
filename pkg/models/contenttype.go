package models

import (
	"mime"
	"strings"
)

// ContentType is a parsed media type. The zero value is the unknown type.
type ContentType struct {
	// MainType and SubType are the lower-cased halves of the media type.
	MainType string
	SubType  string
	// Suffix is the structured syntax suffix ("json" in
	// "application/hal+json"), empty when absent.
	Suffix string
	// Params holds the media type parameters (charset and friends).
	Params map[string]string

	raw string
}

// ParseContentType parses a media type header value. Parse failures return
// the unknown type rather than an error; matching falls back to byte
// equality for bodies nothing can claim.
func ParseContentType(value string) ContentType {
	value = strings.TrimSpace(value)
	if value == "" {
		return ContentType{}
	}
	mediaType, params, err := mime.ParseMediaType(value)
	if err != nil {
		return ContentType{raw: value}
	}
	ct := ContentType{Params: params, raw: value}
	if main, sub, ok := strings.Cut(mediaType, "/"); ok {
		ct.MainType = main
		ct.SubType = sub
		if _, suffix, ok := strings.Cut(sub, "+"); ok {
			ct.Suffix = suffix
		}
	} else {
		ct.MainType = mediaType
	}
	return ct
}

// String returns the original header value.
func (c ContentType) String() string {
	return c.raw
}

// IsUnknown reports whether no usable media type was parsed.
func (c ContentType) IsUnknown() bool {
	return c.MainType == ""
}

// IsJSON reports whether the content is JSON, including +json suffixed
// types such as application/hal+json.
func (c ContentType) IsJSON() bool {
	return c.SubType == "json" || c.Suffix == "json"
}

// IsXML reports whether the content is XML, including +xml suffixed types.
func (c ContentType) IsXML() bool {
	return c.SubType == "xml" || c.Suffix == "xml"
}

// IsFormURLEncoded reports whether the content is a form-urlencoded body.
func (c ContentType) IsFormURLEncoded() bool {
	return c.MainType == "application" && c.SubType == "x-www-form-urlencoded"
}

// IsText reports whether the content is textual: any text/* type, or a
// structured type that is text on the wire.
func (c ContentType) IsText() bool {
	return c.MainType == "text" || c.IsJSON() || c.IsXML() || c.IsFormURLEncoded()
}

// Charset returns the charset parameter, lower-cased, or the empty string.
func (c ContentType) Charset() string {
	return strings.ToLower(c.Params["charset"])
}
