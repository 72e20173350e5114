package formatter

import "html/template"

// FuncMap exposes the helpers to templates
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"timestamp": Timestamp,
		"digest":    Digest,
		"color":     Color,
		"initial":   Initial,
		"subject":   Subject,
		"addresses": Addresses,
		"truncate":  Truncate,
	}
}
