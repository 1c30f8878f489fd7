package provider

import "github.com/microcosm-cc/bluemonday"

// htmlPolicy strips scripts, event handlers and other active content while
// keeping ordinary mail formatting.
var htmlPolicy = bluemonday.UGCPolicy()

// SanitizeHTML cleans a provider-supplied rich body before any renderer
// sees it.
func SanitizeHTML(raw string) string {
	if raw == "" {
		return ""
	}
	return htmlPolicy.Sanitize(raw)
}
