package ga

import (
	"net/url"

	"github.com/segment-boneyard/integration-google-analytics/internal/event"
)

// pageURLFields decomposes the message URL (properties.url, falling back to
// context.page.url) into document hostname and path. The path keeps any
// query string, matching what browser trackers report. Unparseable or absent
// URLs produce no fields.
func pageURLFields(msg *event.Message, form Payload) {
	raw := msg.URL()
	if raw == "" {
		return
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return
	}

	if parsed.Hostname() != "" {
		form.set("dh", parsed.Hostname())
	}
	if path := parsed.RequestURI(); parsed.Path != "" && path != "" {
		form.set("dp", path)
	}
}

// contextPageFields is the sibling decomposer used by the enhanced and
// mobile campaign encoders: document fields come from the context.page tree
// only, the path excludes the query string, and the title rides along.
func contextPageFields(msg *event.Message, form Payload) {
	if msg.Context.Page.Title != "" {
		form.set("dt", msg.Context.Page.Title)
	}

	raw := msg.Context.Page.URL
	if raw == "" {
		return
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return
	}
	if parsed.Hostname() != "" {
		form.set("dh", parsed.Hostname())
	}
	if parsed.Path != "" {
		form.set("dp", parsed.Path)
	}
}
